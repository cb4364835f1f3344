// Package diagnostics captures recent cloud traffic for bug reports.
//
// A Recorder keeps a bounded ring of request/response entries. Entries are
// stored raw so nothing is lost, and every secret-bearing value (tokens,
// serial numbers, installer contact data) is replaced with **REDACTED**
// when the ring is exported. Raw entries never leave the package.
package diagnostics
