// Package cloud is the high-level client for the Grünbeck cloud. It
// ties the login session, the REST endpoint table and the realtime
// relay stream together around one selected water softener.
//
// The usual call order is NewClient, then SelectDevice or
// SelectDeviceByID, then either plain REST operations or Connect
// followed by Listen for live telemetry. Telemetry callbacks receive
// device snapshots; updates replace pointers instead of mutating
// shared values, so a snapshot stays stable after later merges.
package cloud
