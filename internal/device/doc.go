// Package device models a Grünbeck softliQ water softener as the cloud
// reports it.
//
// The wire schema splits one appliance across four documents: a listing
// summary, a base detail document, a parameter record of user-settable
// values (p-prefixed field mnemonics) and a telemetry record pushed over
// the relay stream (m-prefixed mnemonics). Every wire key is declared
// statically as a struct tag; there is no runtime field mapping beyond
// encoding/json's tag lookup.
//
// Field values come with firmware quirks the types absorb: clocks arrive
// as "HH:MM" with "--:--" for unset slots, enum-coded parameters arrive
// as literal false before the device has ever set them, and the next
// regeneration timestamp arrives naive with its UTC offset in a separate
// field. The timestamp and offset are recombined in an explicit finalize
// pass after parsing, never during field decode.
//
// Mutating entry points (UpdateFromInfo, RealtimeInfo.Merge) replace
// pointers and slices instead of writing through them, so a shallow copy
// of a Device taken before an update keeps the values it was copied with.
package device
