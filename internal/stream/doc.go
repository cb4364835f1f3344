// Package stream maintains the push channel for live telemetry.
//
// The cloud relays telemetry through a SignalR-style broker: the primary
// API assigns a relay and a short-lived relay token, the relay's own
// negotiate endpoint mints a connection id, and the WebSocket upgrade
// carries both as query parameters. Immediately after the upgrade the
// client declares the JSON sub-protocol with a fixed handshake frame and
// arms the device-side push with the enter/refresh streaming-mode calls.
//
// Manager drives that connect sequence as a small state machine and owns
// the socket, its heartbeat and the receive loop. Processor classifies
// the relay's record-separated JSON messages: keep-alives are counted,
// telemetry addressed to the active device is handed up, telemetry
// addressed to any other device is a protocol error, and everything else
// is skipped at debug level because the wire is known to carry frames
// this client has no use for.
package stream
