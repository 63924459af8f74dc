// Package transport implements the wire format described in spec.md §6:
// signed events, subscription filters, and the JSON-array frame
// protocol exchanged between a relay and its clients over a persistent
// bidirectional stream.
//
// Event and Filter are transport-neutral; Conn wires them to a
// gorilla/websocket connection with a single read/write loop per
// client — no reconnect or backoff state machine, since spec.md's
// concurrency model leaves that to the client side.
package transport
