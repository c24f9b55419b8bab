// Package server implements the real-time side of cofly: the WebSocket
// gateway that authenticates inbound connections, and the connection
// registry that fans pushed events out to every live device of an
// identity, queuing for identities that are offline.
//
// The registry is process-wide, in-memory state. Undelivered events do
// not survive a restart, and there is no cross-process fan-out; both are
// deliberate.
package server
