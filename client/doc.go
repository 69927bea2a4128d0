// Package client owns the caller-facing transport contract for the Git
// smart protocol.
//
// Ownership boundary:
// - handshake result shapes and capability advertisement parsing
// - request writer framing and teardown control messages
// - response reading with sideband progress interception
// - protocol V2 command invocation
//
// All operations on one Transport are strictly sequential: a handshake
// must complete (including draining a V1 ref stream) before Request,
// and a writer must be transitioned into a reader and the reader
// exhausted before the next Transport call.
package client
