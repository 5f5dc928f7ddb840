// Package link wires the session engines to real sockets and streams.
//
// Ownership boundary:
// - UDP endpoint creation and peer resolution
// - pump startup and engine loop lifecycle
// - optional status server per process
//
// Protocol behavior lives in protocol/session; this package only plumbs.
package link
