// Package session owns the reliability engines on either side of a link.
//
// Ownership boundary:
// - sender: sequence assignment, outbox, sliding window, rtt, retransmission
// - receiver: dedupe, reorder buffer, in-order flush, ack/nack emission
// - pumps that turn blocking socket and stream reads into channel events
//
// Each engine's state is owned by the goroutine running its loop. Pumps
// only hand values over channels; nothing in this package takes a lock.
package session
