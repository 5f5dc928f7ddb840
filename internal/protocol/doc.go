// Package protocol owns the message model and its canonical text encoding.
//
// Ownership boundary:
// - tagged message variant (data, ack, nack)
// - canonical serialization used for checksums and the wire body
// - body parsing with kind decided once at parse time
//
// Framing (checksum prefix, record delimiter) lives in protocol/frame.
// Reliability (windows, retransmission, reordering) lives in protocol/session.
package protocol
