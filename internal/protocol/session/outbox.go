package session

import (
	"errors"
	"fmt"
	"time"
)

var ErrSequenceOrder = errors.New("session: outbox sequence not increasing")

// PendingSegment tracks one data segment awaiting its ack.
type PendingSegment struct {
	Seq      uint64
	Size     int
	Frame    []byte
	SentAt   time.Time
	Attempts int
}

// Outbox is the sender's in-flight set, kept in sequence order. Entries
// leave only through Remove, which the sender calls on a verified ack.
type Outbox struct {
	order []uint64
	items map[uint64]*PendingSegment
}

func NewOutbox() *Outbox {
	return &Outbox{items: make(map[uint64]*PendingSegment)}
}

func (o *Outbox) Len() int {
	return len(o.order)
}

// Push appends a segment. Sequences must arrive strictly increasing.
func (o *Outbox) Push(seg PendingSegment) error {
	if n := len(o.order); n > 0 && seg.Seq <= o.order[n-1] {
		return fmt.Errorf("%w: %d after %d", ErrSequenceOrder, seg.Seq, o.order[n-1])
	}
	item := seg
	o.items[seg.Seq] = &item
	o.order = append(o.order, seg.Seq)
	return nil
}

// Bytes is the payload total of the in-flight segments.
func (o *Outbox) Bytes() int {
	total := 0
	for _, seq := range o.order {
		total += o.items[seq].Size
	}
	return total
}

func (o *Outbox) Remove(seq uint64) (PendingSegment, bool) {
	item, ok := o.items[seq]
	if !ok {
		return PendingSegment{}, false
	}
	delete(o.items, seq)
	for i, s := range o.order {
		if s == seq {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return *item, true
}

// MarkAttempt records a (re)transmission of seq at the given time.
func (o *Outbox) MarkAttempt(seq uint64, at time.Time) (*PendingSegment, bool) {
	item, ok := o.items[seq]
	if !ok {
		return nil, false
	}
	item.Attempts++
	item.SentAt = at
	return item, true
}

// List returns in-flight segments in sequence order. The pointers stay
// owned by the outbox.
func (o *Outbox) List() []*PendingSegment {
	out := make([]*PendingSegment, 0, len(o.order))
	for _, seq := range o.order {
		out = append(out, o.items[seq])
	}
	return out
}

// Expired lists segments unacknowledged for longer than timeout.
func (o *Outbox) Expired(now time.Time, timeout time.Duration) []*PendingSegment {
	var out []*PendingSegment
	for _, seq := range o.order {
		item := o.items[seq]
		if now.Sub(item.SentAt) > timeout {
			out = append(out, item)
		}
	}
	return out
}
