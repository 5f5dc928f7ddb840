package session

// Inbox is the receiver's reorder buffer. Sequences below next have been
// flushed and are treated as duplicates; anything at or above next waits
// in pending until the gap before it closes.
type Inbox struct {
	next    uint64
	pending map[uint64][]byte
}

func NewInbox() *Inbox {
	return &Inbox{pending: make(map[uint64][]byte)}
}

// Next is the lowest sequence not yet flushed.
func (b *Inbox) Next() uint64 {
	return b.next
}

// Pending is the number of buffered, unflushed segments.
func (b *Inbox) Pending() int {
	return len(b.pending)
}

// Seen reports whether seq was already flushed or is buffered.
func (b *Inbox) Seen(seq uint64) bool {
	if seq < b.next {
		return true
	}
	_, ok := b.pending[seq]
	return ok
}

// Insert stores payload under seq unless seq was already seen. It returns
// false for duplicates.
func (b *Inbox) Insert(seq uint64, payload []byte) bool {
	if b.Seen(seq) {
		return false
	}
	b.pending[seq] = payload
	return true
}

// Drain hands the contiguous run starting at next to write, in order, and
// advances next past each payload written. A payload whose write fails
// stays buffered and next is not advanced past it.
func (b *Inbox) Drain(write func(seq uint64, payload []byte) error) (int, error) {
	flushed := 0
	for {
		payload, ok := b.pending[b.next]
		if !ok {
			return flushed, nil
		}
		if err := write(b.next, payload); err != nil {
			return flushed, err
		}
		delete(b.pending, b.next)
		b.next++
		flushed++
	}
}
