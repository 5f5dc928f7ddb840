package observability

import "sync/atomic"

// Board holds the latest stats snapshot published by an engine loop so
// readers on other goroutines never touch engine state. A nil *Board
// discards publishes.
type Board struct {
	latest atomic.Value
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Publish(snapshot any) {
	if b == nil || snapshot == nil {
		return
	}
	b.latest.Store(boxed{snapshot})
}

func (b *Board) Snapshot() (any, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.latest.Load().(boxed)
	if !ok {
		return nil, false
	}
	return v.value, true
}

// atomic.Value requires a consistent concrete type across stores.
type boxed struct {
	value any
}
