package internal

// Broadcaster wakes every goroutine waiting for a change in guarded state.
// It carries no lock of its own: Wait and Broadcast must be called while
// holding the mutex that guards the state being waited on. Waiters take the
// channel under that mutex, release it, then block on the channel and
// re-check their predicate once it closes.
type Broadcaster struct {
	ch chan struct{}
}

// NewBroadcaster creates a Broadcaster ready for use
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{ch: make(chan struct{})}
}

// Wait returns a channel that is closed on the next Broadcast
func (b *Broadcaster) Wait() <-chan struct{} {
	return b.ch
}

// Broadcast wakes all current waiters
func (b *Broadcaster) Broadcast() {
	close(b.ch)
	b.ch = make(chan struct{})
}
