package disruptor

import "sync"

// Signal is a re-armable broadcast primitive: every call to Wait returns a
// channel for the current generation, and Broadcast closes that channel
// (releasing every current waiter) before arming a fresh one for the next
// generation. This is the single-condition-variable realization the
// design favors over a per-sequence map of one-shot barriers: callers
// recheck their predicate after each wake, so a stale or coalesced
// broadcast is harmless.
type Signal interface {
	Wait() <-chan struct{}
	Broadcast()
}

// SignalFactory constructs Signals. A Disruptor built by New without
// WithSignalFactory uses in-process broadcasters; a multiproc deployment supplies a factory
// whose Signals are visible across processes (see package distbarrier).
type SignalFactory func() Signal

func defaultSignalFactory() Signal { return newBroadcaster() }

// broadcaster is the default in-process Signal, built on a mutex-guarded
// channel generation rather than sync.Cond so that waiters can select
// against a timeout.
type broadcaster struct {
	mu sync.Mutex
	ch chan struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{ch: make(chan struct{})}
}

func (b *broadcaster) Wait() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch
}

func (b *broadcaster) Broadcast() {
	b.mu.Lock()
	old := b.ch
	b.ch = make(chan struct{})
	b.mu.Unlock()
	close(old)
}
