package disruptor

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Subscriber tracks one consumer's progress through the ring and owns the
// signal producers block on while this subscriber lags.
//
// A Subscriber is created by Disruptor.RegisterSubscriber and held by the
// application until Disruptor.RemoveSubscriber; it is never constructed
// directly.
type Subscriber struct {
	id       uuid.UUID
	sequence atomic.Int64 // Sequence, noSequence until the first UpdateSequence
	signal   Signal

	removed atomic.Bool // true once RemoveSubscriber has taken this out of the backpressure set
	closed  atomic.Bool // true once the owning Disruptor has Close()d
}

func newSubscriber(factory SignalFactory) *Subscriber {
	sub := &Subscriber{signal: factory()}
	sub.id = uuid.New()
	sub.sequence.Store(int64(noSequence))
	return sub
}

// ID is a stable, opaque identifier for this subscriber's lifetime.
func (s *Subscriber) ID() uuid.UUID { return s.id }

func (s *Subscriber) current() Sequence { return Sequence(s.sequence.Load()) }

// CurrentSequence returns the acknowledged high-water mark. ok is false if
// the subscriber has not yet called UpdateSequence.
func (s *Subscriber) CurrentSequence() (seq Sequence, ok bool) {
	v := s.current()
	if v == noSequence {
		return 0, false
	}
	return v, true
}

// UpdateSequence records that seq has been fully processed and releases
// any producer blocked on this subscriber having passed a value < seq.
// It is safe to call repeatedly with a non-decreasing value; calling with
// a value lower than the current one is a programmer error and panics,
// matching the unchecked regression in the source this was ported from.
func (s *Subscriber) UpdateSequence(seq Sequence) {
	prev := s.current()
	if prev != noSequence && seq < prev {
		panic("disruptor: Subscriber.UpdateSequence called with a sequence lower than the current one")
	}
	s.sequence.Store(int64(seq))
	s.signal.Broadcast()
}

// WaitUntilPassed blocks the calling producer until CurrentSequence() > seq,
// this subscriber is removed, the owning Disruptor closes, or deadline
// elapses. A zero deadline means wait indefinitely.
func (s *Subscriber) WaitUntilPassed(seq Sequence, deadline time.Time) error {
	for {
		// Grab the current generation's channel before re-checking the
		// predicate: Broadcast only wakes waiters already parked on the
		// channel it closes, so arming the wait after the check would miss
		// an UpdateSequence that lands in between.
		ch := s.signal.Wait()

		if s.current() > seq {
			return nil
		}
		if s.removed.Load() {
			// No longer part of the backpressure set: treat as passed.
			return nil
		}
		if s.closed.Load() {
			return ErrDisruptorClosed
		}

		if deadline.IsZero() {
			<-ch
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return s.timeoutOrPassed(seq)
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return s.timeoutOrPassed(seq)
		}
	}
}

func (s *Subscriber) timeoutOrPassed(seq Sequence) error {
	if s.current() > seq {
		return nil
	}
	if s.removed.Load() {
		return nil
	}
	if s.closed.Load() {
		return ErrDisruptorClosed
	}
	return ErrTimeout
}

// release marks this subscriber out of the backpressure set and wakes any
// producer parked on it, without marking the whole disruptor closed.
func (s *Subscriber) release() {
	s.removed.Store(true)
	s.signal.Broadcast()
}

// markClosed is called by Disruptor.Close to release every producer still
// waiting on this subscriber.
func (s *Subscriber) markClosed() {
	s.closed.Store(true)
	s.signal.Broadcast()
}
