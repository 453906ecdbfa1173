// Package disruptor implements the core of an LMAX-style Disruptor: a
// bounded, single-producer / multi-subscriber ring buffer for low-latency
// event hand-off between cooperating goroutines (or, with a process-shared
// SignalFactory, cooperating processes).
//
// Producers publish events into a fixed-capacity circular array; every
// subscriber consumes every event in publication order. The ring never
// overwrites a slot a lagging subscriber has not yet acknowledged —
// publishers block instead. Subscribers that have caught up with the
// cursor block until the next event is published.
//
// The payload stored in each slot, any benchmarking harness, and
// multi-producer arbitration are all out of scope: New is generic over
// the slot type and invokes exactly one producer-side contract
// (RegisterPublisher) at a time.
package disruptor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Disruptor is the ring buffer core: storage, cursor, subscriber
// registry, and the publish / wait_for protocols.
type Disruptor[S any] struct {
	capacity uint64
	mask     uint64
	ring     []S

	nextSequence atomic.Int64 // next sequence to be assigned; read with acquire semantics via atomic load

	mu                  sync.Mutex // protects subscribers and publisherRegistered only; never held across a callback or a blocking wait
	subscribers         map[uuid.UUID]*Subscriber
	publisherRegistered bool

	closed       atomic.Bool
	cursorSignal Signal // broadcast whenever nextSequence advances, and once more on Close

	cfg config
}

// New allocates a Disruptor of the given capacity, invoking factory once
// per slot. capacity must be a non-zero power of two.
func New[S any](capacity uint64, factory func() S, opts ...Option) (*Disruptor[S], error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, ErrInvalidCapacity
	}
	if factory == nil {
		return nil, ErrInvalidFactory
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ring := make([]S, capacity)
	for i := range ring {
		ring[i] = factory()
	}

	d := &Disruptor[S]{
		capacity:     capacity,
		mask:         capacity - 1,
		ring:         ring,
		subscribers:  make(map[uuid.UUID]*Subscriber),
		cursorSignal: cfg.signalFactory(),
		cfg:          cfg,
	}
	return d, nil
}

// PublishHandle is returned by RegisterPublisher. Its Publish method is
// the core's publish_event operation; only the producer holding the
// handle may call it, enforcing the single-producer invariant.
type PublishHandle[S any] struct {
	d *Disruptor[S]
}

// Publish mutates the next slot via cb and advances the cursor. See
// Disruptor.publishEvent for the full contract.
func (p *PublishHandle[S]) Publish(cb func(slot S, seq Sequence), timeout time.Duration) error {
	return p.d.publishEvent(cb, timeout)
}

// RegisterPublisher claims the single producer slot. Fails with
// ErrDisruptorClosed if closed, ErrPublisherAlreadyRegistered if a
// producer is already registered.
func (d *Disruptor[S]) RegisterPublisher() (*PublishHandle[S], error) {
	if d.closed.Load() {
		return nil, ErrDisruptorClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return nil, ErrDisruptorClosed
	}
	if d.publisherRegistered {
		return nil, ErrPublisherAlreadyRegistered
	}
	d.publisherRegistered = true
	return &PublishHandle[S]{d: d}, nil
}

// RegisterSubscriber creates and tracks a new Subscriber starting at the
// sentinel "nothing acknowledged yet" position. A subscriber registered
// after publishes have occurred still starts there; its first
// WaitFor(0, ...) returns immediately once sequence 0 exists, but Get may
// then report ErrOutdatedSequence if the ring has already wrapped past it
// — a known caveat inherited from the source, not a bug.
func (d *Disruptor[S]) RegisterSubscriber() (*Subscriber, error) {
	if d.closed.Load() {
		return nil, ErrDisruptorClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return nil, ErrDisruptorClosed
	}

	sub := newSubscriber(d.cfg.signalFactory)
	d.subscribers[sub.id] = sub
	d.cfg.metrics.SubscriberRegistered()
	d.cfg.logger.Debug("subscriber registered", zap.Stringer("subscriber_id", sub.id))
	return sub, nil
}

// RemoveSubscriber unregisters sub and releases any producer currently
// blocked waiting for it to advance, so removal can never deadlock a
// publisher. Fails with ErrSubscriberNotFound if sub is not registered
// (or was already removed).
func (d *Disruptor[S]) RemoveSubscriber(sub *Subscriber) error {
	d.mu.Lock()
	_, ok := d.subscribers[sub.id]
	if ok {
		delete(d.subscribers, sub.id)
	}
	d.mu.Unlock()

	if !ok {
		return ErrSubscriberNotFound
	}

	sub.release()
	d.cfg.metrics.SubscriberRemoved()
	d.cfg.logger.Debug("subscriber removed", zap.Stringer("subscriber_id", sub.id))
	return nil
}

// Get returns the slot at seq. With next the sequence the producer will
// publish next, it fails with ErrOutdatedSequence if seq < next-capacity
// (the slot has been overwritten) and with ErrSequenceNotFound if
// seq > next. seq == next, the slot the producer fills next, is returned
// without error. Callers must have observed WaitFor(seq, ...) succeed
// before calling Get.
func (d *Disruptor[S]) Get(seq Sequence) (S, error) {
	var zero S
	next := Sequence(d.nextSequence.Load())
	if seq < next-Sequence(d.capacity) {
		return zero, ErrOutdatedSequence
	}
	if seq > next {
		return zero, ErrSequenceNotFound
	}
	return d.ring[seq.index(d.mask)], nil
}

// publishEvent is the producer-side protocol: compute the next sequence,
// block on any subscriber a full lap behind, invoke cb, then publish.
//
// timeout == 0 checks backpressure once and returns ErrTimeout
// immediately if blocked; timeout < 0 (NoTimeout) waits indefinitely;
// timeout > 0 waits up to that duration in total across every gating
// subscriber.
func (d *Disruptor[S]) publishEvent(cb func(slot S, seq Sequence), timeout time.Duration) error {
	if d.closed.Load() {
		return ErrDisruptorClosed
	}

	deadline := deadlineFor(timeout)

	s := Sequence(d.nextSequence.Load())
	threshold := s - Sequence(d.capacity)

	d.mu.Lock()
	gating := make([]*Subscriber, 0, len(d.subscribers))
	for _, sub := range d.subscribers {
		gating = append(gating, sub)
	}
	d.mu.Unlock()

	for _, sub := range gating {
		if sub.current() <= threshold {
			if err := sub.WaitUntilPassed(threshold, deadline); err != nil {
				if err == ErrTimeout {
					d.cfg.metrics.PublishTimedOut()
				}
				return err
			}
		}
	}

	if d.closed.Load() {
		return ErrDisruptorClosed
	}

	cb(d.ring[s.index(d.mask)], s)

	// Release-store: makes the callback's writes visible to any
	// subscriber that subsequently observes nextSequence.
	d.nextSequence.Store(int64(s + 1))
	d.cursorSignal.Broadcast()
	d.cfg.metrics.PublishSucceeded(s)
	return nil
}

// WaitFor blocks the calling subscriber until seq has been published, the
// Disruptor closes, or timeout elapses. See publishEvent for the timeout
// convention.
func (d *Disruptor[S]) WaitFor(seq Sequence, timeout time.Duration) (Sequence, error) {
	if d.closed.Load() {
		return 0, ErrDisruptorClosed
	}

	deadline := deadlineFor(timeout)

	for {
		// Grab the current generation's channel before re-checking the
		// predicate: Broadcast is only guaranteed to wake waiters already
		// parked on the channel it closes, so arming the wait after the
		// check would miss a publish that lands in between.
		ch := d.cursorSignal.Wait()

		if next := Sequence(d.nextSequence.Load()); seq < next {
			return seq, nil
		}
		if d.closed.Load() {
			return 0, ErrDisruptorClosed
		}

		if deadline.IsZero() {
			<-ch
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return d.waitForTimeoutOrReady(seq)
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return d.waitForTimeoutOrReady(seq)
		}
	}
}

func (d *Disruptor[S]) waitForTimeoutOrReady(seq Sequence) (Sequence, error) {
	if next := Sequence(d.nextSequence.Load()); seq < next {
		return seq, nil
	}
	if d.closed.Load() {
		return 0, ErrDisruptorClosed
	}
	return 0, ErrTimeout
}

// Cursor returns the highest published sequence. Fails with ErrEmpty
// before anything has been published.
func (d *Disruptor[S]) Cursor() (Sequence, error) {
	next := Sequence(d.nextSequence.Load())
	if next == 0 {
		return 0, ErrEmpty
	}
	return next - 1, nil
}

// IsClosed reports whether Close has been called.
func (d *Disruptor[S]) IsClosed() bool { return d.closed.Load() }

// Close is the single authoritative teardown signal. It releases every
// blocked waiter — producer-side subscriber barriers and subscriber-side
// cursor waits alike — with ErrDisruptorClosed. Calling Close more than
// once is a no-op.
func (d *Disruptor[S]) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.mu.Lock()
	subs := make([]*Subscriber, 0, len(d.subscribers))
	for _, sub := range d.subscribers {
		subs = append(subs, sub)
	}
	d.mu.Unlock()

	for _, sub := range subs {
		sub.markClosed()
	}
	d.cursorSignal.Broadcast()

	d.cfg.metrics.Closed()
	d.cfg.logger.Info("disruptor closed")
}

// NoTimeout, passed to Publish or WaitFor, waits indefinitely rather than
// timing out.
const NoTimeout time.Duration = -1

// deadlineFor turns the Publish/WaitFor timeout convention into a
// deadline: zero time.Time means "wait forever".
func deadlineFor(timeout time.Duration) time.Time {
	if timeout < 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}
