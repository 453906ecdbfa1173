package disruptor

import "errors"

// Error kinds surfaced to callers. None are recovered internally; every
// blocking or registration call that cannot satisfy its contract returns
// one of these.
var (
	// ErrDisruptorClosed is returned by registration, publish and wait
	// operations attempted after Close, and by waits that Close releases.
	ErrDisruptorClosed = errors.New("disruptor: closed")

	// ErrPublisherAlreadyRegistered is returned by RegisterPublisher when a
	// publisher is already active; the core assumes exactly one producer.
	ErrPublisherAlreadyRegistered = errors.New("disruptor: publisher already registered")

	// ErrSubscriberNotFound is returned by RemoveSubscriber for an unknown
	// or already-removed subscriber.
	ErrSubscriberNotFound = errors.New("disruptor: subscriber not found")

	// ErrOutdatedSequence is returned by Get when the requested slot has
	// already been overwritten. It is diagnostic: the caller has lost data
	// and must resynchronize from Cursor.
	ErrOutdatedSequence = errors.New("disruptor: sequence outdated, slot overwritten")

	// ErrSequenceNotFound is returned by Get when the requested sequence
	// lies beyond the next sequence to be published.
	ErrSequenceNotFound = errors.New("disruptor: sequence not yet published")

	// ErrEmpty is returned by Cursor before anything has been published.
	ErrEmpty = errors.New("disruptor: nothing published yet")

	// ErrTimeout is returned by any blocking wait whose deadline elapsed
	// before its predicate was satisfied.
	ErrTimeout = errors.New("disruptor: timed out waiting")

	// ErrInvalidCapacity is returned by New when capacity is zero or not a
	// power of two.
	ErrInvalidCapacity = errors.New("disruptor: capacity must be a non-zero power of two")

	// ErrInvalidFactory is returned by New when the slot factory is nil.
	ErrInvalidFactory = errors.New("disruptor: factory must not be nil")
)
