package disruptor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intFactory() func() *Cell[int] {
	return NewCellFactory[int]()
}

func TestBasicFIFO(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)

	sub, err := d.RegisterSubscriber()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	sum := 0
	go func() {
		defer wg.Done()
		for i := Sequence(0); i < 10; i++ {
			seq, err := d.WaitFor(i, NoTimeout)
			require.NoError(t, err)
			slot, err := d.Get(seq)
			require.NoError(t, err)
			sum += slot.Read()
			sub.UpdateSequence(seq)
		}
	}()

	for i := 0; i < 10; i++ {
		err := pub.Publish(func(slot *Cell[int], seq Sequence) {
			slot.Write(i)
		}, NoTimeout)
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, 45, sum)
}

func TestSlowSubscriberBackpressure(t *testing.T) {
	d, err := New(2, intFactory())
	require.NoError(t, err)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)

	require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) { slot.Write(0) }, NoTimeout))
	require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) { slot.Write(1) }, NoTimeout))

	sub, err := d.RegisterSubscriber()
	require.NoError(t, err)

	seq, err := d.WaitFor(0, NoTimeout)
	require.NoError(t, err)
	sub.UpdateSequence(seq)

	// Capacity 2, subscriber has acknowledged only sequence 0, so it has not
	// yet passed 0 (that needs a current sequence above 0): publishing
	// sequence 2 would reuse slot 0 before the subscriber has passed it.
	err = pub.Publish(func(slot *Cell[int], seq Sequence) { slot.Write(2) }, 0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWaitForTimeoutOnEmpty(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)
	require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) { slot.Write(0) }, NoTimeout))

	sub, err := d.RegisterSubscriber()
	require.NoError(t, err)

	seq, err := d.WaitFor(0, NoTimeout)
	require.NoError(t, err)
	sub.UpdateSequence(seq)

	_, err = d.WaitFor(1, 0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCloseReleasesEveryWaiter(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)
	_, err = d.RegisterSubscriber()
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := d.WaitFor(10, NoTimeout)
		errs <- err
	}()
	go func() {
		defer wg.Done()
		// Publish until the producer gates on the subscriber: with nothing
		// acknowledged, the fourth publish (sequence 3) blocks until Close
		// releases it. Then make one more publish attempt after Close.
		for i := 0; i < 4; i++ {
			_ = pub.Publish(func(slot *Cell[int], seq Sequence) {}, NoTimeout)
		}
		errs <- pub.Publish(func(slot *Cell[int], seq Sequence) {}, NoTimeout)
	}()

	time.Sleep(20 * time.Millisecond) // let both goroutines reach their blocking wait
	d.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not release blocked waiters within the deadline")
	}
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrDisruptorClosed)
	}
}

func TestClosedDisruptorRejectsEverything(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)
	d.Close()

	_, err = d.RegisterPublisher()
	assert.ErrorIs(t, err, ErrDisruptorClosed)

	_, err = d.RegisterSubscriber()
	assert.ErrorIs(t, err, ErrDisruptorClosed)

	_, err = d.WaitFor(0, 0)
	assert.ErrorIs(t, err, ErrDisruptorClosed)
}

func TestDoublePublisherRegistration(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)

	_, err = d.RegisterPublisher()
	require.NoError(t, err)

	_, err = d.RegisterPublisher()
	assert.ErrorIs(t, err, ErrPublisherAlreadyRegistered)
}

func TestInvalidCapacity(t *testing.T) {
	_, err := New(5, intFactory())
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(0, intFactory())
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestInvalidFactory(t *testing.T) {
	_, err := New[*Cell[int]](4, nil)
	assert.ErrorIs(t, err, ErrInvalidFactory)
}

func TestCursorStartsEmptyAndIsMonotonic(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)

	_, err = d.Cursor()
	assert.ErrorIs(t, err, ErrEmpty)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)

	var last Sequence = -1
	for i := 0; i < 4; i++ {
		require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) { slot.Write(i) }, NoTimeout))
		cur, err := d.Cursor()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cur, last)
		last = cur
	}
}

func TestIndexIdentityAcrossLaps(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)
	assert.Equal(t, Sequence(0).index(d.mask), Sequence(4).index(d.mask))
	assert.Equal(t, Sequence(1).index(d.mask), Sequence(5).index(d.mask))
}

func TestGetOutdatedAndNotFound(t *testing.T) {
	d, err := New(2, intFactory())
	require.NoError(t, err)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)

	// No subscriber is registered, so nothing gates the producer: it may
	// freely lap the ring.
	for i := 0; i < 3; i++ {
		require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) { slot.Write(i) }, NoTimeout))
	}

	_, err = d.Get(0)
	assert.ErrorIs(t, err, ErrOutdatedSequence)

	_, err = d.Get(4)
	assert.ErrorIs(t, err, ErrSequenceNotFound)
}

func TestRemoveSubscriberUnblocksProducer(t *testing.T) {
	d, err := New(2, intFactory())
	require.NoError(t, err)

	pub, err := d.RegisterPublisher()
	require.NoError(t, err)

	require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) {}, NoTimeout))
	require.NoError(t, pub.Publish(func(slot *Cell[int], seq Sequence) {}, NoTimeout))

	sub, err := d.RegisterSubscriber()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- pub.Publish(func(slot *Cell[int], seq Sequence) {}, NoTimeout)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, d.RemoveSubscriber(sub))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RemoveSubscriber did not unblock the producer")
	}
}

func TestRemoveUnknownSubscriber(t *testing.T) {
	d, err := New(4, intFactory())
	require.NoError(t, err)
	sub := newSubscriber(defaultSignalFactory)
	err = d.RemoveSubscriber(sub)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}
