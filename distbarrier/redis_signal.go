// Package distbarrier provides a cross-process disruptor.Signal built on
// Redis pub/sub: the signalling half of the spec's multiproc variant.
//
// It never shares the ring's memory across processes — that remains out
// of scope (see SPEC_FULL.md's Non-goals) — it only lets a Disruptor's
// Subscribers and cursor broadcasts wake waiters running in a different
// OS process, which is the part of "multiproc" that actually differs from
// the in-process default.
package distbarrier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rishav/disruptor/disruptor"
)

// RedisSignalFactory mints disruptor.Signal values that broadcast across
// every process subscribed to the same channel prefix. Pass Factory to
// disruptor.WithSignalFactory so every Subscriber and the Disruptor's own
// cursor signal share the same Redis-backed wakeups.
type RedisSignalFactory struct {
	client *redis.Client
	prefix string
	seq    atomic.Uint64
}

// NewRedisSignalFactory builds a factory that mints signals as
// subchannels of prefix, e.g. "disruptor:orders".
func NewRedisSignalFactory(client *redis.Client, prefix string) *RedisSignalFactory {
	return &RedisSignalFactory{client: client, prefix: prefix}
}

// Factory adapts the RedisSignalFactory to disruptor.SignalFactory.
func (f *RedisSignalFactory) Factory() disruptor.SignalFactory { return f.new }

func (f *RedisSignalFactory) new() disruptor.Signal {
	n := f.seq.Add(1)
	channel := fmt.Sprintf("%s:%d", f.prefix, n)
	return newRedisSignal(f.client, channel)
}

// redisSignal implements disruptor.Signal by publishing a message on
// Broadcast and re-arming a fresh local generation channel whenever its
// subscription delivers one.
type redisSignal struct {
	client  *redis.Client
	channel string

	mu  sync.Mutex
	gen chan struct{}
}

func newRedisSignal(client *redis.Client, channel string) *redisSignal {
	s := &redisSignal{client: client, channel: channel, gen: make(chan struct{})}
	go s.listen()
	return s
}

func (s *redisSignal) listen() {
	ctx := context.Background()
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	for range sub.Channel() {
		s.mu.Lock()
		old := s.gen
		s.gen = make(chan struct{})
		s.mu.Unlock()
		close(old)
	}
}

func (s *redisSignal) Wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *redisSignal) Broadcast() {
	// Best-effort: a lost publish only delays a waiter's wake, it never
	// causes a missed event since every waiter rechecks its predicate
	// against shared state (the ring's cursor or a subscriber's sequence)
	// after every wake, not against this signal alone.
	s.client.Publish(context.Background(), s.channel, "x")
}
