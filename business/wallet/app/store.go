package app

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

// subscription is one registered observer.
type subscription struct {
	fn         func(domain.ConnectionSnapshot)
	mu         sync.Mutex // held while fn runs
	active     atomic.Bool
	delivering atomic.Bool
}

func (s *subscription) deliver(snap domain.ConnectionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active.Load() {
		return
	}

	s.delivering.Store(true)
	defer s.delivering.Store(false)
	s.fn(snap)
}

func (s *subscription) deactivate() {
	// From inside its own callback the lock is already held; flipping the
	// flag is enough because the running call started before deregistration.
	if s.delivering.Load() {
		s.active.Store(false)
		return
	}
	s.mu.Lock()
	s.active.Store(false)
	s.mu.Unlock()
}

// Store holds the current ConnectionSnapshot and fans out every update to
// its subscribers in registration order.
//
// Updates are delivered by a single dispatcher at a time: a publish made
// from inside a callback (or concurrently from another goroutine) is queued
// and delivered by the active dispatcher right after the current one, so
// every subscriber sees snapshots in publish order.
type Store struct {
	mu          sync.Mutex
	current     domain.ConnectionSnapshot
	version     uint64
	subs        []*subscription
	queue       []domain.ConnectionSnapshot
	dispatching bool
	publishes   atomic.Uint64
}

// NewStore creates a store holding the disconnected snapshot.
func NewStore() *Store {
	return &Store{
		current: domain.Disconnected(),
	}
}

// Snapshot returns the current value.
func (s *Store) Snapshot() domain.ConnectionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers fn for every future publish. The returned func
// deregisters it; no call to fn starts after it returns. It is safe to call
// more than once and from inside any callback.
func (s *Store) Subscribe(fn func(domain.ConnectionSnapshot)) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.deactivate()

			s.mu.Lock()
			s.subs = slices.DeleteFunc(s.subs, func(x *subscription) bool { return x == sub })
			s.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of registered subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// PublishCount returns how many snapshots have been published.
func (s *Store) PublishCount() uint64 {
	return s.publishes.Load()
}

// publish replaces the current snapshot and notifies every subscriber.
func (s *Store) publish(snap domain.ConnectionSnapshot) domain.ConnectionSnapshot {
	snap = s.stage(snap)
	s.flush()
	return snap
}

// stage makes snap current and queues it for delivery without running any
// callback. Callers holding their own locks use stage, then flush after
// releasing them.
func (s *Store) stage(snap domain.ConnectionSnapshot) domain.ConnectionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	snap.Version = s.version
	s.current = snap
	s.queue = append(s.queue, snap)
	s.publishes.Add(1)
	return snap
}

// flush delivers queued snapshots unless another dispatcher is already
// running, in which case that dispatcher picks them up.
func (s *Store) flush() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.queue) > 0 {
		snap := s.queue[0]
		s.queue = s.queue[1:]
		subs := slices.Clone(s.subs)
		s.mu.Unlock()

		for _, sub := range subs {
			sub.deliver(snap)
		}

		s.mu.Lock()
	}

	s.dispatching = false
	s.mu.Unlock()
}
