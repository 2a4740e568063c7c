// Package keylock implements a keyed lock table: one mutual-exclusion handle
// per key, created lazily and shared by every goroutine that asks for the
// same key.
//
// Each handle is a single-slot semaphore, so waiting for it honours a
// context. Handles are reference counted under their shard's mutex and are
// dropped once nobody holds or waits on them. Creation and removal happen
// under the same mutex, so at most one handle exists for a key at any time.
//
// Goroutines locking different keys never block each other beyond the short
// shard critical section.
package keylock

import (
	"context"
	"hash/maphash"
	"sync"
)

// DefaultShards is the number of independently guarded partitions of the table.
const DefaultShards = 32

// Locker is a table of per-key locks. The zero value is not usable; call New.
type Locker struct {
	seed   maphash.Seed
	shards []shard
}

type shard struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// handle is the lock for a single key.
type handle struct {
	sem  chan struct{}
	refs int // holders plus waiters, guarded by shard.mu
}

// New creates a Locker with DefaultShards shards.
func New() *Locker {
	return NewSharded(DefaultShards)
}

// NewSharded creates a Locker with n shards (minimum 1).
func NewSharded(n int) *Locker {
	if n <= 0 {
		n = 1
	}
	l := &Locker{
		seed:   maphash.MakeSeed(),
		shards: make([]shard, n),
	}
	for i := range l.shards {
		l.shards[i].handles = make(map[string]*handle)
	}
	return l
}

func (l *Locker) shardFor(key string) *shard {
	return &l.shards[maphash.String(l.seed, key)%uint64(len(l.shards))]
}

// acquireRef returns the handle for key, creating it if needed, and counts
// the caller as a referent.
func (s *shard) acquireRef(key string) *handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[key]
	if !ok {
		h = &handle{sem: make(chan struct{}, 1)}
		s.handles[key] = h
	}
	h.refs++
	return h
}

// releaseRef drops the caller's reference and removes the handle when unused.
func (s *shard) releaseRef(key string, h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h.refs--
	if h.refs == 0 {
		delete(s.handles, key)
	}
}

// Lock blocks until the lock for key is held or ctx is done.
//
// On success it returns an unlock function that must be called exactly once;
// extra calls are ignored. On failure it returns ctx.Err() and holds nothing.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := l.shardFor(key)
	h := s.acquireRef(key)

	select {
	case h.sem <- struct{}{}:
		return l.unlocker(s, key, h), nil
	case <-ctx.Done():
		s.releaseRef(key, h)
		return nil, ctx.Err()
	}
}

// TryLock attempts to take the lock for key without blocking.
// Returns the unlock function and true if the lock was acquired.
func (l *Locker) TryLock(key string) (func(), bool) {
	s := l.shardFor(key)
	h := s.acquireRef(key)

	select {
	case h.sem <- struct{}{}:
		return l.unlocker(s, key, h), true
	default:
		s.releaseRef(key, h)
		return nil, false
	}
}

func (l *Locker) unlocker(s *shard, key string, h *handle) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-h.sem
			s.releaseRef(key, h)
		})
	}
}

// Len returns the number of keys that currently have a live handle.
func (l *Locker) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.handles)
		s.mu.Unlock()
	}
	return n
}
