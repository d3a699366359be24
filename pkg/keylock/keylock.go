package keylock

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout is returned when the lock could not be acquired within the
// configured wait budget. Callers surface it as a retryable condition.
var ErrTimeout = errors.New("keylock: acquisition timed out")

// ResourceKey is the canonical lock key for a resource. Every writer that
// serializes on a resource must acquire through the same key.
func ResourceKey(resourceID uuid.UUID) string {
	return "resource:" + resourceID.String()
}

const (
	defaultWait    = 3 * time.Second
	defaultRetries = 3
	jitterWindow   = 50 * time.Millisecond
)

// Registry hands out exclusive locks keyed by an arbitrary string, typically a
// resource id. Locks for different keys never contend; acquisition for the
// same key is serialized in arrival order.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	wait    time.Duration
	retries int
	jitter  func() time.Duration
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Option tunes a Registry.
type Option func(*Registry)

// WithWait overrides the per-attempt wait budget.
func WithWait(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.wait = d
		}
	}
}

// WithRetries overrides how many attempts are made before giving up.
func WithRetries(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.retries = n
		}
	}
}

// NewRegistry builds a lock registry.
func NewRegistry(opts ...Option) *Registry {
	source := rand.New(rand.NewSource(time.Now().UnixNano()))
	var sourceMu sync.Mutex
	r := &Registry{
		entries: make(map[string]*entry),
		wait:    defaultWait,
		retries: defaultRetries,
		jitter: func() time.Duration {
			sourceMu.Lock()
			defer sourceMu.Unlock()
			return time.Duration(source.Int63n(int64(jitterWindow)))
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire blocks until the lock for key is held, the wait budget is exhausted,
// or ctx is done. On success the returned release function must be called
// exactly once.
func (r *Registry) Acquire(ctx context.Context, key string) (func(), error) {
	ent := r.checkout(key)

	for attempt := 0; attempt < r.retries; attempt++ {
		wait := r.wait + r.jitter()
		timer := time.NewTimer(wait)
		select {
		case ent.ch <- struct{}{}:
			timer.Stop()
			return func() { r.release(key, ent) }, nil
		case <-ctx.Done():
			timer.Stop()
			r.checkin(key, ent)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	r.checkin(key, ent)
	return nil, ErrTimeout
}

func (r *Registry) checkout(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent, ok := r.entries[key]
	if !ok {
		ent = &entry{ch: make(chan struct{}, 1)}
		r.entries[key] = ent
	}
	ent.refs++
	return ent
}

func (r *Registry) checkin(key string, ent *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent.refs--
	if ent.refs == 0 {
		delete(r.entries, key)
	}
}

func (r *Registry) release(key string, ent *entry) {
	<-ent.ch
	r.checkin(key, ent)
}
