// Package flight coalesces concurrent loads of the same key and keeps the
// results around for a while.
package flight

import (
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// Cache runs load once per key no matter how many callers ask at the same
// time. Results are held strongly for the hold duration and weakly after
// that, so a value still referenced elsewhere is served without reloading.
type Cache[K comparable, V any] struct {
	mu      *sync.Mutex
	done    map[K]*entry[V]
	loading map[K]*call[V]

	load func(K) (V, error)

	// hold is the strong-hold duration in nanoseconds; <= 0 keeps values forever.
	hold *atomic.Int64
}

type entry[V any] struct {
	weak     weak.Pointer[V]
	strong   *V
	deadline time.Time
}

type call[V any] struct {
	val  V
	err  error
	done chan struct{}

	// forgotten is set under mu by Forget; the result still reaches the
	// callers waiting on it but is not kept.
	forgotten bool
}

func NewCache[K comparable, V any](load func(K) (V, error)) Cache[K, V] {
	var hold atomic.Int64
	hold.Store(int64(time.Hour))
	return Cache[K, V]{
		mu:      new(sync.Mutex),
		done:    make(map[K]*entry[V]),
		loading: make(map[K]*call[V]),
		load:    load,
		hold:    &hold,
	}
}

// Expiry sets how long future results are held strongly. d <= 0 holds them
// for good.
func (c *Cache[K, V]) Expiry(d time.Duration) {
	c.hold.Store(max(int64(d), 0))
}

// Get returns the cached value for k, joining an in-flight load or starting
// one. Failed loads are not cached.
func (c *Cache[K, V]) Get(k K) (V, error) {
	c.mu.Lock()
	if v, ok := c.cached(k); ok {
		c.mu.Unlock()
		return v, nil
	}
	if pending, ok := c.loading[k]; ok {
		c.mu.Unlock()
		<-pending.done
		return pending.val, pending.err
	}

	cl := &call[V]{done: make(chan struct{})}
	c.loading[k] = cl
	c.mu.Unlock()

	cl.val, cl.err = c.load(k)

	c.mu.Lock()
	if cl.err == nil && !cl.forgotten {
		c.store(k, cl.val)
	}
	if c.loading[k] == cl {
		delete(c.loading, k)
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.val, cl.err
}

// Forget drops a finished result so the next Get loads again. A load already
// running still answers its callers, but its result is not cached.
func (c *Cache[K, V]) Forget(k K) {
	c.mu.Lock()
	delete(c.done, k)
	if pending, ok := c.loading[k]; ok {
		pending.forgotten = true
		delete(c.loading, k)
	}
	c.mu.Unlock()
}

// cached must be called with mu held.
func (c *Cache[K, V]) cached(k K) (V, bool) {
	var zero V
	e, ok := c.done[k]
	if !ok {
		return zero, false
	}
	if e.strong != nil && !e.deadline.IsZero() && time.Now().After(e.deadline) {
		e.strong = nil
	}
	vp := e.weak.Value()
	if vp == nil {
		delete(c.done, k)
		return zero, false
	}
	return *vp, true
}

// store must be called with mu held.
func (c *Cache[K, V]) store(k K, val V) {
	v := new(V)
	*v = val

	e := &entry[V]{weak: weak.Make(v), strong: v}
	if d := time.Duration(c.hold.Load()); d > 0 {
		e.deadline = time.Now().Add(d)
	}
	c.done[k] = e
}
