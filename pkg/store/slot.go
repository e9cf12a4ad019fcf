package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Slot is one named value read once per session and written back on every
// change. Saves issued before the first Load has finished are dropped so a
// transient default never overwrites what was stored.
type Slot[T any] struct {
	storage Storage
	key     string
	def     T
	decode  func(any) T

	once   sync.Once
	loaded atomic.Bool

	mu    sync.Mutex
	value T
}

func NewSlot[T any](s Storage, key string, def T, decode func(any) T) *Slot[T] {
	return &Slot[T]{
		storage: s,
		key:     key,
		def:     def,
		decode:  decode,
		value:   def,
	}
}

func (s *Slot[T]) Key() string { return s.key }

// Loaded reports whether the initial read has completed.
func (s *Slot[T]) Loaded() bool { return s.loaded.Load() }

// Load reads the stored value the first time it is called and returns the
// current value afterwards.
func (s *Slot[T]) Load(ctx context.Context) T {
	s.once.Do(func() {
		v := Load(ctx, s.storage, s.key, s.def, s.decode)
		s.mu.Lock()
		s.value = v
		s.loaded.Store(true)
		s.mu.Unlock()
	})
	return s.Value()
}

func (s *Slot[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Save writes v through and then makes it the current value. Before Load
// completes it returns ErrNotLoaded and leaves storage untouched; a failed
// write keeps the previous value.
func (s *Slot[T]) Save(ctx context.Context, v T) error {
	if !s.loaded.Load() {
		log.Debug("save suppressed until slot is loaded", "key", s.key)
		return ErrNotLoaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(ctx, s.storage, s.key, v); err != nil {
		return err
	}
	s.value = v
	return nil
}

// Update applies fn to the current value and saves the result. Nothing is
// written if fn fails.
func (s *Slot[T]) Update(ctx context.Context, fn func(T) (T, error)) (T, error) {
	if !s.loaded.Load() {
		return s.def, ErrNotLoaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.value)
	if err != nil {
		return s.value, err
	}
	if err := Save(ctx, s.storage, s.key, next); err != nil {
		return s.value, err
	}
	s.value = next
	return next, nil
}
