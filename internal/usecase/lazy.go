package usecase

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loader yields a shared, read-only value.
type Loader[T any] interface {
	Get(ctx context.Context) (T, error)

	// Reset drops the shared value so the next Get loads it again.
	Reset()
}

// Lazy loads a value on first use. Concurrent first callers wait for a single
// load; a failed load is not remembered, so the next call tries again.
type Lazy[T any] struct {
	load func(context.Context) (T, error)
	mu   sync.Mutex
	val  atomic.Pointer[T]
}

func NewLazy[T any](load func(context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Ready wraps an already loaded value.
func Ready[T any](v T) *Lazy[T] {
	l := NewLazy(func(context.Context) (T, error) { return v, nil })
	l.val.Store(&v)
	return l
}

func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if p := l.val.Load(); p != nil {
		return *p, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if p := l.val.Load(); p != nil {
		return *p, nil
	}

	v, err := l.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.val.Store(&v)
	return v, nil
}

// Loaded reports whether a value is available without loading it.
func (l *Lazy[T]) Loaded() bool {
	return l.val.Load() != nil
}

// Reset drops the loaded value; the next Get loads again. Callers already
// holding the old value keep using it.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	l.val.Store(nil)
	l.mu.Unlock()
}
