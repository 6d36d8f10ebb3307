package filterchain

// Lazy is a memoizing supplier with explicit invalidation. It backs the
// chain-level composite cache: the compute function is invoked at most once
// between invalidations, and a compute error is not cached.
//
// Lazy is not safe for concurrent use; it belongs to the chain's owning
// goroutine like the rest of the mutable chain state.
type Lazy[T any] struct {
	compute func() (T, error)
	value   T
	valid   bool
}

// NewLazy creates a Lazy around compute.
func NewLazy[T any](compute func() (T, error)) *Lazy[T] {
	return &Lazy[T]{compute: compute}
}

// Get returns the memoized value, computing it first if needed.
func (l *Lazy[T]) Get() (T, error) {
	if l.valid {
		return l.value, nil
	}
	v, err := l.compute()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.valid = true
	return v, nil
}

// Invalidate discards the memoized value so the next Get recomputes it.
func (l *Lazy[T]) Invalidate() {
	var zero T
	l.value = zero
	l.valid = false
}

// Valid reports whether a memoized value is currently held.
func (l *Lazy[T]) Valid() bool {
	return l.valid
}
