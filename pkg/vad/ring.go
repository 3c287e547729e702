package vad

// ring is a fixed-capacity FIFO that evicts its oldest element when a push
// would exceed capacity. A zero-capacity ring discards every push.
type ring[T any] struct {
	buf  []T
	head int // index of the oldest element
	n    int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, max(capacity, 0))}
}

// Len returns the number of stored elements.
func (r *ring[T]) Len() int { return r.n }

// Cap returns the fixed capacity.
func (r *ring[T]) Cap() int { return len(r.buf) }

// Push appends v, evicting the oldest element when full.
func (r *ring[T]) Push(v T) {
	c := len(r.buf)
	if c == 0 {
		return
	}
	if r.n < c {
		r.buf[(r.head+r.n)%c] = v
		r.n++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % c
}

// At returns the i-th element counting from the oldest (0) to the newest
// (Len()-1).
func (r *ring[T]) At(i int) T {
	return r.buf[(r.head+i)%len(r.buf)]
}

// Drain returns the contents oldest-first and empties the ring. The returned
// slice is freshly allocated and owned by the caller.
func (r *ring[T]) Drain() []T {
	out := make([]T, r.n)
	for i := range r.n {
		out[i] = r.At(i)
	}
	r.Clear()
	return out
}

// Clear empties the ring without reallocating its storage.
func (r *ring[T]) Clear() {
	clear(r.buf)
	r.head = 0
	r.n = 0
}
