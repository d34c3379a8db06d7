package metrics

// Ring is a fixed-capacity FIFO buffer. Appending to a full ring evicts the
// oldest element. It is not safe for concurrent use.
type Ring[T any] struct {
	values []T
	start  int
	count  int
}

// NewRing creates a ring holding at most size elements
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{values: make([]T, size)}
}

// Push appends v, evicting the oldest element when full
func (r *Ring[T]) Push(v T) {
	size := len(r.values)
	if r.count < size {
		r.values[(r.start+r.count)%size] = v
		r.count++
		return
	}
	r.values[r.start] = v
	r.start = (r.start + 1) % size
}

// Len returns the number of stored elements
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return len(r.values)
}

// At returns the i-th element, oldest first
func (r *Ring[T]) At(i int) T {
	return r.values[(r.start+i)%len(r.values)]
}

// Last returns the newest element
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.At(r.count - 1), true
}

// Tail returns up to n of the newest elements, oldest first. n <= 0 returns all.
func (r *Ring[T]) Tail(n int) []T {
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]T, n)
	offset := r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.At(offset + i)
	}
	return out
}

// DropWhile removes elements from the front while drop reports true and
// returns the count removed.
func (r *Ring[T]) DropWhile(drop func(T) bool) int {
	var zero T
	removed := 0
	for r.count > 0 && drop(r.values[r.start]) {
		r.values[r.start] = zero
		r.start = (r.start + 1) % len(r.values)
		r.count--
		removed++
	}
	return removed
}
