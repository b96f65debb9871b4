package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Bounded single producer / single consumer queue.
 *
 * Description:	Used for every hand off between the audio callback and
 *		the other goroutines so the callback never takes a lock.
 *
 *		Positions are absolute 64 bit counts of items ever
 *		written and read.  They never wrap in practice, which
 *		lets a consumer discard up to a position recorded
 *		earlier.
 *
 *		Exactly one goroutine may call the producer methods
 *		(Push, PushSlice, Free, WritePos) and exactly one the
 *		consumer methods (Pop, PopSlice, Len, DiscardTo).
 *
 *---------------------------------------------------------------*/

import (
	"sync/atomic"
)

type Ring[T any] struct {
	buf  []T
	mask int64

	head atomic.Int64 // Next position to be written.
	tail atomic.Int64 // Next position to be read.
}

// NewRing rounds size up to a power of two.
func NewRing[T any](size int) *Ring[T] {
	var n = 1
	for n < size {
		n <<= 1
	}
	return &Ring[T]{buf: make([]T, n), mask: int64(n - 1)}
}

func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Len is the number of items waiting.  Safe from either side.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Free is the room left for the producer.
func (r *Ring[T]) Free() int {
	return len(r.buf) - r.Len()
}

func (r *Ring[T]) WritePos() int64 {
	return r.head.Load()
}

func (r *Ring[T]) ReadPos() int64 {
	return r.tail.Load()
}

// Push returns false when full.
func (r *Ring[T]) Push(v T) bool {
	var h = r.head.Load()
	if h-r.tail.Load() >= int64(len(r.buf)) {
		return false
	}
	r.buf[h&r.mask] = v
	r.head.Store(h + 1)
	return true
}

// PushSlice writes all of vs or nothing.
func (r *Ring[T]) PushSlice(vs []T) bool {
	var h = r.head.Load()
	if int64(len(r.buf))-(h-r.tail.Load()) < int64(len(vs)) {
		return false
	}
	for i, v := range vs {
		r.buf[(h+int64(i))&r.mask] = v
	}
	r.head.Store(h + int64(len(vs)))
	return true
}

func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	var t = r.tail.Load()
	if t == r.head.Load() {
		return zero, false
	}
	var v = r.buf[t&r.mask]
	r.buf[t&r.mask] = zero
	r.tail.Store(t + 1)
	return v, true
}

// PopSlice copies up to len(dst) items and returns the count.
func (r *Ring[T]) PopSlice(dst []T) int {
	var t = r.tail.Load()
	var n = int(r.head.Load() - t)
	if n > len(dst) {
		n = len(dst)
	}
	for i := range n {
		dst[i] = r.buf[(t+int64(i))&r.mask]
	}
	r.tail.Store(t + int64(n))
	return n
}

// DiscardTo drops everything before pos, or everything written so far
// if pos is beyond it.  Returns the number dropped.
func (r *Ring[T]) DiscardTo(pos int64) int {
	var t = r.tail.Load()
	var h = r.head.Load()
	if pos > h {
		pos = h
	}
	if pos <= t {
		return 0
	}
	var zero T
	for p := t; p < pos; p++ {
		r.buf[p&r.mask] = zero
	}
	r.tail.Store(pos)
	return int(pos - t)
}

/* end ring.go */
