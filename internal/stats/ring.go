// Package stats holds the fixed-size sample history used to smooth telemetry.
package stats

import "fmt"

// Float is the set of sample types a Ring can average.
type Float interface {
	~float32 | ~float64
}

// Ring keeps the last Cap() samples pushed into it; the oldest sample is
// overwritten once the ring is full.
type Ring[T Float] struct {
	samples []T
	next    int
	length  int
}

// NewRing creates an empty ring holding at most capacity samples.
func NewRing[T Float](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("stats: ring capacity must be positive, got %d", capacity))
	}
	return &Ring[T]{samples: make([]T, capacity)}
}

// Push appends a sample, evicting the oldest one when full.
func (r *Ring[T]) Push(sample T) {
	r.samples[r.next] = sample
	r.next = (r.next + 1) % len(r.samples)
	if r.length < len(r.samples) {
		r.length++
	}
}

func (r *Ring[T]) Len() int { return r.length }

func (r *Ring[T]) Cap() int { return len(r.samples) }

// Values returns the held samples, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.length)
	start := (r.next - r.length + len(r.samples)) % len(r.samples)
	for i := 0; i < r.length; i++ {
		out = append(out, r.samples[(start+i)%len(r.samples)])
	}
	return out
}

// ExponentialMovingAverage folds the samples newest to oldest, starting from
// y=0 with weight 1: y += w*(sample-y), then w *= alpha. The newest sample
// therefore fully seeds the average and older ones pull on it with decaying
// weight. An empty ring averages to zero.
func (r *Ring[T]) ExponentialMovingAverage(alpha float64) T {
	if !(alpha > 0 && alpha <= 1) {
		panic(fmt.Sprintf("stats: alpha must be in (0, 1], got %v", alpha))
	}

	var result T
	weight := 1.0
	index := r.next
	for i := 0; i < r.length; i++ {
		index = (index + len(r.samples) - 1) % len(r.samples)
		result += T(weight) * (r.samples[index] - result)
		weight *= alpha
	}
	return result
}
