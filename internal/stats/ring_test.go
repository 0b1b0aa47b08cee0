package stats

import (
	"reflect"
	"testing"
)

func TestRing_ExponentialMovingAverage(t *testing.T) {
	ring := NewRing[float64](5)
	if got := ring.ExponentialMovingAverage(0.5); got != 0 {
		t.Fatalf("empty average = %v; want 0", got)
	}

	pushes := []float64{1, 2, 3, 4, 5}
	want := []float64{1.0, 1.5, 2.125, 3.125, 4.125}
	for i, sample := range pushes {
		ring.Push(sample)
		if got := ring.ExponentialMovingAverage(0.5); got != want[i] {
			t.Errorf("after push %v: average = %v; want %v", sample, got, want[i])
		}
	}
}

func TestRing_ExponentialMovingAverage_Wrapped(t *testing.T) {
	// capacity 3 keeps only the last three samples, so the result matches a
	// fresh ring fed with those three.
	wrapped := NewRing[float64](3)
	for _, s := range []float64{1, 2, 3, 4, 5} {
		wrapped.Push(s)
	}
	fresh := NewRing[float64](3)
	for _, s := range []float64{3, 4, 5} {
		fresh.Push(s)
	}
	if a, b := wrapped.ExponentialMovingAverage(0.5), fresh.ExponentialMovingAverage(0.5); a != b {
		t.Fatalf("wrapped average %v != fresh average %v", a, b)
	}
}

func TestRing_AlphaOneSettlesOnOldest(t *testing.T) {
	// With alpha=1 every step moves fully onto the next (older) sample.
	ring := NewRing[float32](4)
	for _, s := range []float32{10, 20, 30} {
		ring.Push(s)
	}
	if got := ring.ExponentialMovingAverage(1); got != 10 {
		t.Fatalf("alpha=1 average = %v; want oldest held sample 10", got)
	}
}

func TestRing_FIFOEviction(t *testing.T) {
	const capacity = 4
	ring := NewRing[float64](capacity)
	var pushed []float64
	for i := 1; i <= 11; i++ {
		ring.Push(float64(i))
		pushed = append(pushed, float64(i))

		if ring.Len() > capacity {
			t.Fatalf("len %d exceeds capacity %d", ring.Len(), capacity)
		}
		wantLen := min(i, capacity)
		if ring.Len() != wantLen {
			t.Fatalf("len = %d; want %d", ring.Len(), wantLen)
		}
		want := pushed[len(pushed)-wantLen:]
		if got := ring.Values(); !reflect.DeepEqual(got, want) {
			t.Fatalf("values after %d pushes = %v; want %v", i, got, want)
		}
	}
}

func TestRing_InvalidArguments(t *testing.T) {
	assertPanics(t, "zero capacity", func() { NewRing[float64](0) })
	ring := NewRing[float64](2)
	assertPanics(t, "alpha zero", func() { ring.ExponentialMovingAverage(0) })
	assertPanics(t, "alpha above one", func() { ring.ExponentialMovingAverage(1.01) })
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
