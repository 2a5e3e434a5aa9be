package sizedheap

import (
	"sort"
	"testing"

	"github.com/mehulsinghal/entropic/pkg/distance"
)

// TestBoundedEviction tests that a full heap keeps only the k best entries.
func TestBoundedEviction(t *testing.T) {
	h := New[int, float64](3)
	for i, d := range []float64{5, 1, 4, 2, 3} {
		h.Push(i, d)
	}

	if h.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", h.Len())
	}

	dists := drainDistances(h)
	want := []float64{1, 2, 3}
	for i, d := range dists {
		if d != want[i] {
			t.Fatalf("kept distances %v, want %v", dists, want)
		}
	}
}

// TestPushWorseIsNoOp tests that a worse element never displaces a kept one.
func TestPushWorseIsNoOp(t *testing.T) {
	h := New[string, int](2)
	h.Push("a", 1)
	h.Push("b", 2)
	h.Push("c", 99)

	if h.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", h.Len())
	}
	worst, _ := h.Peek()
	if worst.Dist != 2 {
		t.Errorf("worst = %v, want 2", worst.Dist)
	}

	// Equal to the worst is also a no-op.
	h.Push("d", 2)
	worst, _ = h.Peek()
	if worst.Key != "b" {
		t.Errorf("equal push must not displace, worst key = %q", worst.Key)
	}
}

// TestUnbounded tests plain max-heap behavior without a capacity.
func TestUnbounded(t *testing.T) {
	h := NewUnbounded[int, int]()
	for i := 0; i < 100; i++ {
		h.Push(i, i)
	}
	if h.IsFull() {
		t.Error("unbounded heap must never be full")
	}
	if h.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", h.Len())
	}

	worst, ok := h.Pop()
	if !ok || worst.Dist != 99 {
		t.Errorf("popped %v, want the worst entry 99", worst.Dist)
	}
}

// TestZeroCapacity tests that a zero-capacity heap accepts nothing.
func TestZeroCapacity(t *testing.T) {
	h := New[int, int](0)
	h.Push(1, 1)
	if !h.IsEmpty() {
		t.Error("zero-capacity heap must stay empty")
	}
	if !h.IsFull() {
		t.Error("zero-capacity heap is always full")
	}
}

// TestExtendAndMerge tests bulk insertion across two heaps.
func TestExtendAndMerge(t *testing.T) {
	a := New[int, int](4)
	a.Extend([]Entry[int, int]{{1, 10}, {2, 20}, {3, 30}})

	b := New[int, int](4)
	b.Extend([]Entry[int, int]{{4, 5}, {5, 25}, {6, 15}})

	a.Merge(b)
	if a.Len() != 4 {
		t.Fatalf("expected 4 entries after merge, got %d", a.Len())
	}

	dists := drainDistances(a)
	want := []int{5, 10, 15, 20}
	for i, d := range dists {
		if d != want[i] {
			t.Fatalf("kept distances %v, want %v", dists, want)
		}
	}
}

// TestPopOrder tests that Pop always removes the current worst.
func TestPopOrder(t *testing.T) {
	h := New[int, float64](5)
	for i, d := range []float64{0.3, 0.1, 0.5, 0.2, 0.4} {
		h.Push(i, d)
	}

	prev := 1.0
	for !h.IsEmpty() {
		e, _ := h.Pop()
		if e.Dist > prev {
			t.Fatalf("pop order not non-increasing: %v after %v", e.Dist, prev)
		}
		prev = e.Dist
	}
}

func drainDistances[A any, U distance.Value](h *Heap[A, U]) []U {
	entries := h.TakeItems()
	dists := make([]U, len(entries))
	for i, e := range entries {
		dists[i] = e.Dist
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i] < dists[j] })
	return dists
}
