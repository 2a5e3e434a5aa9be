// Package sizedheap provides a max-heap with an optional fixed capacity,
// used as a k-best reservoir by the search algorithms.
package sizedheap

import (
	"container/heap"

	"github.com/mehulsinghal/entropic/pkg/distance"
)

// Entry is a key-value pair stored in the heap. The heap orders by Dist
// only; Key carries the associated data and never affects ordering.
type Entry[A any, U distance.Value] struct {
	Key  A
	Dist U
}

// Heap is a max-heap of entries ordered by distance, so the worst element
// is always on top. With a capacity k set, pushing onto a full heap with a
// better element evicts the current worst, and pushing a worse (or equal)
// element is a no-op. Without a capacity it behaves as a plain max-heap.
//
// The zero value is not usable; construct with New or NewUnbounded.
type Heap[A any, U distance.Value] struct {
	entries maxEntries[A, U]
	k       int
}

// New creates a heap that retains the k best (smallest-distance) entries.
func New[A any, U distance.Value](k int) *Heap[A, U] {
	return &Heap[A, U]{entries: make(maxEntries[A, U], 0, k), k: k}
}

// NewUnbounded creates a heap with no capacity limit.
func NewUnbounded[A any, U distance.Value]() *Heap[A, U] {
	return &Heap[A, U]{k: -1}
}

// Len returns the number of entries currently held.
func (h *Heap[A, U]) Len() int {
	return len(h.entries)
}

// IsEmpty reports whether the heap holds no entries.
func (h *Heap[A, U]) IsEmpty() bool {
	return len(h.entries) == 0
}

// IsFull reports whether the heap has reached its capacity. An unbounded
// heap is never full.
func (h *Heap[A, U]) IsFull() bool {
	return h.k >= 0 && len(h.entries) >= h.k
}

// Push inserts an entry, evicting the current worst entry if the heap is
// full and the new entry is strictly better.
func (h *Heap[A, U]) Push(key A, dist U) {
	if !h.IsFull() {
		heap.Push(&h.entries, Entry[A, U]{Key: key, Dist: dist})
		return
	}
	if h.k == 0 {
		return
	}
	if dist < h.entries[0].Dist {
		h.entries[0] = Entry[A, U]{Key: key, Dist: dist}
		heap.Fix(&h.entries, 0)
	}
}

// Extend pushes every entry from the slice, maintaining the capacity.
func (h *Heap[A, U]) Extend(entries []Entry[A, U]) {
	for _, e := range entries {
		h.Push(e.Key, e.Dist)
	}
}

// Peek returns the worst entry without removing it.
func (h *Heap[A, U]) Peek() (Entry[A, U], bool) {
	if len(h.entries) == 0 {
		var z Entry[A, U]
		return z, false
	}
	return h.entries[0], true
}

// Pop removes and returns the worst entry.
func (h *Heap[A, U]) Pop() (Entry[A, U], bool) {
	if len(h.entries) == 0 {
		var z Entry[A, U]
		return z, false
	}
	e := heap.Pop(&h.entries).(Entry[A, U])
	return e, true
}

// TakeItems drains the heap and returns all entries. The order of the
// returned slice is unspecified.
func (h *Heap[A, U]) TakeItems() []Entry[A, U] {
	out := h.entries
	h.entries = nil
	return out
}

// Merge drains the other heap into this one, maintaining the capacity.
func (h *Heap[A, U]) Merge(other *Heap[A, U]) {
	h.Extend(other.TakeItems())
}

// maxEntries implements heap.Interface with the largest distance on top.
type maxEntries[A any, U distance.Value] []Entry[A, U]

func (m maxEntries[A, U]) Len() int           { return len(m) }
func (m maxEntries[A, U]) Less(i, j int) bool { return m[i].Dist > m[j].Dist }
func (m maxEntries[A, U]) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }

func (m *maxEntries[A, U]) Push(x any) {
	*m = append(*m, x.(Entry[A, U]))
}

func (m *maxEntries[A, U]) Pop() any {
	old := *m
	n := len(old)
	e := old[n-1]
	*m = old[:n-1]
	return e
}
