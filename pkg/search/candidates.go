package search

import (
	"container/heap"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// candidate is a cluster waiting to be explored by a KNN sieve, keyed by
// the triple (dMin, dMax, dCenter). dMin is the primary key; the other two
// break ties deterministically, which keeps equal-bound siblings in a
// reproducible order.
type candidate[U distance.Value] struct {
	c                *tree.Cluster[U]
	dMin, dMax, dCtr U
}

// candidateHeap is a min-heap of candidates: the cluster with the smallest
// lower bound is on top.
type candidateHeap[U distance.Value] []candidate[U]

func (h candidateHeap[U]) Len() int { return len(h) }

func (h candidateHeap[U]) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.dMin != b.dMin {
		return a.dMin < b.dMin
	}
	if a.dMax != b.dMax {
		return a.dMax < b.dMax
	}
	if a.dCtr != b.dCtr {
		return a.dCtr < b.dCtr
	}
	return a.c.CenterIndex() < b.c.CenterIndex()
}

func (h candidateHeap[U]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap[U]) Push(x any) {
	*h = append(*h, x.(candidate[U]))
}

func (h *candidateHeap[U]) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// pushCandidate wraps a cluster with its bound triple and pushes it.
func pushCandidate[U distance.Value](h *candidateHeap[U], c *tree.Cluster[U], d U) {
	heap.Push(h, candidate[U]{c: c, dMin: c.DMin(d), dMax: c.DMax(d), dCtr: d})
}
