package search

import (
	"fmt"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/sizedheap"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// KnnLinear answers k-nearest-neighbor queries by scanning every item
// through a bounded reservoir. It is the ground truth the sieve algorithms
// are checked against.
type KnnLinear[I any, U distance.Value] struct {
	K int
}

func (a KnnLinear[I, U]) Name() string {
	return fmt.Sprintf("KnnLinear(k=%d)", a.K)
}

func (a KnnLinear[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	if a.K <= 0 {
		return nil, nil
	}
	if a.K >= t.Cardinality() {
		return t.DistancesToAllItems(query)
	}

	all, err := t.DistancesToAllItems(query)
	if err != nil {
		return nil, err
	}

	hits := sizedheap.New[int, U](a.K)
	for _, h := range all {
		hits.Push(h.Index, h.Distance)
	}
	return heapToHits(hits), nil
}

func (a KnnLinear[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	return a.Search(t, query)
}

// heapToHits drains a hits reservoir into a result slice.
func heapToHits[U distance.Value](h *sizedheap.Heap[int, U]) []tree.Hit[U] {
	entries := h.TakeItems()
	hits := make([]tree.Hit[U], len(entries))
	for i, e := range entries {
		hits[i] = tree.Hit[U]{Index: e.Key, Distance: e.Dist}
	}
	return hits
}
