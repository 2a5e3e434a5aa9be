package search

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/sizedheap"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// KnnDfs answers k-nearest-neighbor queries with the depth-first sieve: a
// bounded reservoir of hits and a min-heap of candidate clusters ordered by
// their lower bound. The best candidate is expanded until a leaf surfaces,
// the leaf's items are sieved into the hits, and the loop stops as soon as
// the closest remaining candidate cannot improve the worst kept hit.
type KnnDfs[I any, U distance.Value] struct {
	K int
}

func (a KnnDfs[I, U]) Name() string {
	return fmt.Sprintf("KnnDfs(k=%d)", a.K)
}

func (a KnnDfs[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	approx := ApproxKnnDfs[I, U]{K: a.K, MaxLeaves: math.MaxInt, MaxDistComps: math.MaxInt}
	return approx.Search(t, query)
}

func (a KnnDfs[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	return a.Search(t, query)
}

// ApproxKnnDfs is the depth-first sieve with per-query work budgets: the
// search stops early once it has visited MaxLeaves leaves or performed
// MaxDistComps distance computations, returning the hits gathered so far.
// With both budgets at math.MaxInt it is exactly KnnDfs.
type ApproxKnnDfs[I any, U distance.Value] struct {
	K            int
	MaxLeaves    int
	MaxDistComps int
}

func (a ApproxKnnDfs[I, U]) Name() string {
	switch {
	case a.MaxLeaves == math.MaxInt && a.MaxDistComps == math.MaxInt:
		return fmt.Sprintf("KnnDfs(k=%d)", a.K)
	case a.MaxDistComps == math.MaxInt:
		return fmt.Sprintf("ApproxKnnDfs(k=%d,leaves<%d)", a.K, a.MaxLeaves)
	case a.MaxLeaves == math.MaxInt:
		return fmt.Sprintf("ApproxKnnDfs(k=%d,distComps<%d)", a.K, a.MaxDistComps)
	default:
		return fmt.Sprintf("ApproxKnnDfs(k=%d,leaves<%d,distComps<%d)", a.K, a.MaxLeaves, a.MaxDistComps)
	}
}

func (a ApproxKnnDfs[I, U]) shouldContinue(leavesVisited, distComps int) bool {
	return leavesVisited < a.MaxLeaves && distComps < a.MaxDistComps
}

func (a ApproxKnnDfs[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	if a.K <= 0 {
		return nil, nil
	}
	if a.K >= t.Cardinality() {
		return t.DistancesToAllItems(query)
	}

	root := t.Root()
	d, err := t.DistanceToCenter(query, root)
	if err != nil {
		return nil, err
	}

	hits := sizedheap.New[int, U](a.K)
	hits.Push(root.CenterIndex(), d)

	candidates := &candidateHeap[U]{}
	pushCandidate(candidates, root, d)

	leavesVisited := 0
	distComps := 1

	for candidates.Len() > 0 {
		// Expand parents until the best candidate is a leaf, then sieve
		// that leaf's items into the hits.
		leaf, leafD, n := popTillLeaf(t, query, candidates, hits)
		leavesVisited++
		distComps += n

		distComps += leafIntoHits(t, query, hits, leaf, leafD)

		if !hits.IsFull() {
			continue
		}
		worst, _ := hits.Peek()
		if candidates.Len() == 0 {
			break
		}
		if worst.Dist < (*candidates)[0].dMin || !a.shouldContinue(leavesVisited, distComps) {
			// The closest candidate cannot improve the hits, or the work
			// budget is spent.
			break
		}
	}

	return heapToHits(hits), nil
}

func (a ApproxKnnDfs[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	return a.Search(t, query)
}

// popTillLeaf pops candidates until a leaf is on top, pushing the children
// of every popped parent (and their centers into the hits). It then pops
// and returns that leaf with its center distance and the number of distance
// computations performed.
//
// candidates must be non-empty.
func popTillLeaf[I any, U distance.Value](
	t *tree.Tree[I, U],
	query I,
	candidates *candidateHeap[U],
	hits *sizedheap.Heap[int, U],
) (*tree.Cluster[U], U, int) {
	distComps := 0
	for !(*candidates)[0].c.IsLeaf() {
		parent := heap.Pop(candidates).(candidate[U])
		for _, child := range t.ChildrenOf(parent.c) {
			d := t.DistanceToItem(query, child.CenterIndex())
			distComps++
			hits.Push(child.CenterIndex(), d)
			pushCandidate(candidates, child, d)
		}
	}

	leaf := heap.Pop(candidates).(candidate[U])
	return leaf.c, leaf.dCtr, distComps
}

// leafIntoHits sieves a leaf's non-center items into the hits reservoir.
// For a singleton leaf every item is exactly the center distance away, so
// no further distance computations are needed.
func leafIntoHits[I any, U distance.Value](
	t *tree.Tree[I, U],
	query I,
	hits *sizedheap.Heap[int, U],
	leaf *tree.Cluster[U],
	d U,
) int {
	lo, hi := leaf.SubtreeRange()
	if leaf.IsSingleton() {
		for i := lo; i < hi; i++ {
			hits.Push(i, d)
		}
		return 0
	}
	for i := lo; i < hi; i++ {
		hits.Push(i, t.DistanceToItem(query, i))
	}
	return hi - lo
}
