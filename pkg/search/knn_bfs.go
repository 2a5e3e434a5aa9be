package search

import (
	"fmt"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/sizedheap"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// KnnBfs answers k-nearest-neighbor queries with the level-synchronous
// breadth-first sieve. Each round quick-partitions the frontier by upper
// bound to find the smallest d_max that already guarantees k items, prunes
// every cluster whose lower bound exceeds that threshold, and either scans
// the survivors into the hits or descends into their children for the next
// round. It terminates early when many candidates share similar bounds.
type KnnBfs[I any, U distance.Value] struct {
	K int
}

func (a KnnBfs[I, U]) Name() string {
	return fmt.Sprintf("KnnBfs(k=%d)", a.K)
}

// frontierEntry is one cluster of the current level with the distance from
// the query to its center and the derived upper bound.
type frontierEntry[U distance.Value] struct {
	c    *tree.Cluster[U]
	dCtr U
	dMax U
}

func (a KnnBfs[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
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

	frontier := []frontierEntry[U]{{c: root, dCtr: d, dMax: root.DMax(d)}}

	for len(frontier) > 0 {
		retained := filterFrontier(frontier, a.K)
		frontier = frontier[:0]

		for _, e := range retained {
			if e.c.IsLeaf() || e.c.Cardinality() < a.K {
				// A leaf, or too small to supply k on its own: sieve its
				// items directly.
				lo, hi := e.c.SubtreeRange()
				if e.c.IsSingleton() {
					for i := lo; i < hi; i++ {
						hits.Push(i, e.dCtr)
					}
				} else {
					for i := lo; i < hi; i++ {
						hits.Push(i, t.DistanceToItem(query, i))
					}
				}
				continue
			}

			for _, child := range t.ChildrenOf(e.c) {
				cd := t.DistanceToItem(query, child.CenterIndex())
				hits.Push(child.CenterIndex(), cd)
				frontier = append(frontier, frontierEntry[U]{c: child, dCtr: cd, dMax: child.DMax(cd)})
			}
		}
	}

	return heapToHits(hits), nil
}

func (a KnnBfs[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	return a.Search(t, query)
}

// filterFrontier keeps only the clusters that can still contribute to the
// k nearest neighbors: those whose lower bound d - 2r does not exceed the
// quick-partition threshold. Candidates whose d_max equals the threshold
// are retained.
func filterFrontier[U distance.Value](frontier []frontierEntry[U], k int) []frontierEntry[U] {
	ti := quickPartition(frontier, k)
	threshold := frontier[ti].dMax

	retained := make([]frontierEntry[U], 0, len(frontier))
	for _, e := range frontier {
		diameter := e.c.Radius() + e.c.Radius()
		var dMin U
		if e.dCtr > diameter {
			dMin = e.dCtr - diameter
		}
		if dMin <= threshold {
			retained = append(retained, e)
		}
	}
	return retained
}

// quickPartition reorders the frontier around the entry with the smallest
// d_max whose cumulative cardinality reaches k, and returns its index. A
// variant of quickselect: entries left of the returned index have smaller
// or equal d_max, entries right of it have larger or equal d_max.
func quickPartition[U distance.Value](entries []frontierEntry[U], k int) int {
	l, r := 0, len(entries)-1
	for l < r {
		p := findPivot(entries, l, r, l+(r-l)/2)

		// Cardinality guaranteed by the entries up to and including p-1.
		guaranteed := 0
		for _, e := range entries[:p] {
			guaranteed += e.c.Cardinality()
		}

		switch {
		case guaranteed == k:
			return p
		case guaranteed < k:
			if guaranteed+entries[p].c.Cardinality() >= k {
				return p
			}
			l = p + 1
		default:
			if p == 0 {
				return p
			}
			r = p - 1
		}
	}
	return min(l, r)
}

// findPivot moves the pivot into its sorted position by d_max, with smaller
// entries to its left and larger ones to its right.
func findPivot[U distance.Value](entries []frontierEntry[U], l, r, pivot int) int {
	entries[pivot], entries[r] = entries[r], entries[pivot]

	a := l
	for b := l; b < r; b++ {
		if entries[b].dMax < entries[r].dMax {
			entries[a], entries[b] = entries[b], entries[a]
			a++
		}
	}
	entries[a], entries[r] = entries[r], entries[a]
	return a
}
