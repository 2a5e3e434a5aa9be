package search

import (
	"fmt"
	"sync"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// RnnLinear answers ranged queries by scanning every item. It is the
// ground truth the clustered algorithm is checked against, and it wins on
// datasets small enough that tree descent is pure overhead.
type RnnLinear[I any, U distance.Value] struct {
	Radius U
}

func (a RnnLinear[I, U]) Name() string {
	return fmt.Sprintf("RnnLinear(radius=%v)", a.Radius)
}

func (a RnnLinear[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	if a.Radius < 0 {
		return nil, fmt.Errorf("negative radius %v: %w", a.Radius, tree.ErrInvalidParameter)
	}

	all, err := t.DistancesToAllItems(query)
	if err != nil {
		return nil, err
	}

	hits := all[:0]
	for _, h := range all {
		if h.Distance <= a.Radius {
			hits = append(hits, h)
		}
	}
	return hits, nil
}

func (a RnnLinear[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	return a.Search(t, query)
}

// RnnChess answers ranged queries with the CHESS branch-and-bound descent:
// clusters disjoint from the query ball are skipped whole, clusters
// subsumed by it contribute every item, and straddlers are scanned item by
// item.
type RnnChess[I any, U distance.Value] struct {
	Radius U
}

func (a RnnChess[I, U]) Name() string {
	return fmt.Sprintf("RnnChess(radius=%v)", a.Radius)
}

func (a RnnChess[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	if a.Radius < 0 {
		return nil, fmt.Errorf("negative radius %v: %w", a.Radius, tree.ErrInvalidParameter)
	}

	cls, err := classify(t, query, a.Radius)
	if err != nil {
		return nil, err
	}

	hits := cls.centers
	for _, c := range cls.subsumed {
		sub, err := t.DistancesToItemsInSubtree(query, c)
		if err != nil {
			return nil, err
		}
		hits = append(hits, sub...)
	}
	for _, c := range cls.straddlers {
		sub, err := t.DistancesToItemsInSubtree(query, c)
		if err != nil {
			return nil, err
		}
		for _, h := range sub {
			if h.Distance <= a.Radius {
				hits = append(hits, h)
			}
		}
	}
	return hits, nil
}

// ParSearch scans the subsumed and straddler clusters found by the descent
// concurrently. Contributions are disjoint per cluster, so the fan-in is
// plain concatenation.
func (a RnnChess[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	if a.Radius < 0 {
		return nil, fmt.Errorf("negative radius %v: %w", a.Radius, tree.ErrInvalidParameter)
	}

	cls, err := classify(t, query, a.Radius)
	if err != nil {
		return nil, err
	}

	type part struct {
		hits []tree.Hit[U]
		err  error
	}
	parts := make([]part, len(cls.subsumed)+len(cls.straddlers))
	var wg sync.WaitGroup

	for i, c := range cls.subsumed {
		wg.Add(1)
		go func(i int, c *tree.Cluster[U]) {
			defer wg.Done()
			parts[i].hits, parts[i].err = t.DistancesToItemsInSubtree(query, c)
		}(i, c)
	}
	for i, c := range cls.straddlers {
		wg.Add(1)
		go func(i int, c *tree.Cluster[U]) {
			defer wg.Done()
			sub, err := t.DistancesToItemsInSubtree(query, c)
			if err != nil {
				parts[i].err = err
				return
			}
			kept := sub[:0]
			for _, h := range sub {
				if h.Distance <= a.Radius {
					kept = append(kept, h)
				}
			}
			parts[i].hits = kept
		}(len(cls.subsumed)+i, c)
	}
	wg.Wait()

	hits := cls.centers
	for _, p := range parts {
		if p.err != nil {
			return nil, p.err
		}
		hits = append(hits, p.hits...)
	}
	return hits, nil
}

// classification is the outcome of one CHESS descent: centers already known
// to be hits, clusters fully subsumed by the query ball, and straddlers
// whose items must be tested individually.
type classification[U distance.Value] struct {
	centers    []tree.Hit[U]
	subsumed   []*tree.Cluster[U]
	straddlers []*tree.Cluster[U]
}

// classify walks the tree with an explicit work-list, classifying every
// visited cluster by the distance from the query to its center and its
// radius.
func classify[I any, U distance.Value](t *tree.Tree[I, U], query I, radius U) (classification[U], error) {
	var cls classification[U]

	stack := []*tree.Cluster[U]{t.Root()}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		d, err := t.DistanceToCenter(query, c)
		if err != nil {
			return cls, err
		}

		switch {
		case d > c.Radius()+radius:
			// Disjoint: no overlapping volume, skip the whole subtree.

		case d+c.Radius() <= radius:
			// Subsumed: every item of the subtree is a hit.
			cls.centers = append(cls.centers, tree.Hit[U]{Index: c.CenterIndex(), Distance: d})
			cls.subsumed = append(cls.subsumed, c)

		default:
			if d <= radius {
				cls.centers = append(cls.centers, tree.Hit[U]{Index: c.CenterIndex(), Distance: d})
			}
			if c.IsLeaf() {
				cls.straddlers = append(cls.straddlers, c)
			} else {
				stack = append(stack, t.ChildrenOf(c)...)
			}
		}
	}
	return cls, nil
}
