// Package tree builds and serves the hierarchical partition tree at the
// heart of this module.
//
// A tree is built once from a batch of items and a metric. Construction
// permutes the items into a flat arena ordered by depth-first traversal, so
// that every cluster of the tree owns a contiguous half-open index range
// with its geometric median at the front. The tree and arena are read-only
// after the build, which is what lets the search algorithms traverse them
// from many goroutines without locks.
package tree

import (
	"fmt"

	"github.com/mehulsinghal/entropic/pkg/distance"
)

// Pair carries one item together with the caller's identifier for it. The
// core never inspects the ID; it is returned alongside search results so
// callers can map arena indexes back to their own keys.
type Pair[I any] struct {
	ID   string
	Item I
}

// Pairs wraps a plain item slice in Pairs with sequential numeric IDs.
func Pairs[I any](items []I) []Pair[I] {
	pairs := make([]Pair[I], len(items))
	for i, item := range items {
		pairs[i] = Pair[I]{ID: fmt.Sprintf("%d", i), Item: item}
	}
	return pairs
}

// Hit is a single search result: an index into the tree's arena and the
// distance from the query to that item.
type Hit[U distance.Value] struct {
	Index    int
	Distance U
}

// Tree owns the item arena and the flat table of clusters, indexed by
// center index.
type Tree[I any, U distance.Value] struct {
	items  []Pair[I]
	metric distance.Func[I, U]
	nodes  []*Cluster[U]
	root   *Cluster[U]
}

// New builds a tree over the given items. The items slice is taken over and
// permuted in place; callers must not use it afterwards.
//
// Build fails on an empty item slice and when the metric produces a NaN
// distance. With a well-behaved metric the build is infallible.
func New[I any, U distance.Value](items []Pair[I], metric distance.Func[I, U], strategy Strategy[U]) (*Tree[I, U], error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("cannot build a tree over zero items: %w", ErrInvalidInput)
	}
	if metric == nil {
		return nil, fmt.Errorf("metric must not be nil: %w", ErrInvalidParameter)
	}

	b := &builder[I, U]{
		items:  items,
		metric: metric,
		st:     strategy.normalized(),
		nodes:  make([]*Cluster[U], len(items)),
	}
	if err := b.build(); err != nil {
		return nil, err
	}

	return &Tree[I, U]{
		items:  b.items,
		metric: metric,
		nodes:  b.nodes,
		root:   b.nodes[0],
	}, nil
}

// Root returns the root cluster.
func (t *Tree[I, U]) Root() *Cluster[U] {
	return t.root
}

// Cardinality returns the total number of items in the tree.
func (t *Tree[I, U]) Cardinality() int {
	return len(t.items)
}

// Items borrows the arena. Callers must not modify the returned slice.
func (t *Tree[I, U]) Items() []Pair[I] {
	return t.items
}

// Get returns the cluster centered at the given arena index, or nil when
// that index is not a cluster center.
func (t *Tree[I, U]) Get(centerIndex int) *Cluster[U] {
	if centerIndex < 0 || centerIndex >= len(t.nodes) {
		return nil
	}
	return t.nodes[centerIndex]
}

// ChildrenOf returns the child clusters of c in arena order, or nil for a
// leaf.
func (t *Tree[I, U]) ChildrenOf(c *Cluster[U]) []*Cluster[U] {
	if c.IsLeaf() {
		return nil
	}
	children := make([]*Cluster[U], len(c.children))
	for i, ci := range c.children {
		children[i] = t.nodes[ci]
	}
	return children
}

// PreOrder returns every cluster of the tree in pre-order.
func (t *Tree[I, U]) PreOrder() []*Cluster[U] {
	return t.SubtreePreOrder(t.root)
}

// SubtreePreOrder returns the clusters of the subtree rooted at c in
// pre-order, using an explicit work-list.
func (t *Tree[I, U]) SubtreePreOrder(c *Cluster[U]) []*Cluster[U] {
	out := make([]*Cluster[U], 0, 2*c.cardinality-1)
	stack := []*Cluster[U]{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, t.nodes[cur.children[i]])
		}
	}
	return out
}

// DistanceToCenter returns the distance from the query to the center of c.
func (t *Tree[I, U]) DistanceToCenter(query I, c *Cluster[U]) (U, error) {
	d := t.metric(query, t.items[c.centerIndex].Item)
	if distance.IsNaN(d) {
		return d, ErrDistanceNaN
	}
	return d, nil
}

// DistanceToItem returns the distance from the query to the arena item at
// index i.
func (t *Tree[I, U]) DistanceToItem(query I, i int) U {
	return t.metric(query, t.items[i].Item)
}

// DistancesToItemsInCluster returns the distance from the query to every
// item in c's contiguous range, with the center first.
func (t *Tree[I, U]) DistancesToItemsInCluster(query I, c *Cluster[U]) ([]Hit[U], error) {
	lo, hi := c.ItemRange()
	return t.scanRange(query, lo, hi)
}

// DistancesToItemsInSubtree returns the distance from the query to every
// item in c's subtree, excluding the center.
func (t *Tree[I, U]) DistancesToItemsInSubtree(query I, c *Cluster[U]) ([]Hit[U], error) {
	lo, hi := c.SubtreeRange()
	return t.scanRange(query, lo, hi)
}

// DistancesToAllItems returns the distance from the query to every item in
// the arena.
func (t *Tree[I, U]) DistancesToAllItems(query I) ([]Hit[U], error) {
	return t.scanRange(query, 0, len(t.items))
}

func (t *Tree[I, U]) scanRange(query I, lo, hi int) ([]Hit[U], error) {
	hits := make([]Hit[U], 0, hi-lo)
	for i := lo; i < hi; i++ {
		d := t.metric(query, t.items[i].Item)
		if distance.IsNaN(d) {
			return nil, ErrDistanceNaN
		}
		hits = append(hits, Hit[U]{Index: i, Distance: d})
	}
	return hits, nil
}
