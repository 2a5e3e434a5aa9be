package tree

import "github.com/mehulsinghal/entropic/pkg/distance"

// Cluster is one node of the partition tree. It holds only metadata about a
// contiguous half-open range of the item arena: the items of the subtree
// rooted here occupy [CenterIndex, CenterIndex+Cardinality), with the
// geometric median at CenterIndex itself.
//
// Clusters are created by the builder and are immutable afterwards.
type Cluster[U distance.Value] struct {
	depth       int
	centerIndex int
	cardinality int
	radius      U
	lfd         float64
	parent      int
	children    []int // center indexes of the children, in arena order
	span        U     // distance between the two poles, when partitioned
}

// Depth returns the distance from the root, with the root at depth 0.
func (c *Cluster[U]) Depth() int {
	return c.depth
}

// CenterIndex returns the arena index of this cluster's center item.
func (c *Cluster[U]) CenterIndex() int {
	return c.centerIndex
}

// Cardinality returns the number of items in the subtree rooted here,
// including the center.
func (c *Cluster[U]) Cardinality() int {
	return c.cardinality
}

// Radius returns the distance from the center to the farthest item in the
// subtree.
func (c *Cluster[U]) Radius() U {
	return c.radius
}

// LFD returns the Local Fractal Dimension of this cluster.
func (c *Cluster[U]) LFD() float64 {
	return c.lfd
}

// ParentCenterIndex returns the center index of the parent cluster; for the
// root it returns the root's own center index.
func (c *Cluster[U]) ParentCenterIndex() int {
	return c.parent
}

// IsLeaf reports whether this cluster has no children.
func (c *Cluster[U]) IsLeaf() bool {
	return len(c.children) == 0
}

// IsSingleton reports whether every item in the subtree is coincident with
// the center (a single item, or radius zero).
func (c *Cluster[U]) IsSingleton() bool {
	return c.cardinality == 1 || c.radius == 0
}

// Children returns the center indexes of the children in arena order, or
// nil for a leaf. Callers must not modify the returned slice.
func (c *Cluster[U]) Children() []int {
	return c.children
}

// Span returns the distance between the two poles used to partition this
// cluster; ok is false for leaves.
func (c *Cluster[U]) Span() (span U, ok bool) {
	if c.IsLeaf() {
		return 0, false
	}
	return c.span, true
}

// ItemRange returns the half-open arena range [lo, hi) holding every item of
// the subtree rooted here, center included.
func (c *Cluster[U]) ItemRange() (lo, hi int) {
	return c.centerIndex, c.centerIndex + c.cardinality
}

// SubtreeRange returns the half-open arena range holding every item of the
// subtree except the center.
func (c *Cluster[U]) SubtreeRange() (lo, hi int) {
	return c.centerIndex + 1, c.centerIndex + c.cardinality
}

// DMin returns a lower bound on the distance from a query to any item in
// this cluster, given the distance d from the query to the center.
func (c *Cluster[U]) DMin(d U) U {
	if d < c.radius {
		return 0
	}
	return d - c.radius
}

// DMax returns an upper bound on the distance from a query to any item in
// this cluster, given the distance d from the query to the center.
func (c *Cluster[U]) DMax(d U) U {
	return d + c.radius
}
