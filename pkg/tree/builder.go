package tree

import (
	"fmt"

	"github.com/mehulsinghal/entropic/pkg/distance"
)

// buildTask describes one pending partition: the half-open arena range to
// cluster, the depth the resulting cluster will sit at, and the center index
// of its parent.
type buildTask struct {
	lo, hi int
	depth  int
	parent int
}

// childRange is a contiguous run of non-center items destined to become one
// child cluster. dist holds each item's distance to the range's own pole and
// seeds pole selection when the range is re-split by the max-split rule.
type childRange[U distance.Value] struct {
	lo, n int
	dist  []U
}

type builder[I any, U distance.Value] struct {
	items  []Pair[I]
	metric distance.Func[I, U]
	st     Strategy[U]
	nodes  []*Cluster[U]
	err    error
}

// dist evaluates the metric and records the first NaN it sees.
func (b *builder[I, U]) dist(x, y I) U {
	d := b.metric(x, y)
	if b.err == nil && distance.IsNaN(d) {
		b.err = fmt.Errorf("during build: %w", ErrDistanceNaN)
	}
	return d
}

// build partitions the whole arena with an explicit work-list. Tasks deeper
// than the current stride limit are parked and resumed in a chained pass, so
// a pathological near-linear tree never grows the live stack beyond one
// stride of depth.
func (b *builder[I, U]) build() error {
	stack := []buildTask{{lo: 0, hi: len(b.items), depth: 0, parent: 0}}
	var deferred []buildTask
	limit := b.st.DepthStride

	for len(stack) > 0 || len(deferred) > 0 {
		if len(stack) == 0 {
			stack, deferred = deferred, nil
			limit += b.st.DepthStride
		}

		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.depth >= limit {
			deferred = append(deferred, t)
			continue
		}

		c, children := b.partition(t)
		if b.err != nil {
			return b.err
		}
		b.nodes[c.centerIndex] = c

		// Push in reverse so children are processed in arena order.
		for i := len(children) - 1; i >= 0; i-- {
			r := children[i]
			stack = append(stack, buildTask{lo: r.lo, hi: r.lo + r.n, depth: t.depth + 1, parent: c.centerIndex})
		}
	}
	return nil
}

// partition builds the cluster for one task and, when the cluster is split,
// returns the child ranges to enqueue.
func (b *builder[I, U]) partition(t buildTask) (*Cluster[U], []childRange[U]) {
	n := t.hi - t.lo

	if n == 1 {
		return &Cluster[U]{
			depth:       t.depth,
			centerIndex: t.lo,
			cardinality: 1,
			radius:      0,
			lfd:         1.0,
			parent:      t.parent,
		}, nil
	}
	if n == 2 {
		return &Cluster[U]{
			depth:       t.depth,
			centerIndex: t.lo,
			cardinality: 2,
			radius:      b.dist(b.items[t.lo].Item, b.items[t.lo+1].Item),
			lfd:         1.0,
			parent:      t.parent,
		}, nil
	}

	b.selectCenter(t.lo, t.hi)
	center := b.items[t.lo].Item

	// Radial distances from the center to every other item in the range.
	radial := make([]U, n-1)
	argRadius := 0
	for i := range radial {
		radial[i] = b.dist(center, b.items[t.lo+1+i].Item)
		if radial[i] > radial[argRadius] {
			argRadius = i
		}
	}
	radius := radial[argRadius]

	c := &Cluster[U]{
		depth:       t.depth,
		centerIndex: t.lo,
		cardinality: n,
		radius:      radius,
		lfd:         lfdEstimate(radial, radius),
		parent:      t.parent,
	}

	if b.err != nil || !b.st.shouldPartition(c) {
		return c, nil
	}

	children, span := b.split(t.lo, t.hi, radial)
	if children == nil {
		return c, nil
	}

	c.span = span
	c.children = make([]int, len(children))
	for i, r := range children {
		c.children[i] = r.lo
	}
	return c, children
}

// selectCenter finds the geometric median of the range's leading sample by
// minimizing row-sums of the sample's pairwise distance matrix, and swaps it
// to the front of the range.
func (b *builder[I, U]) selectCenter(lo, hi int) {
	n := hi - lo
	ns := numSamples(n, b.st.SqrtThresh, b.st.Log2Thresh)
	if ns < 1 {
		ns = 1
	}

	rowSums := make([]U, ns)
	for r := 1; r < ns; r++ {
		for c := 0; c < r; c++ {
			d := b.dist(b.items[lo+r].Item, b.items[lo+c].Item)
			rowSums[r] += d
			rowSums[c] += d
		}
	}

	argCenter := 0
	for i, s := range rowSums {
		if s < rowSums[argCenter] {
			argCenter = i
		}
	}
	b.items[lo], b.items[lo+argCenter] = b.items[lo+argCenter], b.items[lo]
}

// split performs the bipolar split of the non-center items of
// [lo, hi), enforcing the min-split and max-split constraints. It returns
// nil when the cluster should stay a leaf.
func (b *builder[I, U]) split(lo, hi int, radial []U) ([]childRange[U], U) {
	n := hi - lo
	s := lo + 1 // first non-center item

	nl, span, dl, dr := b.bipolar(s, hi, radial)
	nr := (hi - s) - nl
	if nl == 0 || nr == 0 {
		// All non-center items are equidistant from both poles; there is no
		// useful two-sided split.
		return nil, 0
	}

	if minCount := int(b.st.MinSplit * float64(n)); min(nl, nr) < minCount {
		return nil, 0
	}

	ranges := []childRange[U]{
		{lo: s, n: nl, dist: dl},
		{lo: s + nl, n: nr, dist: dr},
	}

	if b.st.MaxSplit < 1 {
		ranges = b.rebalance(ranges, n)
	}
	return ranges, span
}

// rebalance re-splits the largest child range until none exceeds the
// max-split cap. The cap is relative to the cardinality of the cluster
// being partitioned.
func (b *builder[I, U]) rebalance(ranges []childRange[U], n int) []childRange[U] {
	maxItems := int(b.st.MaxSplit * float64(n))
	if maxItems < 1 {
		maxItems = 1
	}

	for {
		largest := 0
		for i, r := range ranges {
			if r.n > ranges[largest].n {
				largest = i
			}
		}
		r := ranges[largest]
		if r.n <= maxItems || r.n < 2 {
			break
		}

		nl, _, dl, dr := b.bipolar(r.lo, r.lo+r.n, r.dist)
		nr := r.n - nl
		if nl == 0 || nr == 0 {
			break
		}

		ranges[largest] = childRange[U]{lo: r.lo, n: nl, dist: dl}
		ranges = append(ranges, childRange[U]{lo: r.lo + nl, n: nr, dist: dr})
	}

	// Children are recorded in arena order.
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j].lo < ranges[j-1].lo; j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
	return ranges
}

// bipolar splits items[s:e] around two poles: the left pole is the item
// farthest by the seed distances (the radial distances on the first split),
// and the right pole is the item farthest from the left pole. Items strictly
// closer to the left pole are permuted to the front of the range; ties go
// right. Returns the left count, the span between the poles, and each
// side's distances to its own pole.
func (b *builder[I, U]) bipolar(s, e int, seed []U) (nl int, span U, dl, dr []U) {
	n := e - s

	li := 0
	for i, d := range seed {
		if d > seed[li] {
			li = i
		}
	}
	left := b.items[s+li].Item

	dl = make([]U, n)
	ri := 0
	for i := range dl {
		dl[i] = b.dist(left, b.items[s+i].Item)
		if dl[i] > dl[ri] {
			ri = i
		}
	}
	span = dl[ri]
	right := b.items[s+ri].Item

	dr = make([]U, n)
	for i := range dr {
		dr[i] = b.dist(right, b.items[s+i].Item)
	}

	// In-place partition, keeping the distance slices aligned with the
	// items they describe.
	j := 0
	for i := 0; i < n; i++ {
		if dl[i] < dr[i] {
			b.items[s+i], b.items[s+j] = b.items[s+j], b.items[s+i]
			dl[i], dl[j] = dl[j], dl[i]
			dr[i], dr[j] = dr[j], dr[i]
			j++
		}
	}
	return j, span, dl[:j:j], dr[j:]
}
