package tree

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/mehulsinghal/entropic/internal/dataset"
	"github.com/mehulsinghal/entropic/pkg/distance"
)

func buildVectorTree(t *testing.T, vectors [][]float64, strategy Strategy[float64]) *Tree[[]float64, float64] {
	t.Helper()
	tr, err := New(Pairs(vectors), distance.Euclidean, strategy)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tr
}

// TestNewEmpty tests that building over zero items is rejected.
func TestNewEmpty(t *testing.T) {
	_, err := New(nil, distance.Euclidean, DefaultStrategy[float64]())
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

// TestNewNaNMetric tests that a NaN-producing metric fails the build.
func TestNewNaNMetric(t *testing.T) {
	nan := func(a, b float64) float64 {
		return math.NaN()
	}
	items := Pairs([]float64{1, 2, 3, 4})
	if _, err := New(items, nan, DefaultStrategy[float64]()); err == nil {
		t.Fatal("expected NaN error")
	}
}

// TestSingleItem tests the degenerate single-item tree.
func TestSingleItem(t *testing.T) {
	tr := buildVectorTree(t, [][]float64{{1, 2}}, DefaultStrategy[float64]())

	root := tr.Root()
	if root.Cardinality() != 1 {
		t.Errorf("expected cardinality 1, got %d", root.Cardinality())
	}
	if root.Radius() != 0 {
		t.Errorf("expected radius 0, got %v", root.Radius())
	}
	if root.LFD() != 1.0 {
		t.Errorf("expected lfd 1, got %v", root.LFD())
	}
	if !root.IsLeaf() || !root.IsSingleton() {
		t.Error("single-item root must be a singleton leaf")
	}
}

// TestCoincidentItems tests a dataset where all items are identical.
func TestCoincidentItems(t *testing.T) {
	items := Pairs([]int{0, 0, 0, 0})
	tr, err := New(items, distance.AbsDiff, DefaultStrategy[int]())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	root := tr.Root()
	if root.Cardinality() != 4 {
		t.Errorf("expected cardinality 4, got %d", root.Cardinality())
	}
	if root.Radius() != 0 {
		t.Errorf("expected radius 0, got %v", root.Radius())
	}
	if root.LFD() != 1.0 {
		t.Errorf("expected lfd 1, got %v", root.LFD())
	}
	if !root.IsLeaf() {
		t.Error("zero-radius cluster must not be partitioned")
	}
}

// checkInvariants verifies the structural invariants of a built tree:
// leaf cardinalities sum to the total, every cluster's range is contained
// in its parent's and disjoint from its siblings', radial distances are
// bounded by the radius, and the span is bounded by twice the radius.
func checkInvariants(t *testing.T, tr *Tree[[]float64, float64]) {
	t.Helper()

	clusters := tr.PreOrder()
	leafCardinality := 0
	seen := make(map[int]bool)

	for _, c := range clusters {
		if seen[c.CenterIndex()] {
			t.Fatalf("duplicate cluster center %d", c.CenterIndex())
		}
		seen[c.CenterIndex()] = true

		if c.IsLeaf() {
			leafCardinality += c.Cardinality()
		}

		lo, hi := c.ItemRange()
		if lo < 0 || hi > tr.Cardinality() || lo >= hi {
			t.Fatalf("cluster %d has invalid range [%d, %d)", c.CenterIndex(), lo, hi)
		}

		// Radial bound over the whole subtree.
		center := tr.Items()[c.CenterIndex()].Item
		for i := lo; i < hi; i++ {
			if d := distance.Euclidean(center, tr.Items()[i].Item); d > c.Radius()+1e-12 {
				t.Fatalf("cluster %d: item %d at distance %v beyond radius %v", c.CenterIndex(), i, d, c.Radius())
			}
		}

		if c.IsLeaf() {
			continue
		}

		span, ok := c.Span()
		if !ok {
			t.Fatalf("parent cluster %d has no span", c.CenterIndex())
		}
		if span > 2*c.Radius()+1e-12 {
			t.Fatalf("cluster %d: span %v exceeds twice the radius %v", c.CenterIndex(), span, c.Radius())
		}

		// Children partition the parent's range minus the center, in order.
		next := lo + 1
		childSum := 0
		for _, child := range tr.ChildrenOf(c) {
			clo, chi := child.ItemRange()
			if clo != next {
				t.Fatalf("cluster %d: child at %d does not start at %d", c.CenterIndex(), clo, next)
			}
			if child.ParentCenterIndex() != c.CenterIndex() {
				t.Fatalf("child %d has wrong parent %d", child.CenterIndex(), child.ParentCenterIndex())
			}
			if child.Depth() != c.Depth()+1 {
				t.Fatalf("child %d has depth %d under parent depth %d", child.CenterIndex(), child.Depth(), c.Depth())
			}
			next = chi
			childSum += child.Cardinality()
		}
		if next != hi {
			t.Fatalf("cluster %d: children end at %d, range ends at %d", c.CenterIndex(), next, hi)
		}
		if childSum != c.Cardinality()-1 {
			t.Fatalf("cluster %d: children hold %d items, expected %d", c.CenterIndex(), childSum, c.Cardinality()-1)
		}
	}

	if leafCardinality != tr.Cardinality() {
		t.Fatalf("leaf cardinalities sum to %d, tree holds %d", leafCardinality, tr.Cardinality())
	}
}

// TestInvariantsRandom tests the structural invariants on random data of
// several sizes and strategies.
func TestInvariantsRandom(t *testing.T) {
	cases := []struct {
		name     string
		n, dim   int
		strategy Strategy[float64]
	}{
		{"small-default", 20, 2, DefaultStrategy[float64]()},
		{"medium-default", 500, 5, DefaultStrategy[float64]()},
		{"large-default", 2000, 10, DefaultStrategy[float64]()},
		{"max-split", 500, 5, Strategy[float64]{MaxSplit: 0.75}},
		{"min-split", 500, 5, Strategy[float64]{MinSplit: 0.1}},
		{"small-stride", 500, 5, Strategy[float64]{DepthStride: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vectors := dataset.RandomVectors(tc.n, tc.dim, 1.0, 42)
			tr := buildVectorTree(t, vectors, tc.strategy)
			if tr.Cardinality() != tc.n {
				t.Fatalf("expected cardinality %d, got %d", tc.n, tr.Cardinality())
			}
			checkInvariants(t, tr)
		})
	}
}

// TestMaxSplitRebalances tests that the max-split knob caps the largest
// child of every partitioned cluster.
func TestMaxSplitRebalances(t *testing.T) {
	vectors := dataset.RandomVectors(1000, 3, 1.0, 7)
	tr := buildVectorTree(t, vectors, Strategy[float64]{MaxSplit: 0.75})

	for _, c := range tr.PreOrder() {
		maxItems := int(0.75 * float64(c.Cardinality()))
		if maxItems < 1 {
			maxItems = 1
		}
		for _, child := range tr.ChildrenOf(c) {
			if child.Cardinality() > maxItems {
				t.Fatalf("cluster %d: child of %d items exceeds cap %d", c.CenterIndex(), child.Cardinality(), maxItems)
			}
		}
	}
}

// TestPreOrderRoot tests that pre-order traversal starts at the root and
// visits every cluster exactly once.
func TestPreOrderRoot(t *testing.T) {
	vectors := dataset.RandomVectors(100, 3, 1.0, 1)
	tr := buildVectorTree(t, vectors, DefaultStrategy[float64]())

	clusters := tr.PreOrder()
	if clusters[0] != tr.Root() {
		t.Error("pre-order must start at the root")
	}
	for _, c := range clusters {
		if got := tr.Get(c.CenterIndex()); got != c {
			t.Errorf("Get(%d) did not return the traversed cluster", c.CenterIndex())
		}
	}
}

// TestDistancesHelpers tests the cluster and subtree scan helpers.
func TestDistancesHelpers(t *testing.T) {
	items := Pairs([]int{0, 1, 2, 100, 101, 102})
	tr, err := New(items, distance.AbsDiff, DefaultStrategy[int]())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	root := tr.Root()
	inCluster, err := tr.DistancesToItemsInCluster(1, root)
	if err != nil {
		t.Fatalf("DistancesToItemsInCluster failed: %v", err)
	}
	if len(inCluster) != 6 {
		t.Fatalf("expected 6 hits, got %d", len(inCluster))
	}
	if inCluster[0].Index != root.CenterIndex() {
		t.Error("center must come first")
	}

	inSubtree, err := tr.DistancesToItemsInSubtree(1, root)
	if err != nil {
		t.Fatalf("DistancesToItemsInSubtree failed: %v", err)
	}
	if len(inSubtree) != 5 {
		t.Fatalf("expected 5 hits without the center, got %d", len(inSubtree))
	}
}

// TestWriteCSV tests the cluster export format.
func TestWriteCSV(t *testing.T) {
	vectors := dataset.RandomVectors(50, 2, 1.0, 3)
	tr := buildVectorTree(t, vectors, DefaultStrategy[float64]())

	var buf bytes.Buffer
	if err := tr.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "center_index,depth,cardinality,radius,lfd,span,num_children" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if len(lines)-1 != len(tr.PreOrder()) {
		t.Errorf("expected %d rows, got %d", len(tr.PreOrder()), len(lines)-1)
	}
}

// TestNumSamplesSchedule tests the piecewise sampling schedule.
func TestNumSamplesSchedule(t *testing.T) {
	cases := []struct {
		population int
		want       int
	}{
		{0, 0},
		{10, 10},
		{255, 255},
		{256, 256},     // 256 + sqrt(0)
		{356, 266},   // 256 + sqrt(100)
		{66048, 520}, // 256 + sqrt(65536) + log2(256)
	}
	for _, tc := range cases {
		if got := numSamples(tc.population, 256, 65536); got != tc.want {
			t.Errorf("numSamples(%d) = %d, want %d", tc.population, got, tc.want)
		}
	}
}

// TestLFDEstimate tests the LFD edge cases and a simple half-count case.
func TestLFDEstimate(t *testing.T) {
	if got := lfdEstimate([]float64{}, 0); got != 1.0 {
		t.Errorf("empty distances: lfd = %v, want 1", got)
	}
	if got := lfdEstimate([]float64{1}, 1); got != 1.0 {
		t.Errorf("one distance: lfd = %v, want 1", got)
	}
	if got := lfdEstimate([]int{1, 1, 1}, 1); got != 1.0 {
		t.Errorf("integer half radius 0: lfd = %v, want 1", got)
	}

	// Three non-center items, one of them within half the radius:
	// log2(4/2) = 1.
	if got := lfdEstimate([]float64{1, 4, 4}, 4); got != 1.0 {
		t.Errorf("lfd = %v, want 1", got)
	}
	// None within half the radius: log2(4/1) = 2.
	if got := lfdEstimate([]float64{3, 4, 4}, 4); got != 2.0 {
		t.Errorf("lfd = %v, want 2", got)
	}
}
