package search

import (
	"math"
	"testing"

	"github.com/mehulsinghal/entropic/internal/dataset"
	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// knnAlgorithms returns every exact KNN algorithm for the given k.
func knnAlgorithms[I any, U distance.Value](k int) []Algorithm[I, U] {
	return []Algorithm[I, U]{
		KnnLinear[I, U]{K: k},
		KnnDfs[I, U]{K: k},
		KnnBfs[I, U]{K: k},
		KnnRepeatedRnn[I, U]{K: k},
	}
}

// TestKnnLineGrid tests the literal line scenario: the integers -5..5 with
// absolute difference, k=3 at the origin yields distances {0, 1, 1}.
func TestKnnLineGrid(t *testing.T) {
	values := []int{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4, 5}
	tr := intLineTree(t, values)

	for _, alg := range knnAlgorithms[int, int](3) {
		hits, err := alg.Search(tr, 0)
		if err != nil {
			t.Fatalf("%s failed: %v", alg.Name(), err)
		}
		if len(hits) != 3 {
			t.Fatalf("%s returned %d hits, want 3", alg.Name(), len(hits))
		}

		dists := sortedDistances(hits)
		want := []int{0, 1, 1}
		for i, d := range dists {
			if d != want[i] {
				t.Fatalf("%s distances %v, want %v", alg.Name(), dists, want)
			}
		}

		for _, h := range hits {
			if v := tr.Items()[h.Index].Item; v < -1 || v > 1 {
				t.Errorf("%s returned item %d, want one of {-1, 0, 1}", alg.Name(), v)
			}
		}
	}
}

// TestKnnCoincident tests that any two of four coincident items are
// returned, both at distance zero.
func TestKnnCoincident(t *testing.T) {
	tr := intLineTree(t, []int{0, 0, 0, 0})

	for _, alg := range knnAlgorithms[int, int](2) {
		hits, err := alg.Search(tr, 0)
		if err != nil {
			t.Fatalf("%s failed: %v", alg.Name(), err)
		}
		if len(hits) != 2 {
			t.Fatalf("%s returned %d hits, want 2", alg.Name(), len(hits))
		}
		for _, h := range hits {
			if h.Distance != 0 {
				t.Errorf("%s hit at distance %d, want 0", alg.Name(), h.Distance)
			}
		}
	}
}

// TestKnnTwoClusterLine tests the literal scenario: k=3 at 101 returns the
// right cluster with distances {1, 0, 1}.
func TestKnnTwoClusterLine(t *testing.T) {
	tr := intLineTree(t, []int{0, 1, 2, 100, 101, 102})

	for _, alg := range knnAlgorithms[int, int](3) {
		hits, err := alg.Search(tr, 101)
		if err != nil {
			t.Fatalf("%s failed: %v", alg.Name(), err)
		}

		dists := sortedDistances(hits)
		want := []int{0, 1, 1}
		if len(dists) != 3 {
			t.Fatalf("%s returned %d hits, want 3", alg.Name(), len(dists))
		}
		for i, d := range dists {
			if d != want[i] {
				t.Fatalf("%s distances %v, want %v", alg.Name(), dists, want)
			}
		}
		for _, h := range hits {
			if v := tr.Items()[h.Index].Item; v < 100 {
				t.Errorf("%s returned %d from the wrong cluster", alg.Name(), v)
			}
		}
	}
}

// TestKnnLatticeNearest tests that the nearest neighbor of the origin on
// the lattice is the origin itself.
func TestKnnLatticeNearest(t *testing.T) {
	tr := vectorTree(t, dataset.Lattice(2))

	for _, alg := range knnAlgorithms[[]float64, float64](1) {
		hits, err := alg.Search(tr, []float64{0, 0})
		if err != nil {
			t.Fatalf("%s failed: %v", alg.Name(), err)
		}
		if len(hits) != 1 {
			t.Fatalf("%s returned %d hits, want 1", alg.Name(), len(hits))
		}
		if hits[0].Distance != 0 {
			t.Errorf("%s nearest at distance %v, want 0", alg.Name(), hits[0].Distance)
		}
	}
}

// TestKnnBoundaries tests k=0 and k>=n.
func TestKnnBoundaries(t *testing.T) {
	values := []int{10, 20, 30, 40, 50}
	tr := intLineTree(t, values)

	for _, alg := range knnAlgorithms[int, int](0) {
		hits, err := alg.Search(tr, 25)
		if err != nil {
			t.Fatalf("%s failed: %v", alg.Name(), err)
		}
		if len(hits) != 0 {
			t.Errorf("%s with k=0 returned %d hits", alg.Name(), len(hits))
		}
	}

	for _, alg := range knnAlgorithms[int, int](10) {
		hits, err := alg.Search(tr, 25)
		if err != nil {
			t.Fatalf("%s failed: %v", alg.Name(), err)
		}
		if len(hits) != len(values) {
			t.Errorf("%s with k>n returned %d hits, want %d", alg.Name(), len(hits), len(values))
		}
	}
}

// TestKnnSievesMatchLinear tests that every sieve returns the same multiset
// of distances as the linear scan, across ks, strategies, and queries.
func TestKnnSievesMatchLinear(t *testing.T) {
	strategies := map[string]tree.Strategy[float64]{
		"default":   tree.DefaultStrategy[float64](),
		"max-split": {MaxSplit: 0.75},
	}

	for name, strategy := range strategies {
		t.Run(name, func(t *testing.T) {
			vectors := dataset.RandomVectors(600, 6, 1.0, 29)
			tr, err := tree.New(tree.Pairs(vectors), distance.Euclidean, strategy)
			if err != nil {
				t.Fatalf("building tree: %v", err)
			}
			queries := dataset.RandomVectors(15, 6, 1.0, 31)

			for _, k := range []int{1, 3, 10, 50} {
				truth := KnnLinear[[]float64, float64]{K: k}
				for qi, q := range queries {
					want, err := truth.Search(tr, q)
					if err != nil {
						t.Fatalf("linear failed: %v", err)
					}
					wantDists := sortedDistances(want)

					for _, alg := range knnAlgorithms[[]float64, float64](k)[1:] {
						got, err := alg.Search(tr, q)
						if err != nil {
							t.Fatalf("%s failed: %v", alg.Name(), err)
						}
						if len(got) != k {
							t.Fatalf("%s returned %d hits, want %d", alg.Name(), len(got), k)
						}

						gotDists := sortedDistances(got)
						for i := range wantDists {
							if math.Abs(gotDists[i]-wantDists[i]) > 1e-12 {
								t.Fatalf("query %d, k=%d: %s distance[%d] = %v, linear = %v",
									qi, k, alg.Name(), i, gotDists[i], wantDists[i])
							}
						}
					}
				}
			}
		})
	}
}

// TestApproxKnnBudgets tests that with tight leaf budgets the search still
// returns exactly k hits, and that with unlimited budgets it matches the
// exact depth-first sieve.
func TestApproxKnnBudgets(t *testing.T) {
	vectors := dataset.RandomVectors(1000, 10, 1.0, 37)
	tr := vectorTree(t, vectors)
	query := vectors[500]

	budgeted := ApproxKnnDfs[[]float64, float64]{K: 10, MaxLeaves: 5, MaxDistComps: math.MaxInt}
	hits, err := budgeted.Search(tr, query)
	if err != nil {
		t.Fatalf("budgeted search failed: %v", err)
	}
	if len(hits) != 10 {
		t.Fatalf("budgeted search returned %d hits, want exactly 10", len(hits))
	}

	// Recall against the linear ground truth is observational; it must at
	// least be a valid fraction, and with these budgets it is typically
	// well above half.
	truth, err := (KnnLinear[[]float64, float64]{K: 10}).Search(tr, query)
	if err != nil {
		t.Fatalf("linear search failed: %v", err)
	}
	stats, err := QualityOf([][]tree.Hit[float64]{truth}, [][]tree.Hit[float64]{hits})
	if err != nil {
		t.Fatalf("quality stats failed: %v", err)
	}
	if stats.Recall.Mean < 0 || stats.Recall.Mean > 1 {
		t.Errorf("recall %v outside [0, 1]", stats.Recall.Mean)
	}

	// Unlimited budgets reduce to the exact algorithm.
	unlimited := ApproxKnnDfs[[]float64, float64]{K: 10, MaxLeaves: math.MaxInt, MaxDistComps: math.MaxInt}
	exact := KnnDfs[[]float64, float64]{K: 10}
	for _, q := range dataset.RandomVectors(10, 10, 1.0, 41) {
		a, err := unlimited.Search(tr, q)
		if err != nil {
			t.Fatalf("unlimited search failed: %v", err)
		}
		b, err := exact.Search(tr, q)
		if err != nil {
			t.Fatalf("exact search failed: %v", err)
		}

		as, bs := sortedCopy(a), sortedCopy(b)
		if len(as) != len(bs) {
			t.Fatalf("unlimited returned %d hits, exact returned %d", len(as), len(bs))
		}
		for i := range as {
			if as[i] != bs[i] {
				t.Fatalf("hit %d differs: %v vs %v", i, as[i], bs[i])
			}
		}
	}
}

// TestKnnDfsIntegerMetric tests the depth-first sieve over an integer
// distance type, exercising the generic bounds.
func TestKnnDfsIntegerMetric(t *testing.T) {
	values := []int{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	tr := intLineTree(t, values)

	hits, err := (KnnDfs[int, int]{K: 4}).Search(tr, 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	want, err := (KnnLinear[int, int]{K: 4}).Search(tr, 5)
	if err != nil {
		t.Fatalf("linear failed: %v", err)
	}

	gd, wd := sortedDistances(hits), sortedDistances(want)
	for i := range wd {
		if gd[i] != wd[i] {
			t.Fatalf("distances %v, want %v", gd, wd)
		}
	}
}

// TestBatchMatchesSequential tests the batch drivers against per-query
// calls.
func TestBatchMatchesSequential(t *testing.T) {
	tr := vectorTree(t, dataset.RandomVectors(300, 4, 1.0, 43))
	queries := dataset.RandomVectors(25, 4, 1.0, 47)
	alg := KnnDfs[[]float64, float64]{K: 5}

	batched, err := Batch[[]float64, float64](alg, tr, queries)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	parBatched, err := ParBatch[[]float64, float64](alg, tr, queries)
	if err != nil {
		t.Fatalf("parallel batch failed: %v", err)
	}

	for i, q := range queries {
		single, err := alg.Search(tr, q)
		if err != nil {
			t.Fatalf("single search failed: %v", err)
		}

		ss := sortedCopy(single)
		for _, got := range [][]tree.Hit[float64]{batched[i], parBatched[i]} {
			gs := sortedCopy(got)
			if len(gs) != len(ss) {
				t.Fatalf("query %d: %d hits vs %d", i, len(gs), len(ss))
			}
			for j := range ss {
				if gs[j] != ss[j] {
					t.Fatalf("query %d hit %d differs", i, j)
				}
			}
		}
	}
}
