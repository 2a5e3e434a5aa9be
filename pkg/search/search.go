// Package search implements ranged and k-nearest-neighbor search over a
// partition tree.
//
// Exact algorithms (RnnChess, KnnDfs, KnnBfs, KnnRepeatedRnn) return the
// same hits as their linear-scan counterparts (RnnLinear, KnnLinear) while
// pruning by cluster geometry. ApproxKnnDfs bounds the work per query and
// returns whatever it has when a budget runs out. A selection harness
// measures steady-state throughput and picks the fastest algorithm for a
// given tree and metric.
package search

import (
	"runtime"
	"sort"
	"sync"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// Algorithm is the uniform interface over all search algorithms.
//
// Search returns (index, distance) pairs into the tree's arena; the order
// of the returned slice is unspecified unless an algorithm documents
// otherwise. ParSearch returns the same set of hits, possibly in a
// different order; algorithms that cannot profit from intra-query
// parallelism fall back to Search.
type Algorithm[I any, U distance.Value] interface {
	Name() string
	Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error)
	ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error)
}

// Batch runs the algorithm sequentially over a batch of queries.
func Batch[I any, U distance.Value](alg Algorithm[I, U], t *tree.Tree[I, U], queries []I) ([][]tree.Hit[U], error) {
	results := make([][]tree.Hit[U], len(queries))
	for i, q := range queries {
		hits, err := alg.Search(t, q)
		if err != nil {
			return nil, err
		}
		results[i] = hits
	}
	return results, nil
}

// ParBatch runs the algorithm over a batch of queries with a worker pool,
// one sequential search per query. This is the recommended parallel path:
// per-query parallelism has limited value at small k.
func ParBatch[I any, U distance.Value](alg Algorithm[I, U], t *tree.Tree[I, U], queries []I) ([][]tree.Hit[U], error) {
	results := make([][]tree.Hit[U], len(queries))
	errs := make([]error, len(queries))

	numWorkers := runtime.GOMAXPROCS(0)
	jobs := make(chan int, len(queries))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = alg.Search(t, queries[i])
			}
		}()
	}

	for i := range queries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ParBatchParSearch is like ParBatch but runs each query through the
// algorithm's parallel method.
func ParBatchParSearch[I any, U distance.Value](alg Algorithm[I, U], t *tree.Tree[I, U], queries []I) ([][]tree.Hit[U], error) {
	results := make([][]tree.Hit[U], len(queries))
	errs := make([]error, len(queries))

	numWorkers := runtime.GOMAXPROCS(0)
	jobs := make(chan int, len(queries))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = alg.ParSearch(t, queries[i])
			}
		}()
	}

	for i := range queries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// sortHits orders hits by distance, breaking ties by arena index so a run
// is reproducible.
func sortHits[U distance.Value](hits []tree.Hit[U]) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Index < hits[j].Index
	})
}
