package search

import (
	"fmt"
	"time"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// MeasureThroughput runs the algorithm over the first n self-queries of the
// tree in a tight loop until at least minTime has elapsed, and returns the
// steady-state throughput in queries per second.
func MeasureThroughput[I any, U distance.Value](
	t *tree.Tree[I, U],
	nQueries int,
	alg Algorithm[I, U],
	minTime time.Duration,
) (float64, error) {
	queries := selfQueries(t, nQueries)

	totalQueries := 0
	start := time.Now()
	for time.Since(start) < minTime {
		if _, err := Batch(alg, t, queries); err != nil {
			return 0, err
		}
		totalQueries += len(queries)
	}
	return float64(totalQueries) / time.Since(start).Seconds(), nil
}

// ParMeasureThroughput is the parallel variant: each pass runs the batch
// through the worker pool.
func ParMeasureThroughput[I any, U distance.Value](
	t *tree.Tree[I, U],
	nQueries int,
	alg Algorithm[I, U],
	minTime time.Duration,
) (float64, error) {
	queries := selfQueries(t, nQueries)

	totalQueries := 0
	start := time.Now()
	for time.Since(start) < minTime {
		if _, err := ParBatch(alg, t, queries); err != nil {
			return 0, err
		}
		totalQueries += len(queries)
	}
	return float64(totalQueries) / time.Since(start).Seconds(), nil
}

// SelectFastest measures every candidate algorithm and returns the one with
// the highest throughput together with that throughput. Ties go to the
// algorithm that appears earlier in the list.
func SelectFastest[I any, U distance.Value](
	t *tree.Tree[I, U],
	nQueries int,
	minTime time.Duration,
	algorithms []Algorithm[I, U],
) (Algorithm[I, U], float64, error) {
	if len(algorithms) == 0 {
		return nil, 0, fmt.Errorf("no algorithms to select from: %w", tree.ErrInvalidInput)
	}

	var best Algorithm[I, U]
	bestThroughput := -1.0
	for _, alg := range algorithms {
		throughput, err := MeasureThroughput(t, nQueries, alg, minTime)
		if err != nil {
			return nil, 0, fmt.Errorf("measuring %s: %w", alg.Name(), err)
		}
		if throughput > bestThroughput {
			best, bestThroughput = alg, throughput
		}
	}
	return best, bestThroughput, nil
}

// ParSelectFastest is the parallel variant of SelectFastest, measuring with
// the batch-parallel driver.
func ParSelectFastest[I any, U distance.Value](
	t *tree.Tree[I, U],
	nQueries int,
	minTime time.Duration,
	algorithms []Algorithm[I, U],
) (Algorithm[I, U], float64, error) {
	if len(algorithms) == 0 {
		return nil, 0, fmt.Errorf("no algorithms to select from: %w", tree.ErrInvalidInput)
	}

	var best Algorithm[I, U]
	bestThroughput := -1.0
	for _, alg := range algorithms {
		throughput, err := ParMeasureThroughput(t, nQueries, alg, minTime)
		if err != nil {
			return nil, 0, fmt.Errorf("measuring %s: %w", alg.Name(), err)
		}
		if throughput > bestThroughput {
			best, bestThroughput = alg, throughput
		}
	}
	return best, bestThroughput, nil
}

// selfQueries draws the first min(n, cardinality) items of the arena as
// queries.
func selfQueries[I any, U distance.Value](t *tree.Tree[I, U], n int) []I {
	if n > t.Cardinality() {
		n = t.Cardinality()
	}
	queries := make([]I, n)
	for i := 0; i < n; i++ {
		queries[i] = t.Items()[i].Item
	}
	return queries
}
