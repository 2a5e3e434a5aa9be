package search

import (
	"fmt"
	"math"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// Summary holds basic statistics over a series of per-query values.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// QualityStats summarizes how well predicted hit lists match the ground
// truth across a batch of queries.
type QualityStats struct {
	// Recall summarizes, per query, the fraction of predicted hits whose
	// distance is within the true farthest-hit distance.
	Recall Summary
	// DistanceError summarizes, per query, the mean relative error
	// predicted/true - 1 over distance-aligned hits; ratios involving a
	// zero distance contribute zero.
	DistanceError Summary
}

// QualityOf compares predicted hit lists against true hit lists, query by
// query. Both slices must have the same length, every true hit list must be
// non-empty, and each pair of lists must have equal length.
func QualityOf[U distance.Value](trueHits, predHits [][]tree.Hit[U]) (QualityStats, error) {
	var stats QualityStats

	if len(trueHits) == 0 {
		return stats, fmt.Errorf("no true hit lists: %w", tree.ErrInvalidInput)
	}
	if len(trueHits) != len(predHits) {
		return stats, fmt.Errorf("%d true hit lists vs %d predicted: %w", len(trueHits), len(predHits), tree.ErrInvalidInput)
	}

	recalls := make([]float64, len(trueHits))
	dErrs := make([]float64, len(trueHits))

	for i := range trueHits {
		if len(trueHits[i]) == 0 {
			return stats, fmt.Errorf("query %d has an empty true hit list: %w", i, tree.ErrInvalidInput)
		}
		if len(trueHits[i]) != len(predHits[i]) {
			return stats, fmt.Errorf("query %d: %d true hits vs %d predicted: %w", i, len(trueHits[i]), len(predHits[i]), tree.ErrInvalidInput)
		}

		tSorted := sortedByDistance(trueHits[i])
		pSorted := sortedByDistance(predHits[i])
		recalls[i] = recallOf(tSorted, pSorted)
		dErrs[i] = distanceErrorOf(tSorted, pSorted)
	}

	stats.Recall = summarize(recalls)
	stats.DistanceError = summarize(dErrs)
	return stats, nil
}

func sortedByDistance[U distance.Value](hits []tree.Hit[U]) []tree.Hit[U] {
	sorted := make([]tree.Hit[U], len(hits))
	copy(sorted, hits)
	sortHits(sorted)
	return sorted
}

// recallOf computes the fraction of predicted hits whose distance is within
// the true farthest-hit distance. Both inputs must be sorted by distance.
func recallOf[U distance.Value](trueHits, predHits []tree.Hit[U]) float64 {
	maxDistance := trueHits[len(trueHits)-1].Distance
	valid := 0
	for _, h := range predHits {
		if h.Distance <= maxDistance {
			valid++
		}
	}
	return float64(valid) / float64(len(trueHits))
}

// distanceErrorOf computes the mean of predicted/true - 1 over the aligned
// sorted hits; pairs where either distance is zero contribute zero.
func distanceErrorOf[U distance.Value](trueHits, predHits []tree.Hit[U]) float64 {
	var sum float64
	for i := range trueHits {
		dTrue := distance.ToFloat64(trueHits[i].Distance)
		dPred := distance.ToFloat64(predHits[i].Distance)
		if dTrue == 0 || dPred == 0 {
			continue
		}
		sum += dPred/dTrue - 1
	}
	return sum / float64(len(trueHits))
}

func summarize(values []float64) Summary {
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
	}
	s.Mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(sq / float64(len(values)))
	return s
}
