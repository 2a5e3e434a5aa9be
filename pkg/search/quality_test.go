package search

import (
	"math"
	"testing"

	"github.com/mehulsinghal/entropic/pkg/tree"
)

func hitList(dists ...float64) []tree.Hit[float64] {
	hits := make([]tree.Hit[float64], len(dists))
	for i, d := range dists {
		hits[i] = tree.Hit[float64]{Index: i, Distance: d}
	}
	return hits
}

// TestQualityPerfectPrediction tests that identical hit lists score a
// recall of one and zero distance error.
func TestQualityPerfectPrediction(t *testing.T) {
	truth := [][]tree.Hit[float64]{
		hitList(0.1, 0.2, 0.3),
		hitList(0.5, 0.6, 0.7),
	}

	stats, err := QualityOf(truth, truth)
	if err != nil {
		t.Fatalf("quality failed: %v", err)
	}
	if stats.Recall.Min != 1 || stats.Recall.Max != 1 || stats.Recall.Mean != 1 {
		t.Errorf("recall summary %+v, want all ones", stats.Recall)
	}
	if stats.Recall.StdDev != 0 {
		t.Errorf("recall std dev %v, want 0", stats.Recall.StdDev)
	}
	if stats.DistanceError.Mean != 0 {
		t.Errorf("distance error %v, want 0", stats.DistanceError.Mean)
	}
}

// TestQualityPartialRecall tests the recall fraction when some predicted
// hits fall beyond the true farthest hit.
func TestQualityPartialRecall(t *testing.T) {
	truth := [][]tree.Hit[float64]{hitList(0.1, 0.2, 0.3, 0.4)}
	pred := [][]tree.Hit[float64]{hitList(0.1, 0.2, 0.9, 1.5)}

	stats, err := QualityOf(truth, pred)
	if err != nil {
		t.Fatalf("quality failed: %v", err)
	}
	if stats.Recall.Mean != 0.5 {
		t.Errorf("recall %v, want 0.5", stats.Recall.Mean)
	}
	if stats.DistanceError.Mean <= 0 {
		t.Errorf("distance error %v, want > 0 for overestimates", stats.DistanceError.Mean)
	}
}

// TestQualityZeroDistances tests that ratios involving zero distances
// contribute nothing to the distance error.
func TestQualityZeroDistances(t *testing.T) {
	truth := [][]tree.Hit[float64]{hitList(0, 0.2)}
	pred := [][]tree.Hit[float64]{hitList(0, 0.2)}

	stats, err := QualityOf(truth, pred)
	if err != nil {
		t.Fatalf("quality failed: %v", err)
	}
	if stats.DistanceError.Mean != 0 {
		t.Errorf("distance error %v, want 0", stats.DistanceError.Mean)
	}
	if math.IsNaN(stats.DistanceError.Mean) {
		t.Error("distance error must not be NaN")
	}
}

// TestQualityRejectsBadInput tests the input validation rules.
func TestQualityRejectsBadInput(t *testing.T) {
	good := [][]tree.Hit[float64]{hitList(0.1)}

	if _, err := QualityOf[float64](nil, nil); err == nil {
		t.Error("empty input must be rejected")
	}
	if _, err := QualityOf(good, [][]tree.Hit[float64]{}); err == nil {
		t.Error("mismatched outer lengths must be rejected")
	}
	if _, err := QualityOf([][]tree.Hit[float64]{{}}, [][]tree.Hit[float64]{{}}); err == nil {
		t.Error("empty true hit list must be rejected")
	}
	if _, err := QualityOf(good, [][]tree.Hit[float64]{hitList(0.1, 0.2)}); err == nil {
		t.Error("mismatched inner lengths must be rejected")
	}
}
