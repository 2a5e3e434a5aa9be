package tree

import (
	"math"

	"github.com/mehulsinghal/entropic/pkg/distance"
)

// Strategy controls how clusters are partitioned during a build.
//
// The zero value is normalized to the defaults: sampling thresholds of 256
// and 65536, no min- or max-split constraint, a depth stride of 128, and the
// default stopping rule (stop when cardinality <= 2 or radius == 0).
type Strategy[U distance.Value] struct {
	// SqrtThresh and Log2Thresh shape the geometric-median sampling
	// schedule: populations below SqrtThresh are sampled in full, the next
	// band contributes the square root of its size, and anything beyond
	// contributes only its log2.
	SqrtThresh int
	Log2Thresh int

	// MinSplit requires the smaller child to hold at least MinSplit*n items;
	// a violating split is abandoned and the cluster stays a leaf. Must be
	// in [0, 1). Zero disables the constraint.
	MinSplit float64

	// MaxSplit caps the larger child at MaxSplit*n items; an oversized child
	// range is re-split until every child range fits, so a cluster may
	// record more than two children. Must be in (0, 1]. One (or zero, which
	// normalizes to one) disables the constraint. Balanced-tree consumers
	// typically set 0.75 or 0.9.
	MaxSplit float64

	// DepthStride bounds the depth processed in one pass of the iterative
	// builder; deeper tasks are deferred to a chained follow-up pass.
	DepthStride int

	// ShouldPartition is consulted after a cluster's radius and LFD are
	// known. Nil means the default rule: partition while cardinality > 2
	// and radius > 0.
	ShouldPartition func(c *Cluster[U]) bool
}

// DefaultStrategy returns the default partition strategy.
func DefaultStrategy[U distance.Value]() Strategy[U] {
	return Strategy[U]{
		SqrtThresh:  256,
		Log2Thresh:  65536,
		MinSplit:    0,
		MaxSplit:    1,
		DepthStride: 128,
	}
}

// normalized fills zero fields with their defaults and clamps the split
// fractions to their domains.
func (s Strategy[U]) normalized() Strategy[U] {
	if s.SqrtThresh <= 0 {
		s.SqrtThresh = 256
	}
	if s.Log2Thresh <= 0 {
		s.Log2Thresh = 65536
	}
	if s.MinSplit < 0 || s.MinSplit >= 1 {
		s.MinSplit = 0
	}
	if s.MaxSplit <= 0 || s.MaxSplit > 1 {
		s.MaxSplit = 1
	}
	if s.DepthStride <= 0 {
		s.DepthStride = 128
	}
	return s
}

// shouldPartition applies the configured or default stopping rule.
func (s Strategy[U]) shouldPartition(c *Cluster[U]) bool {
	if s.ShouldPartition != nil {
		return s.ShouldPartition(c)
	}
	return c.cardinality > 2 && c.radius > 0
}

// numSamples returns how many of the first items of a population are used
// to estimate the geometric median, keeping center selection near-linear
// over the whole build.
func numSamples(populationSize, sqrtThresh, log2Thresh int) int {
	if populationSize < sqrtThresh {
		return populationSize
	}
	if populationSize < sqrtThresh+log2Thresh {
		return sqrtThresh + int(math.Sqrt(float64(populationSize-sqrtThresh)))
	}
	return sqrtThresh + int(math.Sqrt(float64(log2Thresh))+math.Log2(float64(populationSize-sqrtThresh-log2Thresh)))
}

// lfdEstimate estimates the Local Fractal Dimension from the radial
// distances of a cluster's non-center items and its radius, as
// log2((N+1)/(h+1)) where h counts distances within half the radius.
//
// Singletons, two-item clusters, and clusters whose half-radius rounds to
// zero have an LFD of 1 by definition, as does any input that would produce
// a non-finite value.
func lfdEstimate[U distance.Value](distances []U, radius U) float64 {
	half := distance.Half(radius)
	if len(distances) < 2 || half == 0 {
		return 1.0
	}

	halfCount := 0
	for _, d := range distances {
		if d <= half {
			halfCount++
		}
	}

	lfd := math.Log2(float64(len(distances)+1) / float64(halfCount+1))
	if math.IsNaN(lfd) || math.IsInf(lfd, 0) {
		return 1.0
	}
	return lfd
}
