package search

import (
	"fmt"
	"math"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// KnnRepeatedRnn answers k-nearest-neighbor queries by repeated ranged
// search: it estimates a radius likely to enclose k items from the root's
// local fractal dimension, probes with the CHESS descent, and escalates the
// radius until enough hits are confirmed. The escalation factor follows the
// fractal-dimension assumption that halving the radius divides the enclosed
// population by roughly 2^lfd.
type KnnRepeatedRnn[I any, U distance.Value] struct {
	K int
}

func (a KnnRepeatedRnn[I, U]) Name() string {
	return fmt.Sprintf("KnnRrnn(k=%d)", a.K)
}

func (a KnnRepeatedRnn[I, U]) Search(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	if a.K <= 0 {
		return nil, nil
	}
	if a.K >= t.Cardinality() {
		return t.DistancesToAllItems(query)
	}

	root := t.Root()
	if root.Radius() == 0 {
		// Every item is coincident with the center; any k of them are the
		// k nearest.
		all, err := t.DistancesToAllItems(query)
		if err != nil {
			return nil, err
		}
		sortHits(all)
		return all[:a.K], nil
	}

	radius := a.initialRadius(t, root)
	if radius <= 0 {
		radius = distance.ToFloat64(root.Radius()) / float64(t.Cardinality())
	}
	maxRadius := distance.ToFloat64(root.Radius())
	d, err := t.DistanceToCenter(query, root)
	if err != nil {
		return nil, err
	}
	maxRadius += distance.ToFloat64(d)

	for {
		r, err := distance.FromFloat64[U](radius)
		if err != nil {
			return nil, fmt.Errorf("escalated radius: %w", err)
		}
		if distance.ToFloat64(r) < radius {
			// Integer truncation: round the probe radius up so it makes
			// progress.
			r += 1
		}

		cls, err := classify(t, query, r)
		if err != nil {
			return nil, err
		}

		confirmed := len(cls.centers)
		for _, c := range cls.subsumed {
			confirmed += c.Cardinality() - 1
		}

		if confirmed >= a.K {
			hits, err := RnnChess[I, U]{Radius: r}.Search(t, query)
			if err != nil {
				return nil, err
			}
			sortHits(hits)
			return hits[:a.K], nil
		}

		if radius >= maxRadius {
			// The ball already covers the whole tree; the shortfall cannot
			// be repaired by growing it further.
			hits, err := t.DistancesToAllItems(query)
			if err != nil {
				return nil, err
			}
			sortHits(hits)
			return hits[:a.K], nil
		}

		radius *= a.escalationFactor(root, cls, confirmed)
	}
}

func (a KnnRepeatedRnn[I, U]) ParSearch(t *tree.Tree[I, U], query I) ([]tree.Hit[U], error) {
	return a.Search(t, query)
}

// initialRadius estimates a ball radius expected to enclose k items:
// radius * (k/n)^(1/lfd), using the root's LFD.
func (a KnnRepeatedRnn[I, U]) initialRadius(t *tree.Tree[I, U], root *tree.Cluster[U]) float64 {
	lfd := root.LFD()
	if lfd <= 0 {
		lfd = 1
	}
	frac := float64(a.K) / float64(t.Cardinality())
	return distance.ToFloat64(root.Radius()) * math.Pow(frac, 1/lfd)
}

// escalationFactor chooses the radius multiplier for the next probe. With
// no confirmed hits the radius doubles; otherwise the factor is
// (k/confirmed)^(1/H), clamped into (1, 2], where H is the harmonic mean of
// the LFDs of the clusters the previous probe touched.
func (a KnnRepeatedRnn[I, U]) escalationFactor(root *tree.Cluster[U], cls classification[U], confirmed int) float64 {
	if confirmed == 0 {
		return 2
	}

	var invSum float64
	var count int
	for _, c := range cls.subsumed {
		if c.LFD() > 0 {
			invSum += 1 / c.LFD()
			count++
		}
	}
	for _, c := range cls.straddlers {
		if c.LFD() > 0 {
			invSum += 1 / c.LFD()
			count++
		}
	}

	h := root.LFD()
	if count > 0 && invSum > 0 {
		h = float64(count) / invSum
	}
	if h <= 0 {
		h = 1
	}

	factor := math.Pow(float64(a.K)/float64(confirmed), 1/h)
	const floor = 1.0 + 1.0/16
	if factor < floor || math.IsNaN(factor) {
		factor = floor
	}
	if factor > 2 {
		factor = 2
	}
	return factor
}
