// Package dataset generates seeded random datasets for tests, benchmarks,
// and the CLI.
package dataset

import "math/rand"

// RandomVectors generates n vectors of the given dimension with coordinates
// drawn uniformly from [0, max). The same seed always yields the same data.
func RandomVectors(n, dim int, max float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float64, n)
	for i := range vectors {
		v := make([]float64, dim)
		for j := range v {
			v[j] = rng.Float64() * max
		}
		vectors[i] = v
	}
	return vectors
}

// Lattice generates every integer lattice point in [-half, half]^2 as a
// 2-D vector, row-major.
func Lattice(half int) [][]float64 {
	side := 2*half + 1
	points := make([][]float64, 0, side*side)
	for x := -half; x <= half; x++ {
		for y := -half; y <= half; y++ {
			points = append(points, []float64{float64(x), float64(y)})
		}
	}
	return points
}
