package btl

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// symmetryTol is the absolute tolerance of the kernel symmetry check.
const symmetryTol = 1e-10

//Height returns the number of rows of a matrix
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//Width returns the number of columns of a matrix
func Width(m mat.Matrix) int {
	_, w := m.Dims()
	return w
}

//columnArgsort returns the positions of entities ordered by the feature f of x.
//Positions with equal values keep their relative order.
func columnArgsort(x *mat.Dense, entities []int, f int) []int {
	order := make([]int, len(entities))
	for pos := range order {
		order[pos] = pos
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x.At(entities[order[a]], f) < x.At(entities[order[b]], f)
	})
	return order
}

//checkKernel verifies that m is square and symmetric.
func checkKernel(m mat.Matrix) error {
	r, c := m.Dims()
	if r != c {
		return fmt.Errorf("got shape (%d, %d): %w", r, c, ErrNotSquare)
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > symmetryTol {
				return fmt.Errorf("entries (%d, %d) and (%d, %d) differ: %w", i, j, j, i, ErrNotSymmetric)
			}
		}
	}
	return nil
}

//NanMean returns the mean of the non-NaN values, NaN if there are none.
func NanMean(values []float64) float64 {
	s, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			s += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return s / float64(n)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
