package reftree

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RMatrix is a flat weighted regression table. Order[j] lists the sample indices in
// ascending order of feature j, ties broken by index.
type RMatrix struct {
	Features [][]float64
	Target   []float64
	Weights  []float64
	Order    [][]int
}

// NewRMatrixFromDense copies the inputs. Nil weights mean unit weights.
func NewRMatrixFromDense(features [][]float64, target, weights []float64) (*RMatrix, error) {
	if len(features) != len(target) {
		return nil, errors.New("features and target must have the same length")
	}
	if weights != nil && len(weights) != len(target) {
		return nil, errors.New("weights length mismatch")
	}
	for _, w := range weights {
		if w < 0 {
			return nil, errors.New("negative weight")
		}
	}
	keep := make([]int, len(target))
	for i := range keep {
		keep[i] = i
	}
	if weights == nil {
		weights = make([]float64, len(target))
		for i := range weights {
			weights[i] = 1
		}
	}
	return gather(features, target, weights, keep)
}

// NewRMatrixFromMat reads the features from a gonum matrix, one sample per row.
func NewRMatrixFromMat(x mat.Matrix, target, weights []float64) (*RMatrix, error) {
	rows, _ := x.Dims()
	features := make([][]float64, rows)
	for i := range features {
		features[i] = mat.Row(nil, i, x)
	}
	return NewRMatrixFromDense(features, target, weights)
}

//gather copies the samples listed in keep into a new matrix and sorts every feature.
func gather(features [][]float64, target, weights []float64, keep []int) (*RMatrix, error) {
	if len(keep) == 0 {
		return nil, errors.New("empty features")
	}
	width := len(features[keep[0]])
	matrix := &RMatrix{
		Features: make([][]float64, len(keep)),
		Target:   make([]float64, len(keep)),
		Weights:  make([]float64, len(keep)),
	}
	for k, i := range keep {
		if len(features[i]) != width {
			return nil, errors.New("inconsistent feature widths")
		}
		matrix.Features[k] = append([]float64(nil), features[i]...)
		matrix.Target[k] = target[i]
		matrix.Weights[k] = weights[i]
	}
	matrix.Order = sortOrder(matrix.Features, width)
	return matrix, nil
}

//sortOrder argsorts every feature column.
func sortOrder(features [][]float64, width int) [][]int {
	order := make([][]int, width)
	for j := range order {
		idx := make([]int, len(features))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool {
			va, vb := features[idx[a]][j], features[idx[b]][j]
			if va != vb {
				return va < vb
			}
			return idx[a] < idx[b]
		})
		order[j] = idx
	}
	return order
}

func (r *RMatrix) Height() int {
	return len(r.Target)
}

// GetSlice returns the samples selected by mask.
func (r *RMatrix) GetSlice(mask []bool) (*RMatrix, error) {
	if len(mask) != r.Height() {
		return nil, errors.New("mask length mismatch")
	}
	keep := make([]int, 0, len(mask))
	for i, in := range mask {
		if in {
			keep = append(keep, i)
		}
	}
	return gather(r.Features, r.Target, r.Weights, keep)
}

// totals returns the weight, the weighted sum and the weighted sum of squares of the target.
func (r *RMatrix) totals() (w, s, q float64) {
	for i, y := range r.Target {
		w += r.Weights[i]
		s += r.Weights[i] * y
		q += r.Weights[i] * y * y
	}
	return w, s, q
}

func impurity(w, s, q float64) float64 {
	mean := s / w
	return q/w - mean*mean
}
