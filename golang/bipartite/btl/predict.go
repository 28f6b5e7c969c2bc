package btl

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//Apply returns the index of the leaf reached by the pair (xRow, xCol). Row axis nodes
//test xRow, column axis nodes test xCol; values not above the threshold go left.
func (tree *Tree) Apply(xRow, xCol []float64) int {
	ind := 0
	for !tree.Nodes[ind].IsLeaf() {
		node := &tree.Nodes[ind]
		x := xRow
		if node.Axis == ColAxis {
			x = xCol
		}
		if x[node.Feature] <= node.Threshold {
			ind = node.LeftIndex
		} else {
			ind = node.RightIndex
		}
	}
	return ind
}

//pairSource yields the row part and the column part of the k-th query pair.
type pairSource func(k int) (xRow, xCol []float64)

//Predict returns one prediction row per pair of the cross product of xRows and xCols,
//in row-major order: the pair (i, j) is the row i*nCols+j.
func (r *Regressor) Predict(xRows, xCols mat.Matrix) (*mat.Dense, error) {
	if r.tree == nil {
		return nil, ErrNotFitted
	}
	nRows, p := xRows.Dims()
	nCols, q := xCols.Dims()
	if p != r.nRowFeats || q != r.nColFeats {
		return nil, fmt.Errorf("got (%d, %d) features, fitted with (%d, %d): %w", p, q, r.nRowFeats, r.nColFeats, ErrDimensionMismatch)
	}

	rows := make([][]float64, nRows)
	for i := range rows {
		rows[i] = mat.Row(nil, i, xRows)
	}
	cols := make([][]float64, nCols)
	for j := range cols {
		cols[j] = mat.Row(nil, j, xCols)
	}
	return r.predict(nRows*nCols, func(k int) ([]float64, []float64) {
		return rows[k/nCols], cols[k%nCols]
	})
}

//PredictPairs predicts explicit pairs: every row of x is a row feature vector
//followed by a column feature vector.
func (r *Regressor) PredictPairs(x mat.Matrix) (*mat.Dense, error) {
	if r.tree == nil {
		return nil, ErrNotFitted
	}
	n, w := x.Dims()
	if w != r.nRowFeats+r.nColFeats {
		return nil, fmt.Errorf("got %d pair features, fitted with %d + %d: %w", w, r.nRowFeats, r.nColFeats, ErrDimensionMismatch)
	}

	pairs := make([][]float64, n)
	for k := range pairs {
		pairs[k] = mat.Row(nil, k, x)
	}
	return r.predict(n, func(k int) ([]float64, []float64) {
		return pairs[k][:r.nRowFeats], pairs[k][r.nRowFeats:]
	})
}

func (r *Regressor) predict(n int, source pairSource) (*mat.Dense, error) {
	if n == 0 {
		return nil, ErrEmptyData
	}
	prediction := mat.NewDense(n, r.aggregator.width(r.tree), nil)
	predictRange := func(begin, end int) error {
		for k := begin; k < end; k++ {
			xRow, xCol := source(k)
			leaf := &r.tree.Nodes[r.tree.Apply(xRow, xCol)]
			if err := r.aggregator.aggregate(leaf, xRow, xCol, prediction.RawRowView(k)); err != nil {
				return fmt.Errorf("pair %d: %w", k, err)
			}
		}
		return nil
	}

	if r.params.ThreadsNum <= 1 || n < 2*r.params.ThreadsNum {
		if err := predictRange(0, n); err != nil {
			return nil, err
		}
		return prediction, nil
	}

	chunk := (n + r.params.ThreadsNum - 1) / r.params.ThreadsNum
	taskPool := NewPool(r.params.ThreadsNum)
	for begin := 0; begin < n; begin += chunk {
		taskPool.AddTask(&TaskPredict{begin: begin, end: min(begin+chunk, n), predict: predictRange})
	}
	if err := taskPool.WaitAll(); err != nil {
		return nil, err
	}
	return prediction, nil
}
