package btl

import "gonum.org/v1/gonum/mat"

//MeltFeatures builds the cartesian product of row and column feature vectors.
//Pairs are laid out row-major: the pair (i, j) is the row i*nCols+j of the result
//and holds xRows[i] followed by xCols[j].
func MeltFeatures(xRows, xCols mat.Matrix) *mat.Dense {
	nRows, p := xRows.Dims()
	nCols, q := xCols.Dims()
	x := mat.NewDense(nRows*nCols, p+q, nil)
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			pair := i*nCols + j
			for f := 0; f < p; f++ {
				x.Set(pair, f, xRows.At(i, f))
			}
			for f := 0; f < q; f++ {
				x.Set(pair, p+f, xCols.At(j, f))
			}
		}
	}
	return x
}

//Melt flattens a bipartite data set into a single-table regression problem with the
//same pair order as MeltFeatures. The returned weights are products of the entity
//weights (all ones when the data set carries none).
func Melt(bm BMatrix) (x *mat.Dense, y []float64, w []float64, err error) {
	nRows, nCols, _, _, err := bm.validatedDimensions()
	if err != nil {
		return nil, nil, nil, err
	}
	rowWeights := unitIfNil(bm.RowWeights, nRows)
	colWeights := unitIfNil(bm.ColWeights, nCols)

	x = MeltFeatures(bm.XRows, bm.XCols)
	y = make([]float64, 0, nRows*nCols)
	w = make([]float64, 0, nRows*nCols)
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			y = append(y, bm.Y.At(i, j))
			w = append(w, rowWeights[i]*colWeights[j])
		}
	}
	return x, y, w, nil
}
