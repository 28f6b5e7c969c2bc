package btl

import (
	"math"
	"math/rand"
	"os"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func randomDense(rng *rand.Rand, h, w int) *mat.Dense {
	data := make([]float64, h*w)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(h, w, data)
}

//symmetricDense returns a random symmetric n x n matrix, usable as a kernel.
func symmetricDense(rng *rand.Rand, n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rng.Float64()
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
	return m
}

//createInteractionData builds a bipartite data set whose target mixes a smooth
//interaction of the first features with gaussian noise.
func createInteractionData(seed int64, nRows, nCols, p, q int) BMatrix {
	rng := rand.New(rand.NewSource(seed))
	xRows := randomDense(rng, nRows, p)
	xCols := randomDense(rng, nCols, q)
	y := mat.NewDense(nRows, nCols, nil)
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			v := 10*xRows.At(i, 0)*xCols.At(j, 0) + 3*math.Sin(6*xRows.At(i, p-1)) + rng.NormFloat64()
			y.Set(i, j, v)
		}
	}
	return BMatrix{XRows: xRows, XCols: xCols, Y: y}
}

//createKernelData builds a data set whose features are symmetric similarity matrices.
func createKernelData(seed int64, nRows, nCols int) BMatrix {
	rng := rand.New(rand.NewSource(seed))
	y := randomDense(rng, nRows, nCols)
	y.Scale(10, y)
	return BMatrix{XRows: symmetricDense(rng, nRows), XCols: symmetricDense(rng, nCols), Y: y}
}

//createClusteredData tiles a 10 x 10 grid of distinct values so that every cluster
//spans mrl rows and mcl columns. Each axis carries 50 random features; only the first
//one is sorted along the clusters. Rows and columns are shuffled.
func createClusteredData(seed int64, mrl, mcl int) BMatrix {
	const nClusters, nFeatures = 10, 50
	rng := rand.New(rand.NewSource(seed))
	nRows, nCols := nClusters*mrl, nClusters*mcl

	sortedFeatures := func(n int) *mat.Dense {
		x := randomDense(rng, n, nFeatures)
		first := mat.Col(nil, 0, x)
		sort.Float64s(first)
		x.SetCol(0, first)
		return x
	}
	rowFeatures, colFeatures := sortedFeatures(nRows), sortedFeatures(nCols)

	rowPerm, colPerm := rng.Perm(nRows), rng.Perm(nCols)
	xRows := mat.NewDense(nRows, nFeatures, nil)
	xCols := mat.NewDense(nCols, nFeatures, nil)
	y := mat.NewDense(nRows, nCols, nil)
	for i, pi := range rowPerm {
		xRows.SetRow(i, rowFeatures.RawRowView(pi))
		for j, pj := range colPerm {
			y.Set(i, j, float64((pi/mrl)*nClusters+pj/mcl))
		}
	}
	for j, pj := range colPerm {
		xCols.SetRow(j, colFeatures.RawRowView(pj))
	}
	return BMatrix{XRows: xRows, XCols: xCols, Y: y}
}

type leafRecord struct {
	value, impurity, weight float64
	samples                 int
}

func sortLeaves(leaves []leafRecord) []leafRecord {
	sort.Slice(leaves, func(a, b int) bool {
		if leaves[a].value != leaves[b].value {
			return leaves[a].value < leaves[b].value
		}
		if leaves[a].impurity != leaves[b].impurity {
			return leaves[a].impurity < leaves[b].impurity
		}
		return leaves[a].weight < leaves[b].weight
	})
	return leaves
}

//requireCloseSlices checks |a-b| <= atol + rtol*|b| element-wise.
func requireCloseSlices(t *testing.T, expected, actual []float64, rtol, atol float64) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		require.LessOrEqualf(t, math.Abs(expected[i]-actual[i]), atol+rtol*math.Abs(expected[i]),
			"position %d: expected %g, got %g", i, expected[i], actual[i])
	}
}

func fitRegressor(t *testing.T, bm BMatrix, params RegressorParams) *Regressor {
	t.Helper()
	clf, err := NewRegressor(params)
	require.NoError(t, err)
	require.NoError(t, clf.Fit(bm))
	return clf
}
