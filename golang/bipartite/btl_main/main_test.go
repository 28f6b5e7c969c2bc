package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pedroilidio/hypertree/golang/bipartite/btl"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func TestTreeConfigParams(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "config.yaml")
	writeFile(t, src, `
description: toy
tree:
  min_samples_leaf: 3
  min_rows_leaf: 2
  max_depth: 5
  min_impurity_decrease: 0.01
  splitter: random
  bipartite_adapter: local_multioutput
  prediction_weights: square
  random_state: 17
  threads_num: 2
`)
	var config FitPredictConfig
	require.NoError(t, decodeConfig(src, &config))
	assert.Equal(t, "toy", config.Description)

	params, err := config.Tree.Params()
	require.NoError(t, err)
	assert.Equal(t, 3, params.MinSamplesLeaf)
	assert.Equal(t, 2, params.MinRowsLeaf)
	assert.Equal(t, 5, params.MaxDepth)
	assert.Equal(t, 0.01, params.MinImpurityDecrease)
	assert.Equal(t, btl.RandomSplitter, params.Splitter)
	assert.Equal(t, btl.LocalMultiOutput, params.Adapter)
	assert.Equal(t, btl.WeightsTransform, params.PredictionWeights.Kind)
	assert.Equal(t, int64(17), params.RandomState)
	assert.Equal(t, 2, params.ThreadsNum)

	t.Setenv("HYPERTREE_THREADS_NUM", "6")
	params, err = config.Tree.Params()
	require.NoError(t, err)
	assert.Equal(t, 6, params.ThreadsNum)

	t.Setenv("HYPERTREE_THREADS_NUM", "many")
	_, err = config.Tree.Params()
	assert.Error(t, err)
}

func TestTreeConfigUnknownNames(t *testing.T) {
	_, err := TreeConfig{Splitter: "greedy"}.Params()
	assert.ErrorIs(t, err, btl.ErrUnknownSplitter)
	_, err = TreeConfig{BipartiteAdapter: "global_multioutput"}.Params()
	assert.ErrorIs(t, err, btl.ErrUnknownAdapter)
	_, err = TreeConfig{PredictionWeights: "cubic"}.Params()
	assert.ErrorIs(t, err, btl.ErrUnknownWeights)

	assert.Error(t, decodeConfig(filepath.Join(t.TempDir(), "missing.yaml"), &FitPredictConfig{}))
}

func TestFitPredict(t *testing.T) {
	dir := t.TempDir()
	path := func(name string) string { return filepath.Join(dir, name) }

	xRows := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	xCols := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(4, 3, []float64{
		0, 0, 5,
		0, 0, 5,
		10, 10, 15,
		10, 10, 15,
	})
	require.NoError(t, btl.WriteNpy(path("rows.npy"), xRows))
	require.NoError(t, btl.WriteNpy(path("cols.npy"), xCols))
	require.NoError(t, btl.WriteNpy(path("y.npy"), y))
	require.NoError(t, btl.WriteNpy(path("test_rows.npy"), mat.NewDense(2, 1, []float64{0, 10})))

	src := path("config.yaml")
	writeFile(t, src, fmt.Sprintf(`
description: blocks
filename_train_rows: %s
filename_train_cols: %s
filename_train_target: %s
filename_test_rows: %s
filename_test_cols: %s
filename_prediction: %s
tree:
  splitter: best
`, path("rows.npy"), path("cols.npy"), path("y.npy"), path("test_rows.npy"), path("cols.npy"), path("prediction.npy")))

	require.NoError(t, fitPredict(src))
	prediction, err := btl.ReadNpy(path("prediction.npy"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 5, 10, 10, 15}, prediction.RawMatrix().Data)

	require.NoError(t, describe(src))
}

func TestFitPredictMissingData(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "config.yaml")
	writeFile(t, src, "filename_train_rows: "+filepath.Join(dir, "absent.npy")+"\n")
	assert.Error(t, fitPredict(src))
}
