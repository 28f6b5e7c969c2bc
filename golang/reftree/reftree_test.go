package reftree

import (
	"math"
	"testing"
)

func linspace(start, end float64, num int) []float64 {
	if num <= 1 {
		return []float64{start}
	}
	step := (end - start) / float64(num-1)
	values := make([]float64, num)
	for i := 0; i < num; i++ {
		values[i] = start + float64(i)*step
	}
	return values
}

func TestFitStepFunction(t *testing.T) {
	features := [][]float64{{1, 7}, {2, 7}, {3, 7}, {4, 7}}
	target := []float64{10, 10, 30, 30}
	matrix, err := NewRMatrixFromDense(features, target, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, err := Fit(Params{}, matrix)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", tree.NodeCount())
	}
	root := tree.Nodes[0]
	if root.Feature != 0 || root.Threshold != 2.5 {
		t.Fatalf("root splits feature %d at %g, want 0 at 2.5", root.Feature, root.Threshold)
	}
	if math.Abs(root.Impurity-100) > 1e-12 {
		t.Fatalf("root impurity = %g, want 100", root.Impurity)
	}

	preds, err := tree.Predict([][]float64{{0, 0}, {2.5, 0}, {2.6, 0}, {100, 0}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	expected := []float64{10, 10, 30, 30}
	for i := range expected {
		if preds[i] != expected[i] {
			t.Fatalf("pred[%d] = %g, want %g", i, preds[i], expected[i])
		}
	}
}

func TestFitMinSamplesLeaf(t *testing.T) {
	xs := linspace(0, 1, 20)
	features := make([][]float64, len(xs))
	target := make([]float64, len(xs))
	for i, x := range xs {
		features[i] = []float64{x}
		target[i] = math.Sin(6 * x)
	}
	matrix, err := NewRMatrixFromDense(features, target, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}

	for _, msl := range []int{1, 3, 7} {
		tree, err := Fit(Params{MinSamplesLeaf: msl}, matrix)
		if err != nil {
			t.Fatalf("fit: %v", err)
		}
		for i, node := range tree.Nodes {
			if node.IsLeaf() && node.NNodeSamples < msl {
				t.Fatalf("min_samples_leaf=%d: leaf %d holds %d samples", msl, i, node.NNodeSamples)
			}
		}
		if msl == 1 && tree.NLeaves() != 20 {
			t.Fatalf("expected one leaf per sample, got %d", tree.NLeaves())
		}
	}
}

func TestFitMaxDepth(t *testing.T) {
	xs := linspace(-1, 1, 64)
	features := make([][]float64, len(xs))
	target := make([]float64, len(xs))
	for i, x := range xs {
		features[i] = []float64{x, x * x}
		target[i] = x * x * x
	}
	matrix, err := NewRMatrixFromDense(features, target, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, err := Fit(Params{MaxDepth: 2}, matrix)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.NLeaves() != 4 || tree.NodeCount() != 7 {
		t.Fatalf("expected a full tree of depth 2, got %d nodes and %d leaves", tree.NodeCount(), tree.NLeaves())
	}
	left, right := tree.ChildrenLeft(), tree.ChildrenRight()
	if left[0] != 1 || right[0] != 4 {
		t.Fatalf("root children = (%d, %d), want (1, 4)", left[0], right[0])
	}
	weighted := tree.WeightedNNodeSamples()
	if weighted[0] != 64 || tree.NNodeSamples()[0] != 64 {
		t.Fatalf("root samples = %g", weighted[0])
	}
	if values := tree.Value(); len(values) != 7 {
		t.Fatalf("expected 7 values, got %d", len(values))
	}
}

func TestFitWeights(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}}
	target := []float64{0, 0, 6}
	matrix, err := NewRMatrixFromDense(features, target, []float64{1, 1, 2})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, err := Fit(Params{MaxDepth: 1}, matrix)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.Nodes[0].Value != 3 || tree.Nodes[0].WeightedNNodeSamples != 4 {
		t.Fatalf("root value %g weight %g, want 3 and 4", tree.Nodes[0].Value, tree.Nodes[0].WeightedNNodeSamples)
	}

	if _, err := NewRMatrixFromDense(features, target, []float64{1, -1, 1}); err == nil {
		t.Fatalf("expected an error for negative weights")
	}
	zero, err := NewRMatrixFromDense(features, target, []float64{0, 0, 0})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	if _, err := Fit(Params{}, zero); err == nil {
		t.Fatalf("expected an error for zero total weight")
	}
}

func TestFitNoSplit(t *testing.T) {
	features := [][]float64{{1, 5}, {1, 5}, {1, 5 + featureThreshold/2}}
	matrix, err := NewRMatrixFromDense(features, []float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	tree, err := Fit(Params{}, matrix)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.NodeCount() != 1 || !tree.Nodes[0].IsLeaf() {
		t.Fatalf("expected a single leaf, got %d nodes", tree.NodeCount())
	}

	tree, err = Fit(Params{MinImpurityDecrease: 10}, matrix)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.NodeCount() != 1 {
		t.Fatalf("expected a single leaf, got %d nodes", tree.NodeCount())
	}
}

func TestSortOrder(t *testing.T) {
	matrix, err := NewRMatrixFromDense([][]float64{{3, 1}, {1, 1}, {2, 0}}, []float64{0, 0, 0}, nil)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	expected := [][]int{{1, 2, 0}, {2, 0, 1}}
	for j := range expected {
		for p := range expected[j] {
			if matrix.Order[j][p] != expected[j][p] {
				t.Fatalf("order[%d][%d] = %d, want %d", j, p, matrix.Order[j][p], expected[j][p])
			}
		}
	}

	left, err := matrix.GetSlice([]bool{true, false, true})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if left.Height() != 2 || left.Order[0][0] != 1 || left.Order[1][0] != 1 {
		t.Fatalf("slice order = %v", left.Order)
	}
	if _, err := matrix.GetSlice([]bool{true}); err == nil {
		t.Fatalf("expected an error for a short mask")
	}
	if _, err := NewRMatrixFromDense([][]float64{{1, 2}, {3}}, []float64{0, 0}, nil); err == nil {
		t.Fatalf("expected an error for ragged features")
	}
	if _, err := NewRMatrixFromDense(nil, nil, nil); err == nil {
		t.Fatalf("expected an error for empty features")
	}
}

func TestMidThreshold(t *testing.T) {
	if thr := midThreshold(1, 3); thr != 2 {
		t.Fatalf("midThreshold(1, 3) = %g", thr)
	}
	if thr := midThreshold(1, math.Nextafter(1, 2)); thr != 1 {
		t.Fatalf("adjacent floats give %g, want 1", thr)
	}
}
