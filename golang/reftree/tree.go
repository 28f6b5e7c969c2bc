package reftree

import (
	"errors"
	"math"
)

// TreeLeaf marks the absent children of a leaf.
const TreeLeaf = -1

var epsilon = math.Nextafter(1, 2) - 1

// Tree is a fitted regression tree stored as a flat node array.
type Tree struct {
	Nodes []Node
}

func (n Node) IsLeaf() bool {
	return n.Left == n.Right
}

// Fit grows a tree on the matrix, nodes numbered in depth-first order, left subtree first.
func Fit(params Params, matrix *RMatrix) (*Tree, error) {
	if matrix == nil || matrix.Height() == 0 {
		return nil, errors.New("empty matrix")
	}
	if params.MinSamplesLeaf < 0 || params.MaxDepth < 0 || params.MinImpurityDecrease < 0 {
		return nil, errors.New("negative parameter")
	}
	if params.MinSamplesLeaf == 0 {
		params.MinSamplesLeaf = 1
	}
	rootWeight, _, _ := matrix.totals()
	if rootWeight <= 0 {
		return nil, errors.New("total weight must be positive")
	}

	tree := &Tree{}
	if _, err := tree.buildTreeHelper(params, matrix, 0, rootWeight); err != nil {
		return nil, err
	}
	return tree, nil
}

func (t *Tree) buildTreeHelper(params Params, matrix *RMatrix, depth int, rootWeight float64) (int, error) {
	w, s, q := matrix.totals()
	nodeId := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:              TreeLeaf,
		Left:                 TreeLeaf,
		Right:                TreeLeaf,
		Impurity:             impurity(w, s, q),
		NNodeSamples:         matrix.Height(),
		WeightedNNodeSamples: w,
		Value:                s / w,
	})

	if priorFinish(params, t.Nodes[nodeId], depth) {
		return nodeId, nil
	}
	splitResult, err := Split(matrix, params, rootWeight)
	if err != nil {
		return 0, err
	}
	if splitResult == nil || splitResult.Improvement+epsilon < params.MinImpurityDecrease {
		return nodeId, nil
	}

	leftMatrix, err := matrix.GetSlice(splitResult.LeftMask)
	if err != nil {
		return 0, err
	}
	rightMatrix, err := matrix.GetSlice(splitResult.RightMask)
	if err != nil {
		return 0, err
	}

	t.Nodes[nodeId].Feature = splitResult.FeatureIndex
	t.Nodes[nodeId].Threshold = splitResult.Threshold
	left, err := t.buildTreeHelper(params, leftMatrix, depth+1, rootWeight)
	if err != nil {
		return 0, err
	}
	t.Nodes[nodeId].Left = left
	right, err := t.buildTreeHelper(params, rightMatrix, depth+1, rootWeight)
	if err != nil {
		return 0, err
	}
	t.Nodes[nodeId].Right = right
	return nodeId, nil
}

func priorFinish(params Params, node Node, depth int) bool {
	return (params.MaxDepth > 0 && depth >= params.MaxDepth) ||
		node.NNodeSamples < 2 ||
		node.NNodeSamples < 2*params.MinSamplesLeaf ||
		node.Impurity <= epsilon
}

// Predict returns the leaf value reached by every sample.
func (t *Tree) Predict(features [][]float64) ([]float64, error) {
	if t == nil || len(t.Nodes) == 0 {
		return nil, errors.New("nil tree")
	}
	preds := make([]float64, len(features))
	for i, x := range features {
		ind := 0
		for !t.Nodes[ind].IsLeaf() {
			node := t.Nodes[ind]
			if node.Feature >= len(x) {
				return nil, errors.New("feature index out of range")
			}
			if x[node.Feature] <= node.Threshold {
				ind = node.Left
			} else {
				ind = node.Right
			}
		}
		preds[i] = t.Nodes[ind].Value
	}
	return preds, nil
}

func (t *Tree) NodeCount() int {
	return len(t.Nodes)
}

func (t *Tree) NLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

func (t *Tree) ChildrenLeft() []int {
	out := make([]int, len(t.Nodes))
	for i, node := range t.Nodes {
		out[i] = node.Left
	}
	return out
}

func (t *Tree) ChildrenRight() []int {
	out := make([]int, len(t.Nodes))
	for i, node := range t.Nodes {
		out[i] = node.Right
	}
	return out
}

func (t *Tree) Impurity() []float64 {
	out := make([]float64, len(t.Nodes))
	for i, node := range t.Nodes {
		out[i] = node.Impurity
	}
	return out
}

func (t *Tree) NNodeSamples() []int {
	out := make([]int, len(t.Nodes))
	for i, node := range t.Nodes {
		out[i] = node.NNodeSamples
	}
	return out
}

func (t *Tree) WeightedNNodeSamples() []float64 {
	out := make([]float64, len(t.Nodes))
	for i, node := range t.Nodes {
		out[i] = node.WeightedNNodeSamples
	}
	return out
}

func (t *Tree) Value() []float64 {
	out := make([]float64, len(t.Nodes))
	for i, node := range t.Nodes {
		out[i] = node.Value
	}
	return out
}
