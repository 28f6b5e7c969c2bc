package btl

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

//TreeLeaf marks the absent children of a leaf.
const TreeLeaf = -1

//epsilon is the float64 machine epsilon.
var epsilon = math.Nextafter(1, 2) - 1

//TreeNode is a node of a tree. Tree is stored in an array. LeftIndex and RightIndex are equal to TreeLeaf
//when the current node is a leaf otherwise they contain array indices of children.
type TreeNode struct {
	NodeId                int
	Axis                  Axis
	Feature               int // within the axis
	FeatureIndex          int // column of the melted table
	Threshold             float64
	LeftIndex, RightIndex int
	Impurity              float64
	NNodeSamples          int
	WeightedNNodeSamples  float64
	NRows, NCols          int
	Depth                 int

	// Weighted mean of the box entries.
	Mean float64
	// Multi-output profiles indexed by fit-time rows and columns; NaN outside the box.
	RowProfile []float64
	ColProfile []float64
}

//NewTreeNode creates a leaf with the given id.
func NewTreeNode(nodeId int) TreeNode {
	return TreeNode{NodeId: nodeId, Feature: -1, FeatureIndex: -1, LeftIndex: TreeLeaf, RightIndex: TreeLeaf}
}

//NewTreeNodeFromSplitInfo turns a leaf into a decision node testing the feature and the
//threshold of a BestSplit. nRowFeatures is the width of the row feature matrix.
func NewTreeNodeFromSplitInfo(node TreeNode, splitInfo BestSplit, nRowFeatures int) TreeNode {
	node.Axis = splitInfo.Axis
	node.Feature = splitInfo.Feature
	node.FeatureIndex = splitInfo.Feature
	if splitInfo.Axis == ColAxis {
		node.FeatureIndex += nRowFeatures
	}
	node.Threshold = splitInfo.Threshold
	return node
}

//IsLeaf returns whether this node is a leaf.
func (node TreeNode) IsLeaf() bool {
	return node.LeftIndex == node.RightIndex
}

//Description returns a short multi-line summary of the node.
func (node TreeNode) Description() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("id:", node.NodeId, "depth:", node.Depth))
	sb.WriteString(fmt.Sprintf("box: %d x %d (weight %g)\n", node.NRows, node.NCols, node.WeightedNNodeSamples))
	sb.WriteString(fmt.Sprintf("impurity: %g mean: %g", node.Impurity, node.Mean))
	if !node.IsLeaf() {
		sb.WriteString(fmt.Sprintf("\n%s f_%d <= %6.5f", node.Axis, node.Feature, node.Threshold))
	}
	return sb.String()
}

//Tree is a fitted bipartite tree stored as a flat node arena.
type Tree struct {
	Nodes    []TreeNode
	Adapter  AdapterKind
	NRowsFit int
	NColsFit int
	MaxDepth int // the deepest node
}

//stackItem is a pending node: its box, its depth and the slot of its parent.
type stackItem struct {
	rows, cols []int
	depth      int
	parent     int
	isLeft     bool
}

type buildStack []stackItem

func (s buildStack) Empty() bool       { return len(s) == 0 }
func (s *buildStack) Push(n stackItem) { *s = append(*s, n) }
func (s *buildStack) Pop() stackItem {
	d := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return d
}

func indexRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

//BuildTree grows a tree on a bipartite data set. Inputs are validated before any node is built.
func BuildTree(bm BMatrix, params RegressorParams) (*Tree, error) {
	nRows, nCols, p, _, err := bm.validatedDimensions()
	if err != nil {
		return nil, err
	}
	if params, err = params.withDefaults(); err != nil {
		return nil, err
	}

	data := newFitData(bm)
	rootWeight := floats.Sum(data.rowWeights) * floats.Sum(data.colWeights)
	if rootWeight <= 0 {
		return nil, fmt.Errorf("total sample weight is %g: %w", rootWeight, ErrInvalidParam)
	}

	criterion := params.Adapter.criterion()
	multiOutput := params.Adapter == LocalMultiOutput
	rngs := [2]*rand.Rand{
		rand.New(rand.NewSource(params.RandomState)),
		rand.New(rand.NewSource(params.RandomState + 1)),
	}
	maxFeatures := [2]int{params.MaxRowFeatures, params.MaxColFeatures}

	tree := &Tree{Nodes: make([]TreeNode, 0), Adapter: params.Adapter, NRowsFit: nRows, NColsFit: nCols}

	s := new(buildStack)
	s.Push(stackItem{rows: indexRange(nRows), cols: indexRange(nCols), parent: TreeLeaf})

	for !s.Empty() {
		w := s.Pop()
		nodeId := len(tree.Nodes)
		if w.parent != TreeLeaf {
			if w.isLeft {
				tree.Nodes[w.parent].LeftIndex = nodeId
			} else {
				tree.Nodes[w.parent].RightIndex = nodeId
			}
		}

		ctx := &splitContext{
			data:           data,
			criterion:      criterion,
			minEntities:    [2]int{params.MinRowsLeaf, params.MinColsLeaf},
			minSamplesLeaf: params.MinSamplesLeaf,
		}
		ctx.stats[RowAxis] = criterion.stats(data, RowAxis, w.rows, w.cols)
		ctx.stats[ColAxis] = criterion.stats(data, ColAxis, w.cols, w.rows)

		node := NewTreeNode(nodeId)
		node.Depth = w.depth
		node.NRows, node.NCols = len(w.rows), len(w.cols)
		node.NNodeSamples = node.NRows * node.NCols
		node.Impurity = criterion.nodeImpurity(ctx.stats[RowAxis], ctx.stats[ColAxis])
		node.Mean, node.WeightedNNodeSamples = data.boxMean(w.rows, w.cols)
		if multiOutput {
			node.RowProfile, node.ColProfile = data.boxProfiles(w.rows, w.cols)
		}
		ctx.boxFraction = node.WeightedNNodeSamples / rootWeight
		if w.depth > tree.MaxDepth {
			tree.MaxDepth = w.depth
		}

		n := node.NNodeSamples
		isLeaf := (params.MaxDepth > 0 && w.depth >= params.MaxDepth) ||
			n < 2 || n < 2*params.MinSamplesLeaf ||
			node.Impurity <= epsilon ||
			(!ctx.splittable(RowAxis) && !ctx.splittable(ColAxis))

		var split *BestSplit
		if !isLeaf {
			split = TheBestSplit(ctx, ctx.candidates(params.Splitter, maxFeatures, rngs), params.ThreadsNum)
			isLeaf = split == nil || split.Improvement+epsilon < params.MinImpurityDecrease
		}
		if isLeaf {
			tree.Nodes = append(tree.Nodes, node)
			continue
		}

		tree.Nodes = append(tree.Nodes, NewTreeNodeFromSplitInfo(node, *split, p))
		leftItem := stackItem{rows: w.rows, cols: w.cols, depth: w.depth + 1, parent: nodeId, isLeft: true}
		rightItem := stackItem{rows: w.rows, cols: w.cols, depth: w.depth + 1, parent: nodeId}
		if split.Axis == RowAxis {
			leftItem.rows, rightItem.rows = split.Left, split.Right
		} else {
			leftItem.cols, rightItem.cols = split.Left, split.Right
		}
		s.Push(rightItem)
		s.Push(leftItem)
	}

	log.Debug().
		Str("adapter", params.Adapter.String()).
		Int("nodes", tree.NodeCount()).
		Int("leaves", tree.NLeaves()).
		Int("depth", tree.MaxDepth).
		Msg("tree built")
	return tree, nil
}

//boxMean returns the weighted mean of the box entries and the box weight.
func (d *fitData) boxMean(rows, cols []int) (mean, weight float64) {
	rowTotal, colTotal := 0.0, 0.0
	for _, j := range cols {
		colTotal += d.colWeights[j]
	}
	s := 0.0
	for _, i := range rows {
		rowTotal += d.rowWeights[i]
		rowSum := 0.0
		for _, j := range cols {
			rowSum += d.colWeights[j] * d.y.At(i, j)
		}
		s += d.rowWeights[i] * rowSum
	}
	weight = rowTotal * colTotal
	return s / weight, weight
}

//boxProfiles returns the per-row means over the box columns and the per-column means
//over the box rows, laid over all fit-time rows and columns.
func (d *fitData) boxProfiles(rows, cols []int) (rowProfile, colProfile []float64) {
	rowProfile = nanSlice(len(d.rowWeights))
	colProfile = nanSlice(len(d.colWeights))
	rowTotal, colTotal := 0.0, 0.0
	for _, i := range rows {
		rowTotal += d.rowWeights[i]
	}
	for _, j := range cols {
		colTotal += d.colWeights[j]
	}

	for _, i := range rows {
		s := 0.0
		for _, j := range cols {
			s += d.colWeights[j] * d.y.At(i, j)
		}
		rowProfile[i] = s / colTotal
	}
	for _, j := range cols {
		s := 0.0
		for _, i := range rows {
			s += d.rowWeights[i] * d.y.At(i, j)
		}
		colProfile[j] = s / rowTotal
	}
	return rowProfile, colProfile
}

//NodeCount returns the number of nodes.
func (tree *Tree) NodeCount() int {
	return len(tree.Nodes)
}

//NLeaves returns the number of leaves.
func (tree *Tree) NLeaves() int {
	n := 0
	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

//NOutputs is the width of a node value: 1 for a single-output tree, the number of
//fit-time rows plus columns for a multi-output one.
func (tree *Tree) NOutputs() int {
	if tree.Adapter == LocalMultiOutput {
		return tree.NRowsFit + tree.NColsFit
	}
	return 1
}

func (tree *Tree) ChildrenLeft() []int {
	out := make([]int, len(tree.Nodes))
	for i, node := range tree.Nodes {
		out[i] = node.LeftIndex
	}
	return out
}

func (tree *Tree) ChildrenRight() []int {
	out := make([]int, len(tree.Nodes))
	for i, node := range tree.Nodes {
		out[i] = node.RightIndex
	}
	return out
}

func (tree *Tree) Impurity() []float64 {
	out := make([]float64, len(tree.Nodes))
	for i, node := range tree.Nodes {
		out[i] = node.Impurity
	}
	return out
}

func (tree *Tree) NNodeSamples() []int {
	out := make([]int, len(tree.Nodes))
	for i, node := range tree.Nodes {
		out[i] = node.NNodeSamples
	}
	return out
}

func (tree *Tree) WeightedNNodeSamples() []float64 {
	out := make([]float64, len(tree.Nodes))
	for i, node := range tree.Nodes {
		out[i] = node.WeightedNNodeSamples
	}
	return out
}

//Value returns the node values as a (node count, outputs, 1) tensor.
func (tree *Tree) Value() *tensor.Dense {
	nOutputs := tree.NOutputs()
	backing := make([]float64, 0, len(tree.Nodes)*nOutputs)
	for _, node := range tree.Nodes {
		if tree.Adapter == LocalMultiOutput {
			backing = append(backing, node.RowProfile...)
			backing = append(backing, node.ColProfile...)
		} else {
			backing = append(backing, node.Mean)
		}
	}
	return tensor.New(tensor.WithShape(len(tree.Nodes), nOutputs, 1), tensor.WithBacking(backing))
}
