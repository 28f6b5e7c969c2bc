package reftree

// Params mirrors the stopping rules of a standard regression tree.
// MaxDepth 0 means unlimited; MinSamplesLeaf 0 means 1.
type Params struct {
	MinSamplesLeaf      int
	MaxDepth            int
	MinImpurityDecrease float64
}

// Node is one record of the flat node array. Left and Right are TreeLeaf on leaves.
type Node struct {
	Feature              int
	Threshold            float64
	Left                 int
	Right                int
	Impurity             float64
	NNodeSamples         int
	WeightedNNodeSamples float64
	Value                float64
}

type SplitResult struct {
	LeftMask      []bool
	RightMask     []bool
	Threshold     float64
	FeatureIndex  int
	ImpurityLeft  float64
	ImpurityRight float64
	Improvement   float64
}
