package btl

import (
	"math"
	"math/rand"
	"sort"
)

//FeatureThreshold is the smallest gap between two feature values that can hold a split.
const FeatureThreshold = 1e-7

//BestSplit contains results of the split selection algorithm. Left and Right hold the
//fit-time indices of the split axis entities sent to each child.
type BestSplit struct {
	Axis          Axis
	Feature       int
	Threshold     float64
	ImpurityLeft  float64
	ImpurityRight float64
	Improvement   float64
	Left, Right   []int

	proxy      float64
	key        float64
	validSplit bool
}

//splitCandidate is one (axis, feature) pair to scan. Random candidates carry
//their drawn threshold.
type splitCandidate struct {
	axis      Axis
	feature   int
	threshold float64
	random    bool
}

//splitContext is the state of the node being split.
type splitContext struct {
	data           *fitData
	criterion      Criterion
	stats          [2]*axisStats
	boxFraction    float64
	minEntities    [2]int
	minSamplesLeaf int
}

//splittable reports whether the axis can hold two children of the minimal size.
func (ctx *splitContext) splittable(axis Axis) bool {
	n := len(ctx.stats[axis].entities)
	return n >= 2 && n >= 2*ctx.minEntities[axis]
}

//allowed checks the leaf size constraints of a partition of the axis into nLeft and nRight entities.
func (ctx *splitContext) allowed(axis Axis, nLeft, nRight int) bool {
	nOther := ctx.stats[axis].nOther
	return nLeft >= ctx.minEntities[axis] && nRight >= ctx.minEntities[axis] &&
		nLeft*nOther >= ctx.minSamplesLeaf && nRight*nOther >= ctx.minSamplesLeaf
}

//selectFeatures returns maxFeatures distinct features in ascending order, all of them when
//maxFeatures is zero or not less than nFeatures.
func selectFeatures(nFeatures, maxFeatures int, rng *rand.Rand) []int {
	if maxFeatures <= 0 || maxFeatures >= nFeatures {
		features := make([]int, nFeatures)
		for f := range features {
			features[f] = f
		}
		return features
	}
	features := rng.Perm(nFeatures)[:maxFeatures]
	sort.Ints(features)
	return features
}

//candidates lists the scans of one node in traversal order: row axis first, then column
//axis, features ascending. Random thresholds are drawn here so that the streams are
//consumed in the same order whatever the number of threads.
func (ctx *splitContext) candidates(splitter SplitterKind, maxFeatures [2]int, rngs [2]*rand.Rand) []splitCandidate {
	result := make([]splitCandidate, 0)
	for _, axis := range []Axis{RowAxis, ColAxis} {
		if !ctx.splittable(axis) {
			continue
		}
		x := ctx.data.features(axis)
		entities := ctx.stats[axis].entities
		for _, f := range selectFeatures(Width(x), maxFeatures[axis], rngs[axis]) {
			if splitter == BestSplitter {
				result = append(result, splitCandidate{axis: axis, feature: f})
				continue
			}
			low, high := math.Inf(1), math.Inf(-1)
			for _, e := range entities {
				v := x.At(e, f)
				low = math.Min(low, v)
				high = math.Max(high, v)
			}
			if high <= low+FeatureThreshold {
				continue
			}
			threshold := low + rngs[axis].Float64()*(high-low)
			if threshold == high {
				threshold = low
			}
			result = append(result, splitCandidate{axis: axis, feature: f, threshold: threshold, random: true})
		}
	}
	return result
}

//midThreshold returns the midpoint of two consecutive feature values, or the lower one
//when rounding reaches the upper.
func midThreshold(low, high float64) float64 {
	threshold := low/2 + high/2
	if threshold == high || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
		threshold = low
	}
	return threshold
}

//scanForSplit sorts the entities of the axis by the feature and selects the best valid
//position between two distinct values.
func (ctx *splitContext) scanForSplit(c splitCandidate) (bestSplit BestSplit) {
	st := ctx.stats[c.axis]
	x := ctx.data.features(c.axis)
	order := columnArgsort(x, st.entities, c.feature)
	n := len(order)
	values := make([]float64, n)
	for r, pos := range order {
		values[r] = x.At(st.entities[pos], c.feature)
	}
	if values[n-1] <= values[0]+FeatureThreshold {
		return
	}

	total := st.total()
	left := newSideStats(len(st.outWeights))
	right := newSideStats(len(st.outWeights))
	bestProxy, bestPos := math.Inf(-1), -1

	for p := 1; p < n; p++ {
		left.add(st, order[p-1])
		if values[p] <= values[p-1]+FeatureThreshold {
			continue
		}
		if !ctx.allowed(c.axis, p, n-p) {
			continue
		}
		right.complementOf(total, left)
		if left.weight <= 0 || right.weight <= 0 {
			continue
		}
		if proxy := left.proxy(st.outWeights) + right.proxy(st.outWeights); proxy > bestProxy {
			bestProxy = proxy
			bestPos = p
		}
	}
	if bestPos < 0 {
		return
	}
	threshold := midThreshold(values[bestPos-1], values[bestPos])
	return ctx.finishSplit(c, threshold, order[:bestPos], order[bestPos:], total)
}

//scanRandomSplit evaluates the partition induced by the drawn threshold.
func (ctx *splitContext) scanRandomSplit(c splitCandidate) BestSplit {
	st := ctx.stats[c.axis]
	x := ctx.data.features(c.axis)
	leftPos := make([]int, 0, len(st.entities))
	rightPos := make([]int, 0, len(st.entities))
	for pos, e := range st.entities {
		if x.At(e, c.feature) <= c.threshold {
			leftPos = append(leftPos, pos)
		} else {
			rightPos = append(rightPos, pos)
		}
	}
	if !ctx.allowed(c.axis, len(leftPos), len(rightPos)) {
		return BestSplit{}
	}
	return ctx.finishSplit(c, c.threshold, leftPos, rightPos, st.total())
}

//finishSplit computes the children statistics of a chosen partition.
func (ctx *splitContext) finishSplit(c splitCandidate, threshold float64, leftPos, rightPos []int, total sideStats) BestSplit {
	st := ctx.stats[c.axis]
	left := newSideStats(len(st.outWeights))
	for _, pos := range leftPos {
		left.add(st, pos)
	}
	right := newSideStats(len(st.outWeights))
	right.complementOf(total, left)
	if left.weight <= 0 || right.weight <= 0 {
		return BestSplit{}
	}

	bestSplit := BestSplit{
		Axis:          c.axis,
		Feature:       c.feature,
		Threshold:     threshold,
		ImpurityLeft:  left.impurity(st.outWeights),
		ImpurityRight: right.impurity(st.outWeights),
		Left:          entitiesAt(st.entities, leftPos),
		Right:         entitiesAt(st.entities, rightPos),
		proxy:         left.proxy(st.outWeights) + right.proxy(st.outWeights),
		validSplit:    true,
	}
	parent := total.impurity(st.outWeights)
	bestSplit.Improvement = ctx.boxFraction * (parent -
		left.weight/total.weight*bestSplit.ImpurityLeft -
		right.weight/total.weight*bestSplit.ImpurityRight)
	bestSplit.key = ctx.criterion.splitKey(bestSplit.proxy, bestSplit.Improvement)
	return bestSplit
}

func entitiesAt(entities, positions []int) []int {
	out := make([]int, len(positions))
	for i, pos := range positions {
		out[i] = entities[pos]
	}
	sort.Ints(out)
	return out
}

//TheBestSplit scans all candidates of a node and returns the best valid one, or nil.
//With threadsNum > 1 the scans run on a worker pool; the reduction always follows the
//traversal order, so the first of equally good splits wins regardless of scheduling.
func TheBestSplit(ctx *splitContext, candidates []splitCandidate, threadsNum int) *BestSplit {
	result := make([]BestSplit, len(candidates))
	scan := func(ind int) BestSplit {
		if candidates[ind].random {
			return ctx.scanRandomSplit(candidates[ind])
		}
		return ctx.scanForSplit(candidates[ind])
	}

	if threadsNum <= 1 || len(candidates) < 2 {
		for ind := range candidates {
			result[ind] = scan(ind)
		}
	} else {
		taskPool := NewPool(threadsNum)
		for ind := range candidates {
			taskPool.AddTask(&TaskFindBestSplit{result, ind, scan})
		}
		// split scans do not fail
		_ = taskPool.WaitAll()
	}

	bestIndex := -1
	for ind, currentSplit := range result {
		if currentSplit.validSplit && (bestIndex < 0 || currentSplit.key > result[bestIndex].key) {
			bestIndex = ind
		}
	}
	if bestIndex < 0 {
		return nil
	}
	return &result[bestIndex]
}
