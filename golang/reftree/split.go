package reftree

import (
	"errors"
	"math"
)

// featureThreshold is the smallest gap between two values that can hold a split.
const featureThreshold = 1e-7

// Split scans every feature in ascending order and every position between two distinct
// sorted values, keeping the first position with the strictly largest proxy improvement.
// It returns nil when no position satisfies the leaf size constraint.
func Split(matrix *RMatrix, params Params, rootWeight float64) (*SplitResult, error) {
	if matrix == nil {
		return nil, errors.New("nil matrix")
	}
	rows := matrix.Height()
	if rows < 2 {
		return nil, nil
	}
	totalW, totalS, totalQ := matrix.totals()

	bestProxy := math.Inf(-1)
	bestFeature, bestPos := -1, -1
	for j, order := range matrix.Order {
		value := func(p int) float64 { return matrix.Features[order[p]][j] }
		if value(rows-1) <= value(0)+featureThreshold {
			continue
		}
		wl, sl := 0.0, 0.0
		for p := 1; p < rows; p++ {
			i := order[p-1]
			wl += matrix.Weights[i]
			sl += matrix.Weights[i] * matrix.Target[i]
			if value(p) <= value(p-1)+featureThreshold {
				continue
			}
			if p < params.MinSamplesLeaf || rows-p < params.MinSamplesLeaf {
				continue
			}
			wr, sr := totalW-wl, totalS-sl
			if wl <= 0 || wr <= 0 {
				continue
			}
			if proxy := sl*sl/wl + sr*sr/wr; proxy > bestProxy {
				bestProxy = proxy
				bestFeature, bestPos = j, p
			}
		}
	}
	if bestFeature < 0 {
		return nil, nil
	}

	j, order := bestFeature, matrix.Order[bestFeature]
	var wl, sl, ql float64
	for _, i := range order[:bestPos] {
		w, y := matrix.Weights[i], matrix.Target[i]
		wl += w
		sl += w * y
		ql += w * y * y
	}
	wr, sr, qr := totalW-wl, totalS-sl, totalQ-ql
	result := &SplitResult{
		LeftMask:      make([]bool, rows),
		RightMask:     make([]bool, rows),
		Threshold:     midThreshold(matrix.Features[order[bestPos-1]][j], matrix.Features[order[bestPos]][j]),
		FeatureIndex:  j,
		ImpurityLeft:  impurity(wl, sl, ql),
		ImpurityRight: impurity(wr, sr, qr),
	}
	result.Improvement = totalW / rootWeight * (impurity(totalW, totalS, totalQ) -
		wl/totalW*result.ImpurityLeft - wr/totalW*result.ImpurityRight)
	for i, row := range matrix.Features {
		if row[j] <= result.Threshold {
			result.LeftMask[i] = true
		} else {
			result.RightMask[i] = true
		}
	}
	return result, nil
}

// midThreshold returns the midpoint of two consecutive values, or the lower one when
// rounding reaches the upper.
func midThreshold(low, high float64) float64 {
	thr := low/2 + high/2
	if thr == high || math.IsInf(thr, 0) || math.IsNaN(thr) {
		thr = low
	}
	return thr
}
