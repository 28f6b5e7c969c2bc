package btl

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//Axis selects the entity set a split operates on.
type Axis int

const (
	RowAxis Axis = iota
	ColAxis
)

func (a Axis) String() string {
	if a == RowAxis {
		return "rows"
	}
	return "cols"
}

func (a Axis) other() Axis {
	return 1 - a
}

//fitData holds the read-only training arrays shared by every node.
type fitData struct {
	xRows, xCols, y *mat.Dense
	rowWeights      []float64
	colWeights      []float64
}

func newFitData(bm BMatrix) *fitData {
	return &fitData{
		xRows:      bm.XRows,
		xCols:      bm.XCols,
		y:          bm.Y,
		rowWeights: unitIfNil(bm.RowWeights, Height(bm.XRows)),
		colWeights: unitIfNil(bm.ColWeights, Height(bm.XCols)),
	}
}

func (d *fitData) features(axis Axis) *mat.Dense {
	if axis == RowAxis {
		return d.xRows
	}
	return d.xCols
}

func (d *fitData) weights(axis Axis) []float64 {
	if axis == RowAxis {
		return d.rowWeights
	}
	return d.colWeights
}

//target returns Y for the entity e of axis and the entity o of the other axis.
func (d *fitData) target(axis Axis, e, o int) float64 {
	if axis == RowAxis {
		return d.y.At(e, o)
	}
	return d.y.At(o, e)
}

//axisStats keeps the per-entity sufficient statistics of a node seen from one axis.
//Every entity is a sample with weight weights[n] and len(outWeights) outputs.
type axisStats struct {
	entities   []int
	weights    []float64
	sums       [][]float64
	sqSums     [][]float64
	outWeights []float64
	nOther     int
}

func newAxisStats(entities []int, nOutputs, nOther int) *axisStats {
	st := &axisStats{
		entities:   entities,
		weights:    make([]float64, len(entities)),
		sums:       make([][]float64, len(entities)),
		sqSums:     make([][]float64, len(entities)),
		outWeights: make([]float64, nOutputs),
		nOther:     nOther,
	}
	for n := range entities {
		st.sums[n] = make([]float64, nOutputs)
		st.sqSums[n] = make([]float64, nOutputs)
	}
	return st
}

//sideStats accumulates the statistics of one side of a candidate split.
type sideStats struct {
	weight float64
	sum    []float64
	sqSum  []float64
}

func newSideStats(nOutputs int) sideStats {
	return sideStats{sum: make([]float64, nOutputs), sqSum: make([]float64, nOutputs)}
}

func (ss *sideStats) add(st *axisStats, n int) {
	ss.weight += st.weights[n]
	floats.Add(ss.sum, st.sums[n])
	floats.Add(ss.sqSum, st.sqSums[n])
}

func (ss *sideStats) reset() {
	ss.weight = 0
	for k := range ss.sum {
		ss.sum[k] = 0
		ss.sqSum[k] = 0
	}
}

//complementOf stores total minus left.
func (ss *sideStats) complementOf(total, left sideStats) {
	ss.weight = total.weight - left.weight
	floats.SubTo(ss.sum, total.sum, left.sum)
	floats.SubTo(ss.sqSum, total.sqSum, left.sqSum)
}

//impurity is the output-weighted mean of the per-output weighted variances.
func (ss sideStats) impurity(outWeights []float64) float64 {
	imp := 0.0
	for k, ow := range outWeights {
		mean := ss.sum[k] / ss.weight
		imp += ow * (ss.sqSum[k]/ss.weight - mean*mean)
	}
	return imp
}

//proxy ranks splits of one axis the same way the impurity improvement does.
func (ss sideStats) proxy(outWeights []float64) float64 {
	p := 0.0
	for k, ow := range outWeights {
		p += ow * ss.sum[k] * ss.sum[k]
	}
	return p / ss.weight
}

func (st *axisStats) total() sideStats {
	t := newSideStats(len(st.outWeights))
	for n := range st.entities {
		t.add(st, n)
	}
	return t
}

//Criterion measures node impurity and ranks candidate splits across axes.
type Criterion interface {
	stats(d *fitData, axis Axis, own, other []int) *axisStats
	nodeImpurity(rows, cols *axisStats) float64
	splitKey(proxy, improvement float64) float64
}

//GlobalMSE scores every entry of a node box as one sample of a single-output
//regression. Splits are exactly those of a standard tree grown on the melted table.
type GlobalMSE struct{}

func (GlobalMSE) stats(d *fitData, axis Axis, own, other []int) *axisStats {
	otherWeights := d.weights(axis.other())
	ownWeights := d.weights(axis)
	otherTotal := 0.0
	for _, o := range other {
		otherTotal += otherWeights[o]
	}

	st := newAxisStats(own, 1, len(other))
	st.outWeights[0] = 1
	for n, e := range own {
		s, q := 0.0, 0.0
		for _, o := range other {
			y := d.target(axis, e, o)
			b := otherWeights[o]
			s += b * y
			q += b * y * y
		}
		a := ownWeights[e]
		st.weights[n] = a * otherTotal
		st.sums[n][0] = a * s
		st.sqSums[n][0] = a * q
	}
	return st
}

func (GlobalMSE) nodeImpurity(rows, _ *axisStats) float64 {
	return rows.total().impurity(rows.outWeights)
}

func (GlobalMSE) splitKey(proxy, _ float64) float64 {
	return proxy
}

//MultiOutputMSE treats the entities of the split axis as samples and the entities of
//the other axis as outputs. Node impurity averages the row-wise and column-wise views.
type MultiOutputMSE struct{}

func (MultiOutputMSE) stats(d *fitData, axis Axis, own, other []int) *axisStats {
	otherWeights := d.weights(axis.other())
	ownWeights := d.weights(axis)

	st := newAxisStats(own, len(other), len(other))
	otherTotal := 0.0
	for k, o := range other {
		st.outWeights[k] = otherWeights[o]
		otherTotal += otherWeights[o]
	}
	if otherTotal > 0 {
		floats.Scale(1/otherTotal, st.outWeights)
	} else {
		for k := range st.outWeights {
			st.outWeights[k] = 1 / float64(len(other))
		}
	}

	for n, e := range own {
		a := ownWeights[e]
		st.weights[n] = a
		for k, o := range other {
			y := d.target(axis, e, o)
			st.sums[n][k] = a * y
			st.sqSums[n][k] = a * y * y
		}
	}
	return st
}

func (MultiOutputMSE) nodeImpurity(rows, cols *axisStats) float64 {
	return (rows.total().impurity(rows.outWeights) + cols.total().impurity(cols.outWeights)) / 2
}

func (MultiOutputMSE) splitKey(_, improvement float64) float64 {
	return improvement
}
