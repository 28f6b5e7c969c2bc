package btl

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//WeightsKind tags the variant held by PredictionWeights.
type WeightsKind int

const (
	WeightsNone WeightsKind = iota
	WeightsUniform
	WeightsPrecomputed
	WeightsRaw
	WeightsLeafUniform
	WeightsTransform
	WeightsMatrix
)

var weightsNames = map[WeightsKind]string{
	WeightsNone:        "none",
	WeightsUniform:     "uniform",
	WeightsPrecomputed: "precomputed",
	WeightsRaw:         "raw",
	WeightsLeafUniform: "leaf_uniform",
	WeightsTransform:   "transform",
	WeightsMatrix:      "matrix",
}

func (k WeightsKind) String() string {
	if name, ok := weightsNames[k]; ok {
		return name
	}
	return fmt.Sprintf("WeightsKind(%d)", int(k))
}

//PredictionWeights selects how a multi-output leaf is reduced to one prediction.
//Only the fields of the selected Kind are meaningful; use the constructors below.
type PredictionWeights struct {
	Kind      WeightsKind
	Transform func(float64) float64
	// Fit-time affinities between rows and between columns. A nil matrix acts
	// as the identity on its axis.
	RowMatrix *mat.Dense
	ColMatrix *mat.Dense
}

func NoWeights() PredictionWeights          { return PredictionWeights{Kind: WeightsNone} }
func UniformWeights() PredictionWeights     { return PredictionWeights{Kind: WeightsUniform} }
func PrecomputedWeights() PredictionWeights { return PredictionWeights{Kind: WeightsPrecomputed} }
func RawWeights() PredictionWeights         { return PredictionWeights{Kind: WeightsRaw} }
func LeafUniformWeights() PredictionWeights { return PredictionWeights{Kind: WeightsLeafUniform} }

//TransformWeights applies f to every similarity before normalization.
func TransformWeights(f func(float64) float64) PredictionWeights {
	return PredictionWeights{Kind: WeightsTransform, Transform: f}
}

//MatrixWeights propagates query similarities through explicit fit-time affinities.
func MatrixWeights(rows, cols *mat.Dense) PredictionWeights {
	return PredictionWeights{Kind: WeightsMatrix, RowMatrix: rows, ColMatrix: cols}
}

//ParseWeights maps the string tags accepted in configuration files to a variant.
func ParseWeights(name string) (PredictionWeights, error) {
	switch name {
	case "", "none":
		return NoWeights(), nil
	case "uniform":
		return UniformWeights(), nil
	case "precomputed":
		return PrecomputedWeights(), nil
	case "raw":
		return RawWeights(), nil
	case "leaf_uniform":
		return LeafUniformWeights(), nil
	case "square":
		return TransformWeights(func(x float64) float64 { return x * x }), nil
	}
	return PredictionWeights{}, fmt.Errorf("%q: %w", name, ErrUnknownWeights)
}

//validate checks the explicit matrices of a WeightsMatrix variant.
func (pw PredictionWeights) validate() error {
	switch pw.Kind {
	case WeightsNone, WeightsUniform, WeightsPrecomputed, WeightsRaw, WeightsLeafUniform:
		return nil
	case WeightsTransform:
		if pw.Transform == nil {
			return fmt.Errorf("transform weights without a function: %w", ErrInvalidParam)
		}
		return nil
	case WeightsMatrix:
		for _, m := range []*mat.Dense{pw.RowMatrix, pw.ColMatrix} {
			if m == nil {
				continue
			}
			if err := checkKernel(m); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%v: %w", pw.Kind, ErrUnknownWeights)
}

//NormalizeWeights makes every row of w sum to one, ignoring the positions where pred is NaN.
//Those positions get weight 0. A row whose remaining weights sum to zero is replaced by
//the uniform distribution over the non-NaN positions of pred; a row where pred is NaN
//everywhere is left all-zero.
func NormalizeWeights(w, pred mat.Matrix) (*mat.Dense, error) {
	h, wd := w.Dims()
	ph, pw := pred.Dims()
	if h != ph || wd != pw {
		return nil, fmt.Errorf("weights (%d, %d) vs predictions (%d, %d): %w", h, wd, ph, pw, ErrDimensionMismatch)
	}

	out := mat.NewDense(h, wd, nil)
	wRow := make([]float64, wd)
	pRow := make([]float64, wd)
	for i := 0; i < h; i++ {
		mat.Row(wRow, i, w)
		mat.Row(pRow, i, pred)
		if err := normalizeRow(out.RawRowView(i), wRow, pRow); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return out, nil
}

//normalizeRow writes into dst the weights w normalized over the non-NaN positions of pred.
func normalizeRow(dst, w, pred []float64) error {
	total, valid := 0.0, 0
	for k := range w {
		if math.IsNaN(pred[k]) {
			dst[k] = 0
			continue
		}
		if w[k] < 0 {
			return ErrNegativeWeight
		}
		if math.IsInf(w[k], 0) || math.IsNaN(w[k]) {
			return fmt.Errorf("weight %g at position %d: %w", w[k], k, ErrNonFiniteWeight)
		}
		dst[k] = w[k]
		total += w[k]
		valid++
	}

	switch {
	case total > 0:
		for k := range dst {
			dst[k] /= total
		}
	case valid > 0:
		share := 1 / float64(valid)
		for k := range dst {
			if !math.IsNaN(pred[k]) {
				dst[k] = share
			}
		}
	}
	return nil
}
