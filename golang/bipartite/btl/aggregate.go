package btl

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

//aggregator turns the leaf reached by a query pair into a prediction row.
type aggregator interface {
	// validateFit checks the training features before growth starts.
	validateFit(xRows, xCols *mat.Dense) error
	width(tree *Tree) int
	aggregate(leaf *TreeNode, xRow, xCol []float64, dst []float64) error
}

//newAggregator resolves the adapter and the prediction weights into one strategy.
func newAggregator(adapter AdapterKind, pw PredictionWeights) (aggregator, error) {
	if err := pw.validate(); err != nil {
		return nil, err
	}
	switch adapter {
	case GlobalSingleOutput:
		if pw.Kind != WeightsNone {
			log.Warn().Str("prediction_weights", pw.Kind.String()).
				Msg("prediction weights are ignored by the global single output adapter")
		}
		return meanAggregator{}, nil
	case LocalMultiOutput:
	default:
		return nil, fmt.Errorf("%v: %w", adapter, ErrUnknownAdapter)
	}

	switch pw.Kind {
	case WeightsRaw:
		return rawAggregator{}, nil
	case WeightsLeafUniform:
		return meanAggregator{}, nil
	}
	return profileAggregator{weights: pw}, nil
}

//meanAggregator predicts the mean of the leaf box.
type meanAggregator struct{}

func (meanAggregator) validateFit(_, _ *mat.Dense) error { return nil }
func (meanAggregator) width(_ *Tree) int                 { return 1 }

func (meanAggregator) aggregate(leaf *TreeNode, _, _ []float64, dst []float64) error {
	dst[0] = leaf.Mean
	return nil
}

//rawAggregator returns the row profile followed by the column profile of the leaf.
type rawAggregator struct{}

func (rawAggregator) validateFit(_, _ *mat.Dense) error { return nil }

func (rawAggregator) width(tree *Tree) int {
	return tree.NRowsFit + tree.NColsFit
}

func (rawAggregator) aggregate(leaf *TreeNode, _, _ []float64, dst []float64) error {
	copy(dst, leaf.RowProfile)
	copy(dst[len(leaf.RowProfile):], leaf.ColProfile)
	return nil
}

//profileAggregator averages each leaf profile with weights derived from the query
//similarities to the fit-time entities and combines both halves evenly.
type profileAggregator struct {
	weights PredictionWeights
}

func (a profileAggregator) validateFit(xRows, xCols *mat.Dense) error {
	if err := checkKernel(xRows); err != nil {
		return fmt.Errorf("row features: %w", err)
	}
	if err := checkKernel(xCols); err != nil {
		return fmt.Errorf("column features: %w", err)
	}
	if a.weights.Kind != WeightsMatrix {
		return nil
	}
	if m := a.weights.RowMatrix; m != nil && Height(m) != Height(xRows) {
		return fmt.Errorf("row weight matrix of size %d for %d rows: %w", Height(m), Height(xRows), ErrDimensionMismatch)
	}
	if m := a.weights.ColMatrix; m != nil && Height(m) != Height(xCols) {
		return fmt.Errorf("column weight matrix of size %d for %d columns: %w", Height(m), Height(xCols), ErrDimensionMismatch)
	}
	return nil
}

func (profileAggregator) width(_ *Tree) int { return 1 }

func (a profileAggregator) aggregate(leaf *TreeNode, xRow, xCol []float64, dst []float64) error {
	rowPart, err := weightedProfileMean(a.similarity(xRow, a.weights.RowMatrix, len(leaf.RowProfile)), leaf.RowProfile)
	if err != nil {
		return fmt.Errorf("row profile: %w", err)
	}
	colPart, err := weightedProfileMean(a.similarity(xCol, a.weights.ColMatrix, len(leaf.ColProfile)), leaf.ColProfile)
	if err != nil {
		return fmt.Errorf("column profile: %w", err)
	}
	dst[0] = (rowPart + colPart) / 2
	return nil
}

//similarity returns the raw weights of the n fit-time entities for a query.
func (a profileAggregator) similarity(x []float64, m *mat.Dense, n int) []float64 {
	w := make([]float64, n)
	switch a.weights.Kind {
	case WeightsNone, WeightsUniform:
		for k := range w {
			w[k] = 1
		}
	case WeightsPrecomputed:
		copy(w, x)
	case WeightsTransform:
		for k := range w {
			w[k] = a.weights.Transform(x[k])
		}
	case WeightsMatrix:
		if m == nil {
			copy(w, x)
			break
		}
		mat.NewVecDense(n, w).MulVec(m, mat.NewVecDense(n, x[:n]))
	}
	return w
}

//weightedProfileMean averages the non-NaN values of a profile with normalized weights.
func weightedProfileMean(w, profile []float64) (float64, error) {
	norm := make([]float64, len(w))
	if err := normalizeRow(norm, w, profile); err != nil {
		return 0, err
	}
	s, valid := 0.0, false
	for k, v := range profile {
		if math.IsNaN(v) {
			continue
		}
		s += norm[k] * v
		valid = true
	}
	if !valid {
		return math.NaN(), nil
	}
	return s, nil
}
