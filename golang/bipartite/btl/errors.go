package btl

import "errors"

// Validation failures of the public API. Callers match them with errors.Is;
// call sites wrap them with fmt.Errorf("...: %w", err) for context.
var (
	// ErrNotSquare and ErrNotSymmetric keep the wording existing callers match on.
	ErrNotSquare    = errors.New("array must be 2-dimensional and square.")
	ErrNotSymmetric = errors.New("Array must be symmetric")

	ErrDimensionMismatch = errors.New("btl: dimension mismatch")
	ErrEmptyData         = errors.New("btl: empty data")
	ErrNegativeWeight    = errors.New("btl: negative weight")
	ErrNonFiniteWeight   = errors.New("btl: non-finite weight")
	ErrNotFitted         = errors.New("btl: regressor is not fitted")
	ErrUnknownAdapter    = errors.New("btl: unknown bipartite adapter")
	ErrUnknownSplitter   = errors.New("btl: unknown splitter")
	ErrUnknownWeights    = errors.New("btl: unknown prediction weights")
	ErrInvalidParam      = errors.New("btl: invalid parameter")
)
