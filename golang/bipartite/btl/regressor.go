package btl

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

//SplitterKind selects how thresholds are searched.
type SplitterKind int

const (
	BestSplitter SplitterKind = iota
	RandomSplitter
)

var splitterNames = map[string]SplitterKind{
	"best":   BestSplitter,
	"random": RandomSplitter,
}

func (k SplitterKind) String() string {
	for name, kind := range splitterNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("SplitterKind(%d)", int(k))
}

//ParseSplitter maps "best" and "random" to a SplitterKind. The empty string selects "best".
func ParseSplitter(name string) (SplitterKind, error) {
	if name == "" {
		return BestSplitter, nil
	}
	if kind, ok := splitterNames[name]; ok {
		return kind, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownSplitter)
}

//AdapterKind selects how a bipartite node is scored and what its leaves store.
type AdapterKind int

const (
	// GlobalSingleOutput grows the tree a standard regressor would grow on the melted table.
	GlobalSingleOutput AdapterKind = iota
	// LocalMultiOutput keeps a row profile and a column profile in every node.
	LocalMultiOutput
)

var adapterNames = map[string]AdapterKind{
	"global_single_output": GlobalSingleOutput,
	"local_multioutput":    LocalMultiOutput,
}

func (k AdapterKind) String() string {
	for name, kind := range adapterNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("AdapterKind(%d)", int(k))
}

//ParseAdapter maps an adapter name to an AdapterKind. The empty string selects the single output adapter.
func ParseAdapter(name string) (AdapterKind, error) {
	if name == "" {
		return GlobalSingleOutput, nil
	}
	if kind, ok := adapterNames[name]; ok {
		return kind, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownAdapter)
}

func (k AdapterKind) criterion() Criterion {
	if k == LocalMultiOutput {
		return MultiOutputMSE{}
	}
	return GlobalMSE{}
}

//RegressorParams collect arguments required to construct a regressor.
//Zero values of the leaf sizes and ThreadsNum mean 1; MaxDepth 0 means unlimited;
//MaxRowFeatures and MaxColFeatures 0 mean all features.
type RegressorParams struct {
	MinSamplesLeaf      int
	MinRowsLeaf         int
	MinColsLeaf         int
	MaxDepth            int
	MinImpurityDecrease float64
	MaxRowFeatures      int
	MaxColFeatures      int
	Splitter            SplitterKind
	Adapter             AdapterKind
	PredictionWeights   PredictionWeights
	RandomState         int64
	ThreadsNum          int
}

//withDefaults validates the parameters and fills the zero values.
func (params RegressorParams) withDefaults() (RegressorParams, error) {
	for name, v := range map[string]int{
		"min_samples_leaf": params.MinSamplesLeaf,
		"min_rows_leaf":    params.MinRowsLeaf,
		"min_cols_leaf":    params.MinColsLeaf,
		"max_depth":        params.MaxDepth,
		"max_row_features": params.MaxRowFeatures,
		"max_col_features": params.MaxColFeatures,
		"threads_num":      params.ThreadsNum,
	} {
		if v < 0 {
			return params, fmt.Errorf("%s = %d: %w", name, v, ErrInvalidParam)
		}
	}
	if params.MinImpurityDecrease < 0 {
		return params, fmt.Errorf("min_impurity_decrease = %g: %w", params.MinImpurityDecrease, ErrInvalidParam)
	}
	if _, ok := splitterNames[params.Splitter.String()]; !ok {
		return params, fmt.Errorf("%v: %w", params.Splitter, ErrUnknownSplitter)
	}
	if _, ok := adapterNames[params.Adapter.String()]; !ok {
		return params, fmt.Errorf("%v: %w", params.Adapter, ErrUnknownAdapter)
	}

	params.MinSamplesLeaf = max(params.MinSamplesLeaf, 1)
	params.MinRowsLeaf = max(params.MinRowsLeaf, 1)
	params.MinColsLeaf = max(params.MinColsLeaf, 1)
	params.ThreadsNum = max(params.ThreadsNum, 1)
	return params, nil
}

//Regressor is a bipartite decision tree regressor.
type Regressor struct {
	params     RegressorParams
	aggregator aggregator
	tree       *Tree
	nRowFeats  int
	nColFeats  int
}

//NewRegressor validates the parameters and resolves the prediction strategy.
func NewRegressor(params RegressorParams) (*Regressor, error) {
	params, err := params.withDefaults()
	if err != nil {
		return nil, err
	}
	agg, err := newAggregator(params.Adapter, params.PredictionWeights)
	if err != nil {
		return nil, err
	}
	return &Regressor{params: params, aggregator: agg}, nil
}

//Fit grows the tree. All inputs are checked before growth; on error the regressor keeps its previous state.
func (r *Regressor) Fit(bm BMatrix) error {
	nRows, nCols, p, q, err := bm.validatedDimensions()
	if err != nil {
		return err
	}
	if err := r.aggregator.validateFit(bm.XRows, bm.XCols); err != nil {
		return err
	}

	log.Debug().Int("rows", nRows).Int("cols", nCols).
		Str("adapter", r.params.Adapter.String()).
		Str("splitter", r.params.Splitter.String()).
		Msg("fit bipartite tree")
	tree, err := BuildTree(bm, r.params)
	if err != nil {
		return err
	}
	r.tree, r.nRowFeats, r.nColFeats = tree, p, q
	return nil
}

//Tree returns the fitted tree, nil before Fit.
func (r *Regressor) Tree() *Tree {
	return r.tree
}

//Params returns the validated parameters.
func (r *Regressor) Params() RegressorParams {
	return r.params
}

//NRowsFit is the number of rows seen by Fit. Raw multi-output predictions hold
//this many row-profile columns followed by the column profile.
func (r *Regressor) NRowsFit() int {
	if r.tree == nil {
		return 0
	}
	return r.tree.NRowsFit
}

//NColsFit is the number of columns seen by Fit.
func (r *Regressor) NColsFit() int {
	if r.tree == nil {
		return 0
	}
	return r.tree.NColsFit
}
