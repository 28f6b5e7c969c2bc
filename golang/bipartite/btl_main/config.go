package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pedroilidio/hypertree/golang/bipartite/btl"
	"gopkg.in/yaml.v3"
)

//TreeConfig holds the regressor options shared by every mode.
type TreeConfig struct {
	MinSamplesLeaf      int     `yaml:"min_samples_leaf"`
	MinRowsLeaf         int     `yaml:"min_rows_leaf"`
	MinColsLeaf         int     `yaml:"min_cols_leaf"`
	MaxDepth            int     `yaml:"max_depth"`
	MinImpurityDecrease float64 `yaml:"min_impurity_decrease"`
	MaxRowFeatures      int     `yaml:"max_row_features"`
	MaxColFeatures      int     `yaml:"max_col_features"`
	Splitter            string  `yaml:"splitter"`
	BipartiteAdapter    string  `yaml:"bipartite_adapter"`
	PredictionWeights   string  `yaml:"prediction_weights"`
	RandomState         int64   `yaml:"random_state"`
	ThreadsNum          int     `yaml:"threads_num"`
}

//FitPredictConfig describes a fit on one data set and a prediction on the cross product of test entities.
type FitPredictConfig struct {
	Description         string     `yaml:"description"`
	FileNameTrainRows   string     `yaml:"filename_train_rows"`
	FileNameTrainCols   string     `yaml:"filename_train_cols"`
	FileNameTrainTarget string     `yaml:"filename_train_target"`
	FileNameTestRows    string     `yaml:"filename_test_rows"`
	FileNameTestCols    string     `yaml:"filename_test_cols"`
	FileNamePrediction  string     `yaml:"filename_prediction"`
	Tree                TreeConfig `yaml:"tree"`
}

//decodeConfig reads a YAML (or JSON) file into out.
func decodeConfig(srcConfig string, out interface{}) error {
	data, err := os.ReadFile(srcConfig)
	if err != nil {
		return fmt.Errorf("read config %s: %w", srcConfig, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", srcConfig, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

//Params converts the configuration into regressor parameters. HYPERTREE_THREADS_NUM
//overrides threads_num.
func (tc TreeConfig) Params() (btl.RegressorParams, error) {
	splitter, err := btl.ParseSplitter(tc.Splitter)
	if err != nil {
		return btl.RegressorParams{}, err
	}
	adapter, err := btl.ParseAdapter(tc.BipartiteAdapter)
	if err != nil {
		return btl.RegressorParams{}, err
	}
	weights, err := btl.ParseWeights(tc.PredictionWeights)
	if err != nil {
		return btl.RegressorParams{}, err
	}
	threadsNum, err := strconv.Atoi(getEnvOrDefault("HYPERTREE_THREADS_NUM", strconv.Itoa(tc.ThreadsNum)))
	if err != nil {
		return btl.RegressorParams{}, fmt.Errorf("HYPERTREE_THREADS_NUM: %w", err)
	}

	return btl.RegressorParams{
		MinSamplesLeaf:      tc.MinSamplesLeaf,
		MinRowsLeaf:         tc.MinRowsLeaf,
		MinColsLeaf:         tc.MinColsLeaf,
		MaxDepth:            tc.MaxDepth,
		MinImpurityDecrease: tc.MinImpurityDecrease,
		MaxRowFeatures:      tc.MaxRowFeatures,
		MaxColFeatures:      tc.MaxColFeatures,
		Splitter:            splitter,
		Adapter:             adapter,
		PredictionWeights:   weights,
		RandomState:         tc.RandomState,
		ThreadsNum:          threadsNum,
	}, nil
}
