package main

import (
	"flag"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/joho/godotenv"
	"github.com/pedroilidio/hypertree/golang/bipartite/btl"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//fitModel reads the training set named by the config and fits a regressor on it.
func fitModel(config FitPredictConfig) (*btl.Regressor, error) {
	bmTrain, err := btl.ReadBMatrix(config.FileNameTrainRows, config.FileNameTrainCols, config.FileNameTrainTarget)
	if err != nil {
		return nil, err
	}
	bmTrain.SetDescription(config.Description)

	params, err := config.Tree.Params()
	if err != nil {
		return nil, err
	}
	clf, err := btl.NewRegressor(params)
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(bmTrain); err != nil {
		return nil, err
	}
	log.Info().Str("data", config.Description).
		Int("nodes", clf.Tree().NodeCount()).
		Int("leaves", clf.Tree().NLeaves()).
		Msg("model fitted")
	return clf, nil
}

func fitPredict(srcConfig string) error {
	var config FitPredictConfig
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	clf, err := fitModel(config)
	if err != nil {
		return err
	}

	testRows, err := btl.ReadNpy(config.FileNameTestRows)
	if err != nil {
		return err
	}
	testCols, err := btl.ReadNpy(config.FileNameTestCols)
	if err != nil {
		return err
	}
	prediction, err := clf.Predict(testRows, testCols)
	if err != nil {
		return err
	}
	h, w := prediction.Dims()
	log.Info().Str("file", config.FileNamePrediction).Int("pairs", h).Int("width", w).Msg("write prediction")
	return btl.WriteNpy(config.FileNamePrediction, prediction)
}

func describe(srcConfig string) error {
	var config FitPredictConfig
	if err := decodeConfig(srcConfig, &config); err != nil {
		return err
	}
	clf, err := fitModel(config)
	if err != nil {
		return err
	}
	for _, node := range clf.Tree().Nodes {
		log.Info().Bool("leaf", node.IsLeaf()).Msg(node.Description())
	}
	return nil
}

var modes = map[string]func(string) error{
	"fit_predict": fitPredict,
	"describe":    describe,
}

func setupLogging() {
	level, err := zerolog.ParseLevel(getEnvOrDefault("HYPERTREE_LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	runMode := flag.String("mode", "fit_predict", "you can select either 'fit_predict' or 'describe' modes")
	config := flag.String("config", "hypertree_config.yaml", "a config file for the run of the program")
	envFile := flag.String("env", ".env", "an optional file with environment variables")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", *envFile).Msg("could not load env file")
	}
	setupLogging()

	run, ok := modes[*runMode]
	if !ok {
		log.Fatal().Str("mode", *runMode).Msg("unknown mode")
	}
	if err := run(*config); err != nil {
		log.Fatal().Err(err).Str("mode", *runMode).Msg("run failed")
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create memory profile")
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not write memory profile")
		}
	}
}
