package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"mlfit/internal/dataset"
	"mlfit/internal/evaluation"
	"mlfit/internal/experiment"
	"mlfit/internal/learn"
	"mlfit/internal/learners"
	"mlfit/internal/persistence"
	"mlfit/internal/preprocessing"
)

func main() {
	dataFile := flag.String("data", "", "Path to training data CSV file")
	fitterName := flag.String("fitter", "knn", "Fitter to use (knn|tree|forest|bayes|linear|ridge)")
	configFile := flag.String("config", "config/config.yaml", "Path to experiment configuration file")
	outputDir := flag.String("output", "models", "Output directory for trained models")
	runExp := flag.Bool("experiment", false, "Run full experiment grid from config")
	impute := flag.String("impute", "", "Missing value strategy (zero|mean|median)")
	k := flag.Int("k", 5, "K value for KNN")
	maxDepth := flag.Int("max-depth", 10, "Max depth for decision tree/forest")
	nTrees := flag.Int("n-trees", 100, "Number of trees for random forest")
	alpha := flag.Float64("alpha", 1.0, "Regularization strength for ridge")
	learningRate := flag.Float64("learning-rate", 0.01, "Learning rate for linear regression")
	epochs := flag.Int("epochs", 100, "Training epochs for linear regression")
	testSize := flag.Float64("test-size", 0.2, "Test set size (0.0-1.0)")
	crossValidation := flag.Bool("cv", true, "Enable cross-validation")
	cvFolds := flag.Int("cv-folds", 5, "Number of cross-validation folds")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *dataFile == "" {
		fmt.Println("Usage:")
		fmt.Println("  Simple training: go run cmd/train/main.go -data data/train/iris.csv -fitter knn")
		fmt.Println("  Full experiment: go run cmd/train/main.go -experiment -config config/config.yaml -data data/train/iris.csv")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ds, encoder, err := dataset.LoadCSV(*dataFile, dataset.LoadOptions{LabelCol: -1, Impute: *impute})
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}
	fmt.Printf("Loaded %d samples, %d features, %s target\n", ds.Len(), ds.NumFeatures(), ds.TargetKind())

	if err := ds.ValidateForTraining(); err != nil {
		logger.Fatal("dataset not usable for training", zap.Error(err))
	}

	if *runExp {
		runExperiment(*configFile, *dataFile, *outputDir, ds, logger)
		return
	}

	// Every flag lands in the shared parameter set; each fitter only
	// sees the names its constructor declares.
	params := learn.Params{
		"k":             *k,
		"max_depth":     *maxDepth,
		"n_trees":       *nTrees,
		"alpha":         *alpha,
		"learning_rate": *learningRate,
		"epochs":        *epochs,
	}
	runSingleTraining(*dataFile, *fitterName, *outputDir, params, ds, encoder,
		*testSize, *crossValidation, *cvFolds, logger)
}

func runExperiment(configFile, dataFile, outputDir string, ds *dataset.Dataset, logger *zap.Logger) {
	fmt.Println("Running full experiment...")

	runner, err := experiment.NewRunner(configFile, logger)
	if err != nil {
		logger.Fatal("failed to load experiment config", zap.Error(err))
	}

	results, err := runner.Run(ds, dataFile)
	if err != nil {
		logger.Fatal("experiment failed", zap.Error(err))
	}

	timestamp := time.Now().Format("20060102_150405")
	expDir := filepath.Join(outputDir, fmt.Sprintf("experiment_%s", timestamp))
	os.MkdirAll(expDir, 0755)

	resultsFile := filepath.Join(expDir, "experiment_results.csv")
	if err := experiment.ExportResults(results, resultsFile); err != nil {
		logger.Error("failed to export results", zap.Error(err))
	} else {
		fmt.Printf("Experiment results saved to: %s\n", resultsFile)
	}

	fmt.Printf("\nExperiment Summary:\n")
	fmt.Printf("Total runs: %d\n", len(results))

	if len(results) > 0 {
		best := results[0]
		for _, result := range results[1:] {
			if result.Score > best.Score {
				best = result
			}
		}
		fmt.Printf("Best %s: %.4f (%s with %s preprocessing)\n",
			best.ScoreName, best.Score, best.Fitter, best.Preprocessing)
	}
}

func runSingleTraining(dataFile, fitterName, outputDir string, params learn.Params,
	ds *dataset.Dataset, encoder *preprocessing.LabelEncoder, testSize float64,
	crossValidation bool, cvFolds int, logger *zap.Logger) {

	def, err := learners.Lookup(fitterName)
	if err != nil {
		logger.Fatal("unknown fitter", zap.Error(err))
	}

	fmt.Printf("Training %s on %s...\n", def.Name(), dataFile)

	fitter := def.NewFitter(nil, params)
	fitter.SetUseDefaultPreprocessors(true)

	fmt.Printf("Splitting data (test size: %.1f%%)...\n", testSize*100)
	splitter := evaluation.NewTrainTestSplitter(testSize, time.Now().UnixNano(), true)
	train, test, err := splitter.Split(ds)
	if err != nil {
		logger.Fatal("failed to split data", zap.Error(err))
	}

	startTime := time.Now()
	model, err := fitter.Fit(train)
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	trainingTime := time.Since(startTime)

	preds, err := model.Predict(test.X)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	fmt.Printf("\nTraining Results:\n")
	fmt.Printf("Model: %s\n", model.Name())
	fmt.Printf("Training time: %v\n", trainingTime)

	var score float64
	var scoreName string
	if ds.TargetKind() == dataset.TargetDiscrete {
		metrics, err := evaluation.ClassifyMetrics(test.Classes, evaluation.DecodePredictions(preds), classSet(ds))
		if err != nil {
			logger.Fatal("metrics failed", zap.Error(err))
		}
		fmt.Print(metrics.Format())
		score, scoreName = metrics.Accuracy, "accuracy"
	} else {
		metrics, err := evaluation.RegressMetrics(test.Values, preds)
		if err != nil {
			logger.Fatal("metrics failed", zap.Error(err))
		}
		fmt.Printf("MSE: %.4f\nRMSE: %.4f\nMAE: %.4f\nR2: %.4f\n",
			metrics.MSE, metrics.RMSE, metrics.MAE, metrics.R2)
		score, scoreName = metrics.R2, "r2"
	}

	if crossValidation {
		fmt.Printf("Running %d-fold cross-validation...\n", cvFolds)
		cv := evaluation.NewCrossValidator(cvFolds)
		_, mean, std, err := cv.CrossValidate(fitter, ds)
		if err != nil {
			logger.Error("cross-validation failed", zap.Error(err))
		} else {
			fmt.Printf("CV %s: %.4f ± %.4f\n", scoreName, mean, std)
		}
	}

	fmt.Println("Saving model...")
	os.MkdirAll(outputDir, 0755)
	timestamp := time.Now().Format("20060102_150405")
	base := filepath.Base(dataFile)
	base = base[:len(base)-len(filepath.Ext(base))]
	modelPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s.model", fitterName, base, timestamp))

	bundle := persistence.NewModelBundle(model)
	bundle.LabelEncoder = encoder
	bundle.Metadata.FitterName = def.Name()
	bundle.Metadata.Dataset = dataFile
	bundle.Metadata.Score = score
	bundle.Metadata.ScoreName = scoreName
	bundle.Metadata.TrainingTime = trainingTime
	bundle.Metadata.Features = ds.Features
	bundle.Metadata.Classes = ds.ClassNames
	if kind, ok := fitter.ActiveKind(); ok {
		bundle.Metadata.ProblemKind = kind.String()
	}
	if fitterParams, err := fitter.Params(); err == nil {
		bundle.SetParameters(fitterParams)
	}

	if err := bundle.Save(modelPath); err != nil {
		logger.Error("failed to save model", zap.Error(err))
	} else {
		fmt.Printf("Model saved to: %s\n", modelPath)
	}
}

func classSet(ds *dataset.Dataset) []int {
	seen := make(map[int]bool)
	var classes []int
	for _, class := range ds.Classes {
		if !seen[class] {
			seen[class] = true
			classes = append(classes, class)
		}
	}
	return classes
}
