package experiment

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"mlfit/internal/dataset"
	"mlfit/internal/evaluation"
	"mlfit/internal/learn"
	"mlfit/internal/learners"
	"mlfit/internal/preprocessing"
)

// Config describes a parameter-grid experiment: preprocessing
// variants, train/test splits and per-fitter parameter grids, crossed
// exhaustively.
type Config struct {
	Experiment struct {
		Preprocessing   []string  `yaml:"preprocessing"`
		TrainTestSplits []float64 `yaml:"train_test_splits"`
		CrossValidation struct {
			Folds int `yaml:"folds"`
		} `yaml:"cross_validation"`
		Fitters map[string]map[string][]any `yaml:"fitters"`
	} `yaml:"experiment"`
}

type Result struct {
	Dataset       string
	Fitter        string
	Model         string
	Parameters    string
	Preprocessing string
	TestSize      float64
	Score         float64
	ScoreName     string
	CVMean        float64
	CVStd         float64
	TrainingMs    int64
}

type Runner struct {
	Config *Config
	log    *zap.Logger
}

func NewRunner(configFile string, logger *zap.Logger) (*Runner, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment config: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse experiment config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Config: config, log: logger}, nil
}

// Run crosses every preprocessing variant, split and fitter parameter
// combination over the dataset and collects one result per run.
func (r *Runner) Run(ds *dataset.Dataset, name string) ([]Result, error) {
	exp := r.Config.Experiment

	preps := exp.Preprocessing
	if len(preps) == 0 {
		preps = []string{"none"}
	}
	splits := exp.TrainTestSplits
	if len(splits) == 0 {
		splits = []float64{0.2}
	}
	if len(exp.Fitters) == 0 {
		return nil, fmt.Errorf("experiment config defines no fitters")
	}

	fitterNames := make([]string, 0, len(exp.Fitters))
	for fitterName := range exp.Fitters {
		fitterNames = append(fitterNames, fitterName)
	}
	sort.Strings(fitterNames)

	var results []Result
	for _, prep := range preps {
		for _, split := range splits {
			for _, fitterName := range fitterNames {
				def, err := learners.Lookup(fitterName)
				if err != nil {
					return nil, err
				}
				for _, params := range expandGrid(exp.Fitters[fitterName]) {
					result, err := r.runOne(ds, name, def, params, prep, split)
					if err != nil {
						r.log.Warn("experiment run failed",
							zap.String("fitter", fitterName),
							zap.String("preprocessing", prep),
							zap.Error(err))
						continue
					}
					results = append(results, result)
				}
			}
		}
	}

	return results, nil
}

func (r *Runner) runOne(ds *dataset.Dataset, name string, def *learn.Definition, params learn.Params, prep string, split float64) (Result, error) {
	result := Result{
		Dataset:       name,
		Fitter:        def.Name(),
		Parameters:    fmt.Sprintf("%v", params),
		Preprocessing: prep,
		TestSize:      split,
	}

	fitter := def.NewFitter(preprocessorChain(prep), params)

	splitter := evaluation.NewTrainTestSplitter(split, 42, true)
	train, test, err := splitter.Split(ds)
	if err != nil {
		return result, err
	}

	start := time.Now()
	model, err := fitter.Fit(train)
	if err != nil {
		return result, err
	}
	result.TrainingMs = time.Since(start).Milliseconds()
	result.Model = model.Name()

	preds, err := model.Predict(test.X)
	if err != nil {
		return result, err
	}

	if ds.TargetKind() == dataset.TargetDiscrete {
		metrics, err := evaluation.ClassifyMetrics(test.Classes, evaluation.DecodePredictions(preds), classSet(ds.Classes))
		if err != nil {
			return result, err
		}
		result.Score = metrics.Accuracy
		result.ScoreName = "accuracy"
	} else {
		metrics, err := evaluation.RegressMetrics(test.Values, preds)
		if err != nil {
			return result, err
		}
		result.Score = metrics.R2
		result.ScoreName = "r2"
	}

	if folds := r.Config.Experiment.CrossValidation.Folds; folds > 1 {
		cv := evaluation.NewCrossValidator(folds)
		// explicit scaler chains are refit per fold; those runs stay
		// sequential so fold models never share a half-fitted scaler
		cv.Parallel = prep == "none"
		_, mean, std, err := cv.CrossValidate(def.NewFitter(preprocessorChain(prep), params), ds)
		if err != nil {
			return result, err
		}
		result.CVMean = mean
		result.CVStd = std
	}

	r.log.Info("experiment run finished",
		zap.String("fitter", result.Fitter),
		zap.String("model", result.Model),
		zap.String("preprocessing", prep),
		zap.Float64("test_size", split),
		zap.String("score_name", result.ScoreName),
		zap.Float64("score", result.Score),
		zap.Float64("cv_mean", result.CVMean),
		zap.Int64("training_ms", result.TrainingMs))

	return result, nil
}

func preprocessorChain(prep string) []preprocessing.Transformer {
	switch prep {
	case "standard", "minmax":
		return []preprocessing.Transformer{preprocessing.NewScaler(prep)}
	default:
		return nil
	}
}

// expandGrid builds the cartesian product of a parameter grid. An
// empty grid yields one empty parameter set.
func expandGrid(grid map[string][]any) []learn.Params {
	combos := []learn.Params{{}}

	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := grid[name]
		if len(values) == 0 {
			continue
		}
		next := make([]learn.Params, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, value := range values {
				expanded := combo.Clone()
				expanded[name] = value
				next = append(next, expanded)
			}
		}
		combos = next
	}

	return combos
}

func classSet(y []int) []int {
	seen := make(map[int]bool)
	var classes []int
	for _, class := range y {
		if !seen[class] {
			seen[class] = true
			classes = append(classes, class)
		}
	}
	sort.Ints(classes)
	return classes
}

func ExportResults(results []Result, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"Dataset", "Fitter", "Model", "Parameters", "Preprocessing",
		"TestSize", "ScoreName", "Score", "CVMean", "CVStd", "TrainingMs",
	})

	for _, result := range results {
		writer.Write([]string{
			result.Dataset,
			result.Fitter,
			result.Model,
			result.Parameters,
			result.Preprocessing,
			fmt.Sprintf("%.2f", result.TestSize),
			result.ScoreName,
			fmt.Sprintf("%.4f", result.Score),
			fmt.Sprintf("%.4f", result.CVMean),
			fmt.Sprintf("%.4f", result.CVStd),
			fmt.Sprintf("%d", result.TrainingMs),
		})
	}

	return writer.Error()
}
