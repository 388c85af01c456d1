package evaluation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
)

// CrossValidator runs k-fold cross-validation of a fitter over a
// dataset. Folds are stratified by class for discrete targets. Scores
// are accuracy for classification and R2 for regression.
type CrossValidator struct {
	NFolds     int
	Shuffle    bool
	RandomSeed int64
	Parallel   bool
	MaxWorkers int
}

func NewCrossValidator(nFolds int) *CrossValidator {
	return &CrossValidator{
		NFolds:     nFolds,
		Shuffle:    true,
		RandomSeed: 42,
		Parallel:   true,
		MaxWorkers: 4,
	}
}

// CrossValidate returns per-fold scores plus their mean and standard
// deviation.
func (cv *CrossValidator) CrossValidate(fitter *learn.Fitter, ds *dataset.Dataset) ([]float64, float64, float64, error) {
	if cv.NFolds < 2 {
		return nil, 0, 0, fmt.Errorf("cross-validation needs at least 2 folds, got %d", cv.NFolds)
	}
	if ds.Len() < cv.NFolds {
		return nil, 0, 0, fmt.Errorf("dataset has %d samples, fewer than %d folds", ds.Len(), cv.NFolds)
	}

	folds := cv.foldIndices(ds)
	scores := make([]float64, cv.NFolds)
	errs := make([]error, cv.NFolds)

	if cv.Parallel {
		workers := cv.MaxWorkers
		if workers > cv.NFolds {
			workers = cv.NFolds
		}
		if workers < 1 {
			workers = 1
		}

		jobs := make(chan int, cv.NFolds)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					scores[i], errs[i] = cv.evaluateFold(fitter, ds, folds[i])
				}
			}()
		}
		for i := range folds {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	} else {
		for i := range folds {
			scores[i], errs[i] = cv.evaluateFold(fitter, ds, folds[i])
		}
	}

	for i, err := range errs {
		if err != nil {
			return nil, 0, 0, fmt.Errorf("fold %d failed: %w", i, err)
		}
	}

	mean, std := meanStd(scores)
	return scores, mean, std, nil
}

func (cv *CrossValidator) evaluateFold(fitter *learn.Fitter, ds *dataset.Dataset, testIndices []int) (float64, error) {
	inTest := make(map[int]bool, len(testIndices))
	for _, idx := range testIndices {
		inTest[idx] = true
	}

	trainIndices := make([]int, 0, ds.Len()-len(testIndices))
	for i := 0; i < ds.Len(); i++ {
		if !inTest[i] {
			trainIndices = append(trainIndices, i)
		}
	}

	train, err := ds.Subset(trainIndices)
	if err != nil {
		return 0, err
	}
	test, err := ds.Subset(testIndices)
	if err != nil {
		return 0, err
	}

	model, err := fitter.Fit(train)
	if err != nil {
		return 0, err
	}

	preds, err := model.Predict(test.X)
	if err != nil {
		return 0, err
	}

	if ds.TargetKind() == dataset.TargetDiscrete {
		correct := 0
		decoded := DecodePredictions(preds)
		for i, pred := range decoded {
			if pred == test.Classes[i] {
				correct++
			}
		}
		return float64(correct) / float64(test.Len()), nil
	}

	metrics, err := RegressMetrics(test.Values, preds)
	if err != nil {
		return 0, err
	}
	return metrics.R2, nil
}

// foldIndices assigns every sample to one of NFolds test folds,
// stratified per class for discrete targets.
func (cv *CrossValidator) foldIndices(ds *dataset.Dataset) [][]int {
	rng := rand.New(rand.NewSource(cv.RandomSeed))
	folds := make([][]int, cv.NFolds)

	assign := func(indices []int) {
		if cv.Shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for i, idx := range indices {
			fold := i % cv.NFolds
			folds[fold] = append(folds[fold], idx)
		}
	}

	if ds.TargetKind() == dataset.TargetDiscrete {
		byClass := make(map[int][]int)
		for i, class := range ds.Classes {
			byClass[class] = append(byClass[class], i)
		}
		for _, class := range sortedKeys(byClass) {
			assign(byClass[class])
		}
	} else {
		indices := make([]int, ds.Len())
		for i := range indices {
			indices[i] = i
		}
		assign(indices)
	}

	return folds
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func meanStd(scores []float64) (float64, float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))

	return mean, math.Sqrt(variance)
}
