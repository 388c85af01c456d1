package learners

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
	"mlfit/internal/preprocessing"
)

// KNNClassifier predicts the majority class among the k nearest
// training samples. Distance-based, so its default preprocessing is a
// standard scaler.
type KNNClassifier struct {
	learn.BaseLearner
	K        int
	Distance string
}

func NewKNNClassifier(p learn.Params) (learn.Learner, error) {
	k := p.Int("k", 5)
	if k <= 0 {
		k = 5
	}

	l := &KNNClassifier{
		BaseLearner: learn.NewBaseLearner("KNNClassifier", p),
		K:           k,
		Distance:    normalizeDistance(p.String("distance", DistanceEuclidean)),
	}
	l.SetDefaultPreprocessors(func() preprocessing.Transformer {
		return preprocessing.NewScaler(preprocessing.ScaleStandard)
	})
	return l, nil
}

func (l *KNNClassifier) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetDiscrete {
		return nil, fmt.Errorf("KNNClassifier requires a discrete target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	model := &KNNClassifierModel{
		BaseModel: learn.BaseModel{ModelName: l.Name(), Chain: chain},
		K:         l.K,
		Distance:  l.Distance,
		XTrain:    prepared.CloneX(),
		YTrain:    append([]int(nil), prepared.Classes...),
		ClassSet:  extractClasses(prepared.Classes),
	}
	return model, nil
}

type KNNClassifierModel struct {
	learn.BaseModel
	K        int
	Distance string
	XTrain   [][]decimal.Decimal
	YTrain   []int
	ClassSet []int
}

func (m *KNNClassifierModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, sample := range X {
		neighbors := nearestIndices(m.XTrain, sample, m.K, m.Distance)
		predictions[i] = decimal.NewFromInt(int64(m.majorityVote(neighbors)))
	}
	return predictions, nil
}

func (m *KNNClassifierModel) PredictProba(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		neighbors := nearestIndices(m.XTrain, sample, m.K, m.Distance)

		votes := make(map[int]int)
		for _, idx := range neighbors {
			votes[m.YTrain[idx]]++
		}

		total := decimal.NewFromInt(int64(len(neighbors)))
		proba[i] = make([]decimal.Decimal, len(m.ClassSet))
		for j, class := range m.ClassSet {
			proba[i][j] = decimal.NewFromInt(int64(votes[class])).Div(total)
		}
	}
	return proba, nil
}

func (m *KNNClassifierModel) Classes() []int {
	return m.ClassSet
}

func (m *KNNClassifierModel) majorityVote(neighbors []int) int {
	votes := make(map[int]int)
	for _, idx := range neighbors {
		votes[m.YTrain[idx]]++
	}

	best := m.ClassSet[0]
	maxVotes := 0
	for _, class := range m.ClassSet {
		if votes[class] > maxVotes {
			maxVotes = votes[class]
			best = class
		}
	}
	return best
}

// KNNRegressor predicts the mean target value among the k nearest
// training samples.
type KNNRegressor struct {
	learn.BaseLearner
	K        int
	Distance string
}

func NewKNNRegressor(p learn.Params) (learn.Learner, error) {
	k := p.Int("k", 5)
	if k <= 0 {
		k = 5
	}

	l := &KNNRegressor{
		BaseLearner: learn.NewBaseLearner("KNNRegressor", p),
		K:           k,
		Distance:    normalizeDistance(p.String("distance", DistanceEuclidean)),
	}
	l.SetDefaultPreprocessors(func() preprocessing.Transformer {
		return preprocessing.NewScaler(preprocessing.ScaleStandard)
	})
	return l, nil
}

func (l *KNNRegressor) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetContinuous {
		return nil, fmt.Errorf("KNNRegressor requires a continuous target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	return &KNNRegressorModel{
		BaseModel: learn.BaseModel{ModelName: l.Name(), Chain: chain},
		K:         l.K,
		Distance:  l.Distance,
		XTrain:    prepared.CloneX(),
		YTrain:    append([]decimal.Decimal(nil), prepared.Values...),
	}, nil
}

type KNNRegressorModel struct {
	learn.BaseModel
	K        int
	Distance string
	XTrain   [][]decimal.Decimal
	YTrain   []decimal.Decimal
}

func (m *KNNRegressorModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, sample := range X {
		neighbors := nearestIndices(m.XTrain, sample, m.K, m.Distance)

		sum := decimal.Zero
		for _, idx := range neighbors {
			sum = sum.Add(m.YTrain[idx])
		}
		predictions[i] = sum.Div(decimal.NewFromInt(int64(len(neighbors))))
	}
	return predictions, nil
}

func extractClasses(y []int) []int {
	seen := make(map[int]bool)
	classes := make([]int, 0)
	for _, class := range y {
		if !seen[class] {
			seen[class] = true
			classes = append(classes, class)
		}
	}
	return classes
}
