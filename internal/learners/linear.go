package learners

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
	"mlfit/internal/preprocessing"
)

// LinearRegression fits a linear model with mini-batch gradient
// descent on the mean squared error. Training runs on float64; only
// the dataset boundary is decimal.
type LinearRegression struct {
	learn.BaseLearner
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
}

func NewLinearRegression(p learn.Params) (learn.Learner, error) {
	lr := p.Float("learning_rate", 0.01)
	if lr <= 0 {
		lr = 0.01
	}
	epochs := p.Int("epochs", 200)
	if epochs <= 0 {
		epochs = 200
	}
	batchSize := p.Int("batch_size", 32)
	if batchSize <= 0 {
		batchSize = 32
	}

	l := &LinearRegression{
		BaseLearner:  learn.NewBaseLearner("LinearRegression", p),
		LearningRate: lr,
		Epochs:       epochs,
		BatchSize:    batchSize,
		Seed:         int64(p.Int("seed", 42)),
	}
	l.SetDefaultPreprocessors(func() preprocessing.Transformer {
		return preprocessing.NewScaler(preprocessing.ScaleStandard)
	})
	return l, nil
}

func (l *LinearRegression) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetContinuous {
		return nil, fmt.Errorf("LinearRegression requires a continuous target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	X := toFloats(prepared.X)
	y := make([]float64, len(prepared.Values))
	for i, v := range prepared.Values {
		y[i], _ = v.Float64()
	}

	nFeatures := len(X[0])
	rng := rand.New(rand.NewSource(l.Seed))

	weights := make([]float64, nFeatures)
	for i := range weights {
		weights[i] = rng.NormFloat64() * 0.01
	}
	bias := 0.0

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < l.Epochs; epoch++ {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start < len(indices); start += l.BatchSize {
			end := start + l.BatchSize
			if end > len(indices) {
				end = len(indices)
			}
			batch := indices[start:end]

			gradW := make([]float64, nFeatures)
			gradB := 0.0
			scale := 2.0 / float64(len(batch))

			for _, idx := range batch {
				pred := bias
				for j, xij := range X[idx] {
					pred += weights[j] * xij
				}
				d := scale * (pred - y[idx])
				for j, xij := range X[idx] {
					gradW[j] += d * xij
				}
				gradB += d
			}

			for j := range weights {
				weights[j] -= l.LearningRate * gradW[j]
			}
			bias -= l.LearningRate * gradB
		}
	}

	return &LinearModel{
		BaseModel: learn.BaseModel{ModelName: l.Name(), Chain: chain},
		Weights:   weights,
		Bias:      bias,
	}, nil
}

// LinearModel predicts with a fitted weight vector. Shared by the SGD
// and ridge learners.
type LinearModel struct {
	learn.BaseModel
	Weights []float64
	Bias    float64
}

func (m *LinearModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, row := range X {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("feature count mismatch: model has %d weights, input has %d features", len(m.Weights), len(row))
		}
		sum := m.Bias
		for j, v := range row {
			f, _ := v.Float64()
			sum += m.Weights[j] * f
		}
		predictions[i] = decimal.NewFromFloat(sum)
	}
	return predictions, nil
}

// Coefficients returns the fitted weights and intercept.
func (m *LinearModel) Coefficients() ([]float64, float64) {
	return append([]float64(nil), m.Weights...), m.Bias
}

func toFloats(X [][]decimal.Decimal) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j], _ = v.Float64()
		}
	}
	return out
}
