package learners

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
)

// NaiveBayes is a Gaussian naive Bayes classifier. Log-space
// throughout to avoid underflow on wide feature sets.
type NaiveBayes struct {
	learn.BaseLearner
	VarSmoothing decimal.Decimal
}

func NewNaiveBayes(p learn.Params) (learn.Learner, error) {
	smoothing := p.Float("var_smoothing", 1e-9)
	if smoothing <= 0 {
		smoothing = 1e-9
	}

	return &NaiveBayes{
		BaseLearner:  learn.NewBaseLearner("NaiveBayes", p),
		VarSmoothing: decimal.NewFromFloat(smoothing),
	}, nil
}

func (l *NaiveBayes) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetDiscrete {
		return nil, fmt.Errorf("NaiveBayes requires a discrete target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	X, y := prepared.X, prepared.Classes
	classes := extractClasses(y)
	nFeatures := prepared.NumFeatures()

	model := &NaiveBayesModel{
		BaseModel:      learn.BaseModel{ModelName: l.Name(), Chain: chain},
		ClassSet:       classes,
		ClassLogPriors: make(map[int]float64, len(classes)),
		FeatureMeans:   make(map[int][]decimal.Decimal, len(classes)),
		FeatureVars:    make(map[int][]decimal.Decimal, len(classes)),
	}

	for _, class := range classes {
		var classData [][]decimal.Decimal
		for i, label := range y {
			if label == class {
				classData = append(classData, X[i])
			}
		}
		if len(classData) == 0 {
			return nil, fmt.Errorf("class %d has no samples", class)
		}

		model.ClassLogPriors[class] = math.Log(float64(len(classData)) / float64(len(y)))
		model.FeatureMeans[class] = make([]decimal.Decimal, nFeatures)
		model.FeatureVars[class] = make([]decimal.Decimal, nFeatures)

		count := decimal.NewFromInt(int64(len(classData)))
		for j := 0; j < nFeatures; j++ {
			sum := decimal.Zero
			for _, row := range classData {
				sum = sum.Add(row[j])
			}
			mean := sum.Div(count)
			model.FeatureMeans[class][j] = mean

			variance := decimal.Zero
			for _, row := range classData {
				diff := row[j].Sub(mean)
				variance = variance.Add(diff.Mul(diff))
			}
			model.FeatureVars[class][j] = variance.Div(count).Add(l.VarSmoothing)
		}
	}

	return model, nil
}

type NaiveBayesModel struct {
	learn.BaseModel
	ClassSet       []int
	ClassLogPriors map[int]float64
	FeatureMeans   map[int][]decimal.Decimal
	FeatureVars    map[int][]decimal.Decimal
}

func (m *NaiveBayesModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, sample := range X {
		best := m.ClassSet[0]
		maxLogProb := math.Inf(-1)

		for _, class := range m.ClassSet {
			logProb := m.classLogProb(class, sample)
			if logProb > maxLogProb {
				maxLogProb = logProb
				best = class
			}
		}
		predictions[i] = decimal.NewFromInt(int64(best))
	}
	return predictions, nil
}

func (m *NaiveBayesModel) PredictProba(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		logProbs := make([]float64, len(m.ClassSet))
		for k, class := range m.ClassSet {
			logProbs[k] = m.classLogProb(class, sample)
		}

		// softmax with the max shifted out for stability
		maxLogProb := logProbs[0]
		for _, lp := range logProbs[1:] {
			if lp > maxLogProb {
				maxLogProb = lp
			}
		}
		sumExp := 0.0
		for _, lp := range logProbs {
			sumExp += math.Exp(lp - maxLogProb)
		}

		proba[i] = make([]decimal.Decimal, len(m.ClassSet))
		for k, lp := range logProbs {
			proba[i][k] = decimal.NewFromFloat(math.Exp(lp-maxLogProb) / sumExp)
		}
	}
	return proba, nil
}

func (m *NaiveBayesModel) Classes() []int {
	return m.ClassSet
}

func (m *NaiveBayesModel) classLogProb(class int, sample []decimal.Decimal) float64 {
	logProb := m.ClassLogPriors[class]
	for j, feature := range sample {
		logProb += logGaussianPDF(feature, m.FeatureMeans[class][j], m.FeatureVars[class][j])
	}
	return logProb
}

func logGaussianPDF(x, mean, variance decimal.Decimal) float64 {
	xF, _ := x.Float64()
	meanF, _ := mean.Float64()
	varF, _ := variance.Float64()

	diff := xF - meanF
	return -0.5*math.Log(2*math.Pi*varF) - (diff*diff)/(2*varF)
}
