package learners

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
	"mlfit/internal/preprocessing"
)

// Ridge fits an L2-regularized linear model in closed form via the
// normal equations. The intercept column is not penalized.
type Ridge struct {
	learn.BaseLearner
	Alpha float64
}

func NewRidge(p learn.Params) (learn.Learner, error) {
	alpha := p.Float("alpha", 1.0)
	if alpha < 0 {
		return nil, fmt.Errorf("ridge alpha must be non-negative, got %g", alpha)
	}

	l := &Ridge{
		BaseLearner: learn.NewBaseLearner("Ridge", p),
		Alpha:       alpha,
	}
	l.SetDefaultPreprocessors(func() preprocessing.Transformer {
		return preprocessing.NewScaler(preprocessing.ScaleStandard)
	})
	return l, nil
}

func (l *Ridge) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetContinuous {
		return nil, fmt.Errorf("Ridge requires a continuous target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	X := toFloats(prepared.X)
	nSamples := len(X)
	nFeatures := len(X[0])

	// design matrix with a leading intercept column
	a := mat.NewDense(nSamples, nFeatures+1, nil)
	yVec := mat.NewVecDense(nSamples, nil)
	for i, row := range X {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
		f, _ := prepared.Values[i].Float64()
		yVec.SetVec(i, f)
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	for j := 1; j <= nFeatures; j++ {
		ata.Set(j, j, ata.At(j, j)+l.Alpha)
	}

	var aty mat.VecDense
	aty.MulVec(a.T(), yVec)

	var w mat.VecDense
	if err := w.SolveVec(&ata, &aty); err != nil {
		return nil, fmt.Errorf("ridge normal equations are singular: %w", err)
	}

	weights := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		weights[j] = w.AtVec(j + 1)
	}

	return &LinearModel{
		BaseModel: learn.BaseModel{ModelName: l.Name(), Chain: chain},
		Weights:   weights,
		Bias:      w.AtVec(0),
	}, nil
}
