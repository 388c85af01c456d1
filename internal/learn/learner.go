package learn

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/preprocessing"
)

// Learner is a fitting strategy for one target kind: construct it with
// parameters, call Fit on a dataset, get a Model back.
type Learner interface {
	Fit(ds *dataset.Dataset) (Model, error)
	Name() string
	Params() Params
	SetUseDefaultPreprocessors(bool)
	UseDefaultPreprocessors() bool
}

// Model is a fitted predictor. Classification models return encoded
// class labels as decimals; regression models return raw values.
type Model interface {
	Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error)
	Name() string
}

// Classifier is the extended surface of classification models.
type Classifier interface {
	Model
	PredictProba(X [][]decimal.Decimal) ([][]decimal.Decimal, error)
	Classes() []int
}

// BaseLearner carries the state every learner shares: its name, the
// parameters it was constructed with, an explicit preprocessor chain
// and the default-preprocessor switch the fitter propagates.
type BaseLearner struct {
	LearnerName   string
	LearnerParams Params
	Preprocessors []preprocessing.Transformer

	defaults   []func() preprocessing.Transformer
	useDefault bool
}

func NewBaseLearner(name string, params Params) BaseLearner {
	return BaseLearner{
		LearnerName:   name,
		LearnerParams: params,
		Preprocessors: params.Transformers(PreprocessorsParam),
	}
}

func (b *BaseLearner) Name() string {
	return b.LearnerName
}

func (b *BaseLearner) Params() Params {
	return b.LearnerParams
}

func (b *BaseLearner) SetUseDefaultPreprocessors(v bool) {
	b.useDefault = v
}

func (b *BaseLearner) UseDefaultPreprocessors() bool {
	return b.useDefault
}

// SetDefaultPreprocessors declares the chain applied when the
// default-preprocessor switch is on. Concrete learners call this at
// construction. Factories, not instances: every Fit gets fresh
// transformers, so models fitted earlier keep their own chains.
func (b *BaseLearner) SetDefaultPreprocessors(factories ...func() preprocessing.Transformer) {
	b.defaults = factories
}

// Preprocess fits the explicit chain (plus defaults when enabled) on
// the dataset's features and returns the transformed dataset together
// with the fitted chain, which the resulting model applies to inputs
// at prediction time. Explicit transformers are cloned per call, so
// refitting the learner never disturbs chains inside earlier models.
func (b *BaseLearner) Preprocess(ds *dataset.Dataset) (*dataset.Dataset, []preprocessing.Transformer, error) {
	chain := make([]preprocessing.Transformer, 0, len(b.Preprocessors)+len(b.defaults))
	for _, p := range b.Preprocessors {
		chain = append(chain, p.Clone())
	}
	if b.useDefault {
		for _, factory := range b.defaults {
			chain = append(chain, factory())
		}
	}

	if len(chain) == 0 {
		return ds, nil, nil
	}

	X := ds.CloneX()
	var err error
	for _, t := range chain {
		X, err = t.FitTransform(X)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: preprocessing failed: %w", b.LearnerName, err)
		}
	}

	out, err := ds.WithX(X)
	if err != nil {
		return nil, nil, err
	}
	return out, chain, nil
}

// ApplyChain runs a fitted preprocessor chain over a feature matrix.
func ApplyChain(chain []preprocessing.Transformer, X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	var err error
	for _, t := range chain {
		X, err = t.Transform(X)
		if err != nil {
			return nil, err
		}
	}
	return X, nil
}

// BaseModel is embedded by fitted models. It keeps the preprocessor
// chain fitted at training time so predictions see inputs in the same
// space the model was trained in.
type BaseModel struct {
	ModelName string
	Chain     []preprocessing.Transformer
}

func (m *BaseModel) Name() string {
	return m.ModelName
}

// PrepareInput applies the training-time preprocessor chain.
func (m *BaseModel) PrepareInput(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	if len(m.Chain) == 0 {
		return X, nil
	}
	return ApplyChain(m.Chain, X)
}
