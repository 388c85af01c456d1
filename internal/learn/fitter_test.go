package learn_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
	"mlfit/internal/preprocessing"
)

type stubModel struct{ name string }

func (m *stubModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	return make([]decimal.Decimal, len(X)), nil
}

func (m *stubModel) Name() string { return m.name }

type stubLearner struct {
	learn.BaseLearner
	fitErr   error
	fitCalls int
}

func (l *stubLearner) Fit(ds *dataset.Dataset) (learn.Model, error) {
	l.fitCalls++
	if l.fitErr != nil {
		return nil, l.fitErr
	}
	return &stubModel{name: l.Name()}, nil
}

func stubConstructor(name string, paramNames []string) *learn.Constructor {
	return &learn.Constructor{
		Name:       name,
		ParamNames: paramNames,
		New: func(p learn.Params) (learn.Learner, error) {
			return &stubLearner{BaseLearner: learn.NewBaseLearner(name, p)}, nil
		},
	}
}

func dualBinding() learn.Binding {
	return learn.Binding{
		Classification: stubConstructor("stub-classifier", []string{"a", "c", learn.PreprocessorsParam}),
		Regression:     stubConstructor("stub-regressor", []string{"b", learn.PreprocessorsParam}),
	}
}

func classificationData(t *testing.T) *dataset.Dataset {
	t.Helper()
	X := [][]decimal.Decimal{
		{decimal.NewFromInt(1), decimal.NewFromInt(2)},
		{decimal.NewFromInt(3), decimal.NewFromInt(4)},
		{decimal.NewFromInt(5), decimal.NewFromInt(6)},
		{decimal.NewFromInt(7), decimal.NewFromInt(8)},
	}
	ds, err := dataset.NewClassification(X, []int{0, 1, 0, 1}, nil, nil)
	require.NoError(t, err)
	return ds
}

func regressionData(t *testing.T) *dataset.Dataset {
	t.Helper()
	X := [][]decimal.Decimal{
		{decimal.NewFromInt(1)},
		{decimal.NewFromInt(2)},
		{decimal.NewFromInt(3)},
	}
	y := []decimal.Decimal{
		decimal.NewFromFloat(1.5),
		decimal.NewFromFloat(2.5),
		decimal.NewFromFloat(3.5),
	}
	ds, err := dataset.NewRegression(X, y, nil)
	require.NoError(t, err)
	return ds
}

func TestDefine(t *testing.T) {
	tests := []struct {
		name    string
		defName string
		binding learn.Binding
		wantErr bool
	}{
		{
			name:    "dual binding",
			defName: "dual",
			binding: dualBinding(),
		},
		{
			name:    "classification only",
			defName: "clf",
			binding: learn.Binding{Classification: stubConstructor("c", nil)},
		},
		{
			name:    "regression only",
			defName: "reg",
			binding: learn.Binding{Regression: stubConstructor("r", nil)},
		},
		{
			name:    "empty binding",
			defName: "empty",
			binding: learn.Binding{},
			wantErr: true,
		},
		{
			name:    "missing name",
			binding: dualBinding(),
			wantErr: true,
		},
		{
			name:    "constructor without New",
			defName: "broken",
			binding: learn.Binding{Classification: &learn.Constructor{Name: "c"}},
			wantErr: true,
		},
		{
			name:    "constructor without name",
			defName: "anon",
			binding: learn.Binding{
				Regression: &learn.Constructor{
					New: func(learn.Params) (learn.Learner, error) { return nil, nil },
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := learn.Define(tt.defName, tt.binding)
			if tt.wantErr {
				require.ErrorIs(t, err, learn.ErrInvalidDefinition)
				assert.Nil(t, def)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.defName, def.Name())
		})
	}
}

func TestMustDefinePanicsOnInvalidBinding(t *testing.T) {
	assert.Panics(t, func() {
		learn.MustDefine("empty", learn.Binding{})
	})
	assert.NotPanics(t, func() {
		learn.MustDefine("ok", dualBinding())
	})
}

func TestSupports(t *testing.T) {
	dual := learn.MustDefine("dual", dualBinding())
	assert.True(t, dual.Supports(learn.Classification))
	assert.True(t, dual.Supports(learn.Regression))

	clfOnly := learn.MustDefine("clf", learn.Binding{
		Classification: stubConstructor("c", nil),
	})
	assert.True(t, clfOnly.Supports(learn.Classification))
	assert.False(t, clfOnly.Supports(learn.Regression))
}

func TestFitDispatchesOnTargetKind(t *testing.T) {
	def := learn.MustDefine("dual", dualBinding())
	fitter := def.NewFitter(nil, nil)

	model, err := fitter.Fit(classificationData(t))
	require.NoError(t, err)
	assert.Equal(t, "stub-classifier", model.Name())

	kind, ok := fitter.ActiveKind()
	require.True(t, ok)
	assert.Equal(t, learn.Classification, kind)

	model, err = fitter.Fit(regressionData(t))
	require.NoError(t, err)
	assert.Equal(t, "stub-regressor", model.Name())

	kind, ok = fitter.ActiveKind()
	require.True(t, ok)
	assert.Equal(t, learn.Regression, kind)
}

func TestLearnersConstructedLazilyAndCached(t *testing.T) {
	built := map[string]int{}
	counting := func(name string) *learn.Constructor {
		return &learn.Constructor{
			Name: name,
			New: func(p learn.Params) (learn.Learner, error) {
				built[name]++
				return &stubLearner{BaseLearner: learn.NewBaseLearner(name, p)}, nil
			},
		}
	}

	def := learn.MustDefine("dual", learn.Binding{
		Classification: counting("c"),
		Regression:     counting("r"),
	})
	fitter := def.NewFitter(nil, nil)
	assert.Empty(t, built, "nothing is built before first use")

	first, err := fitter.Learner(learn.Classification)
	require.NoError(t, err)
	second, err := fitter.Learner(learn.Classification)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, built["c"])
	assert.Equal(t, 0, built["r"], "the other side stays unbuilt")

	_, err = fitter.Fit(classificationData(t))
	require.NoError(t, err)
	assert.Equal(t, 1, built["c"], "fit reuses the cached learner")
}

func TestParamsFilteredPerConstructor(t *testing.T) {
	var gotClf, gotReg learn.Params
	def := learn.MustDefine("dual", learn.Binding{
		Classification: &learn.Constructor{
			Name:       "c",
			ParamNames: []string{"a", "c"},
			New: func(p learn.Params) (learn.Learner, error) {
				gotClf = p
				return &stubLearner{BaseLearner: learn.NewBaseLearner("c", p)}, nil
			},
		},
		Regression: &learn.Constructor{
			Name:       "r",
			ParamNames: []string{"b"},
			New: func(p learn.Params) (learn.Learner, error) {
				gotReg = p
				return &stubLearner{BaseLearner: learn.NewBaseLearner("r", p)}, nil
			},
		},
	})

	fitter := def.NewFitter(nil, learn.Params{"a": 1, "b": 2, "c": 3, "d": 4})

	_, err := fitter.Learner(learn.Classification)
	require.NoError(t, err)
	assert.Equal(t, learn.Params{"a": 1, "c": 3}, gotClf)

	_, err = fitter.Learner(learn.Regression)
	require.NoError(t, err)
	assert.Equal(t, learn.Params{"b": 2}, gotReg)
}

func TestSharedParamsNotMutatedByFitter(t *testing.T) {
	shared := learn.Params{"a": 1}
	def := learn.MustDefine("dual", dualBinding())
	def.NewFitter(nil, shared)

	_, reserved := shared[learn.PreprocessorsParam]
	assert.False(t, reserved, "caller's map stays untouched")
}

func TestPreprocessorChainReachesLearners(t *testing.T) {
	chain := []preprocessing.Transformer{
		preprocessing.NewScaler(preprocessing.ScaleMinMax),
	}

	def := learn.MustDefine("dual", dualBinding())
	fitter := def.NewFitter(chain, nil)

	learner, err := fitter.Learner(learn.Classification)
	require.NoError(t, err)
	base, ok := learner.(*stubLearner)
	require.True(t, ok)
	assert.Equal(t, chain, base.Preprocessors)

	learner, err = fitter.Learner(learn.Regression)
	require.NoError(t, err)
	base = learner.(*stubLearner)
	assert.Equal(t, chain, base.Preprocessors, "both sides see the same chain")
}

func TestRefittingKeepsEarlierFittedChains(t *testing.T) {
	scaler := preprocessing.NewScaler(preprocessing.ScaleMinMax)
	base := learn.NewBaseLearner("stub", learn.Params{
		learn.PreprocessorsParam: []preprocessing.Transformer{scaler},
	})

	_, firstChain, err := base.Preprocess(classificationData(t))
	require.NoError(t, err)
	require.Len(t, firstChain, 1)
	firstScaler, ok := firstChain[0].(*preprocessing.Scaler)
	require.True(t, ok)
	firstMin := firstScaler.FeatureMin[0]

	shifted, err := dataset.NewClassification([][]decimal.Decimal{
		{decimal.NewFromInt(100), decimal.NewFromInt(200)},
		{decimal.NewFromInt(300), decimal.NewFromInt(400)},
	}, []int{0, 1}, nil, nil)
	require.NoError(t, err)

	_, secondChain, err := base.Preprocess(shifted)
	require.NoError(t, err)

	assert.NotSame(t, firstChain[0], secondChain[0])
	assert.True(t, firstMin.Equal(firstScaler.FeatureMin[0]),
		"first chain keeps the range it was fitted on")
	assert.False(t, scaler.IsFitted, "configured transformer stays an unfitted template")
}

func TestUseDefaultPreprocessorsPropagation(t *testing.T) {
	def := learn.MustDefine("dual", dualBinding())

	t.Run("set before construction", func(t *testing.T) {
		fitter := def.NewFitter(nil, nil)
		fitter.SetUseDefaultPreprocessors(true)

		learner, err := fitter.Learner(learn.Classification)
		require.NoError(t, err)
		assert.True(t, learner.UseDefaultPreprocessors())
	})

	t.Run("set after construction reaches cached learners", func(t *testing.T) {
		fitter := def.NewFitter(nil, nil)

		learner, err := fitter.Learner(learn.Regression)
		require.NoError(t, err)
		assert.False(t, learner.UseDefaultPreprocessors())

		fitter.SetUseDefaultPreprocessors(true)
		assert.True(t, learner.UseDefaultPreprocessors())

		fitter.SetUseDefaultPreprocessors(false)
		assert.False(t, learner.UseDefaultPreprocessors())
	})
}

func TestActiveLearnerBeforeAnyFit(t *testing.T) {
	def := learn.MustDefine("dual", dualBinding())
	fitter := def.NewFitter(nil, nil)

	_, err := fitter.ActiveLearner()
	require.ErrorIs(t, err, learn.ErrUnsupportedProblemKind)

	_, err = fitter.Params()
	require.ErrorIs(t, err, learn.ErrUnsupportedProblemKind)

	_, ok := fitter.ActiveKind()
	assert.False(t, ok)
}

func TestActiveLearnerTracksLastFit(t *testing.T) {
	def := learn.MustDefine("dual", dualBinding())
	fitter := def.NewFitter(nil, learn.Params{"a": 7})

	_, err := fitter.Fit(classificationData(t))
	require.NoError(t, err)

	active, err := fitter.ActiveLearner()
	require.NoError(t, err)
	assert.Equal(t, "stub-classifier", active.Name())

	params, err := fitter.Params()
	require.NoError(t, err)
	assert.Equal(t, 7, params.Int("a", 0))

	_, err = fitter.Fit(regressionData(t))
	require.NoError(t, err)

	active, err = fitter.ActiveLearner()
	require.NoError(t, err)
	assert.Equal(t, "stub-regressor", active.Name())
}

func TestUnsupportedProblemKind(t *testing.T) {
	def := learn.MustDefine("clf-only", learn.Binding{
		Classification: stubConstructor("c", nil),
	})
	fitter := def.NewFitter(nil, nil)

	_, err := fitter.Fit(regressionData(t))
	require.ErrorIs(t, err, learn.ErrUnsupportedProblemKind)

	_, err = fitter.Learner(learn.Regression)
	require.ErrorIs(t, err, learn.ErrUnsupportedProblemKind)

	// The failed dispatch leaves the supported side untouched.
	_, err = fitter.Fit(classificationData(t))
	require.NoError(t, err)
}

func TestLearnerErrorsPropagateUnwrapped(t *testing.T) {
	fitErr := errors.New("singular matrix")
	def := learn.MustDefine("failing", learn.Binding{
		Classification: &learn.Constructor{
			Name: "c",
			New: func(p learn.Params) (learn.Learner, error) {
				return &stubLearner{
					BaseLearner: learn.NewBaseLearner("c", p),
					fitErr:      fitErr,
				}, nil
			},
		},
	})

	fitter := def.NewFitter(nil, nil)
	_, err := fitter.Fit(classificationData(t))
	assert.Same(t, fitErr, err)
}

func TestConstructorErrorsSurface(t *testing.T) {
	ctorErr := errors.New("bad k")
	def := learn.MustDefine("broken", learn.Binding{
		Classification: &learn.Constructor{
			Name: "c",
			New: func(learn.Params) (learn.Learner, error) {
				return nil, ctorErr
			},
		},
	})

	fitter := def.NewFitter(nil, nil)
	_, err := fitter.Fit(classificationData(t))
	require.ErrorIs(t, err, ctorErr)
}

func TestProblemKindString(t *testing.T) {
	assert.Equal(t, "classification", learn.Classification.String())
	assert.Equal(t, "regression", learn.Regression.String())
	assert.Equal(t, "ProblemKind(9)", fmt.Sprint(learn.ProblemKind(9)))
}
