package learners_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
	"mlfit/internal/learners"
)

func TestTreeClassifierFitsSeparableData(t *testing.T) {
	ds := twoBlobs(t)

	learner, err := learners.NewTreeClassifier(learn.Params{"max_depth": 5})
	require.NoError(t, err)

	model, err := learner.Fit(ds)
	require.NoError(t, err)

	preds, err := model.Predict(ds.X)
	require.NoError(t, err)
	for i, pred := range preds {
		assert.Equal(t, int64(ds.Classes[i]), pred.IntPart(), "sample %d", i)
	}
}

func TestTreeClassifierLeafProbabilities(t *testing.T) {
	ds := twoBlobs(t)

	learner, err := learners.NewTreeClassifier(nil)
	require.NoError(t, err)
	model, err := learner.Fit(ds)
	require.NoError(t, err)

	clf, ok := model.(learn.Classifier)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, clf.Classes())

	proba, err := clf.PredictProba(matrix([]float64{0, 0}))
	require.NoError(t, err)
	require.Len(t, proba[0], 2)

	// A pure leaf gives all mass to its class.
	p0, _ := proba[0][0].Float64()
	assert.InDelta(t, 1.0, p0, 1e-9)
}

func TestTreeClassifierDepthOneIsAStump(t *testing.T) {
	ds := twoBlobs(t)

	learner, err := learners.NewTreeClassifier(learn.Params{"max_depth": 1})
	require.NoError(t, err)
	model, err := learner.Fit(ds)
	require.NoError(t, err)

	// One split still separates these blobs.
	preds, err := model.Predict(matrix([]float64{0, 0}, []float64{11, 11}))
	require.NoError(t, err)
	assert.Equal(t, int64(0), preds[0].IntPart())
	assert.Equal(t, int64(1), preds[1].IntPart())
}

func TestTreeRegressorPredictsStepMeans(t *testing.T) {
	X := matrix(
		[]float64{1}, []float64{2}, []float64{3},
		[]float64{10}, []float64{11}, []float64{12},
	)
	ds, err := dataset.NewRegression(X, decimals(5, 5, 5, 20, 20, 20), nil)
	require.NoError(t, err)

	learner, err := learners.NewTreeRegressor(learn.Params{"max_depth": 3})
	require.NoError(t, err)
	model, err := learner.Fit(ds)
	require.NoError(t, err)

	preds, err := model.Predict(matrix([]float64{2.5}, []float64{11.5}))
	require.NoError(t, err)

	got := floats(preds)
	assert.InDelta(t, 5.0, got[0], 1e-9)
	assert.InDelta(t, 20.0, got[1], 1e-9)
}

func TestTreeKindChecks(t *testing.T) {
	clf, err := learners.NewTreeClassifier(nil)
	require.NoError(t, err)
	_, err = clf.Fit(slope2(t))
	assert.Error(t, err)

	reg, err := learners.NewTreeRegressor(nil)
	require.NoError(t, err)
	_, err = reg.Fit(twoBlobs(t))
	assert.Error(t, err)
}

func TestForestClassifierSeparatesBlobs(t *testing.T) {
	ds := twoBlobs(t)

	learner, err := learners.NewForestClassifier(learn.Params{
		"n_trees": 15,
		"seed":    7,
	})
	require.NoError(t, err)

	model, err := learner.Fit(ds)
	require.NoError(t, err)

	preds, err := model.Predict(matrix([]float64{0.5, 0.5}, []float64{10.5, 10.5}))
	require.NoError(t, err)
	assert.Equal(t, int64(0), preds[0].IntPart())
	assert.Equal(t, int64(1), preds[1].IntPart())

	clf, ok := model.(learn.Classifier)
	require.True(t, ok)
	proba, err := clf.PredictProba(matrix([]float64{0.5, 0.5}))
	require.NoError(t, err)

	p0, _ := proba[0][0].Float64()
	assert.Greater(t, p0, 0.5)
}

func TestForestTrainingIsDeterministicPerSeed(t *testing.T) {
	ds := twoBlobs(t)
	queries := matrix([]float64{3, 3}, []float64{8, 8})

	run := func() []int64 {
		learner, err := learners.NewForestClassifier(learn.Params{"n_trees": 9, "seed": 3})
		require.NoError(t, err)
		model, err := learner.Fit(ds)
		require.NoError(t, err)
		preds, err := model.Predict(queries)
		require.NoError(t, err)

		out := make([]int64, len(preds))
		for i, p := range preds {
			out[i] = p.IntPart()
		}
		return out
	}

	assert.Equal(t, run(), run())
}
