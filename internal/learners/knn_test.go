package learners_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/learn"
	"mlfit/internal/learners"
)

func TestKNNClassifierSeparatesBlobs(t *testing.T) {
	ds := twoBlobs(t)

	learner, err := learners.NewKNNClassifier(learn.Params{"k": 3})
	require.NoError(t, err)

	model, err := learner.Fit(ds)
	require.NoError(t, err)

	preds, err := model.Predict(matrix(
		[]float64{0.5, 0.5},
		[]float64{10.5, 10.5},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(0), preds[0].IntPart())
	assert.Equal(t, int64(1), preds[1].IntPart())
}

func TestKNNClassifierProbabilities(t *testing.T) {
	ds := twoBlobs(t)

	learner, err := learners.NewKNNClassifier(learn.Params{"k": 4})
	require.NoError(t, err)
	model, err := learner.Fit(ds)
	require.NoError(t, err)

	clf, ok := model.(learn.Classifier)
	require.True(t, ok)

	proba, err := clf.PredictProba(matrix([]float64{0.5, 0.5}))
	require.NoError(t, err)
	require.Len(t, proba, 1)
	require.Len(t, proba[0], 2)

	sum := decimal.Zero
	for _, p := range proba[0] {
		sum = sum.Add(p)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(1)), "probabilities sum to 1, got %s", sum)
	assert.Equal(t, []int{0, 1}, clf.Classes())
}

func TestKNNClassifierRejectsContinuousTarget(t *testing.T) {
	learner, err := learners.NewKNNClassifier(nil)
	require.NoError(t, err)

	_, err = learner.Fit(slope2(t))
	assert.Error(t, err)
}

func TestKNNRegressorAveragesNeighbors(t *testing.T) {
	ds := slope2(t)

	learner, err := learners.NewKNNRegressor(learn.Params{"k": 2})
	require.NoError(t, err)
	model, err := learner.Fit(ds)
	require.NoError(t, err)

	preds, err := model.Predict(matrix([]float64{2.4}))
	require.NoError(t, err)

	// The two nearest targets are 5 and 7.
	got, _ := preds[0].Float64()
	assert.InDelta(t, 6.0, got, 1e-9)
}

func TestKNNDistanceMetricParam(t *testing.T) {
	ds := twoBlobs(t)

	for _, metric := range []string{"euclidean", "manhattan"} {
		learner, err := learners.NewKNNClassifier(learn.Params{"k": 1, "distance": metric})
		require.NoError(t, err)

		model, err := learner.Fit(ds)
		require.NoError(t, err)

		preds, err := model.Predict(matrix([]float64{10, 10}))
		require.NoError(t, err)
		assert.Equal(t, int64(1), preds[0].IntPart(), "metric %s", metric)
	}
}
