package learners_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/learn"
	"mlfit/internal/learners"
)

func TestLinearRegressionLearnsSlope(t *testing.T) {
	ds := slope2(t)

	learner, err := learners.NewLinearRegression(learn.Params{
		"learning_rate": 0.05,
		"epochs":        2000,
		"seed":          1,
	})
	require.NoError(t, err)

	model, err := learner.Fit(ds)
	require.NoError(t, err)

	preds, err := model.Predict(matrix([]float64{6}, []float64{7}))
	require.NoError(t, err)

	got := floats(preds)
	assert.InDelta(t, 13.0, got[0], 0.2)
	assert.InDelta(t, 15.0, got[1], 0.2)
}

func TestLinearRegressionRejectsDiscreteTarget(t *testing.T) {
	learner, err := learners.NewLinearRegression(nil)
	require.NoError(t, err)

	_, err = learner.Fit(twoBlobs(t))
	assert.Error(t, err)
}

func TestRidgeRecoversCoefficients(t *testing.T) {
	ds := slope2(t)

	learner, err := learners.NewRidge(learn.Params{"alpha": 1e-6})
	require.NoError(t, err)

	model, err := learner.Fit(ds)
	require.NoError(t, err)

	linear, ok := model.(*learners.LinearModel)
	require.True(t, ok)

	weights, bias := linear.Coefficients()
	require.Len(t, weights, 1)
	assert.InDelta(t, 2.0, weights[0], 1e-3)
	assert.InDelta(t, 1.0, bias, 1e-3)

	preds, err := model.Predict(matrix([]float64{10}))
	require.NoError(t, err)
	assert.InDelta(t, 21.0, floats(preds)[0], 1e-2)
}

func TestRidgeShrinksWithLargeAlpha(t *testing.T) {
	ds := slope2(t)

	loose, err := learners.NewRidge(learn.Params{"alpha": 1e-6})
	require.NoError(t, err)
	tight, err := learners.NewRidge(learn.Params{"alpha": 1e6})
	require.NoError(t, err)

	looseModel, err := loose.Fit(ds)
	require.NoError(t, err)
	tightModel, err := tight.Fit(ds)
	require.NoError(t, err)

	looseW, _ := looseModel.(*learners.LinearModel).Coefficients()
	tightW, _ := tightModel.(*learners.LinearModel).Coefficients()

	assert.Less(t, tightW[0], looseW[0], "heavy regularization shrinks the slope")
}
