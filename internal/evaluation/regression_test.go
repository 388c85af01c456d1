package evaluation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/evaluation"
)

func decimals(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestRegressMetricsPerfectFit(t *testing.T) {
	y := decimals(1, 2, 3)
	m, err := evaluation.RegressMetrics(y, y)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.MSE)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, 1.0, m.R2)
	assert.Equal(t, 3, m.NumSamples)
}

func TestRegressMetricsKnownErrors(t *testing.T) {
	m, err := evaluation.RegressMetrics(decimals(1, 2, 3), decimals(2, 2, 2))
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, m.MSE, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.MAE, 1e-9)
	// residual SS 2, total SS 2 -> R2 = 0
	assert.InDelta(t, 0.0, m.R2, 1e-9)
}

func TestRegressMetricsConstantTruth(t *testing.T) {
	m, err := evaluation.RegressMetrics(decimals(5, 5, 5), decimals(4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.R2, "constant truth yields zero, not NaN")
}

func TestRegressMetricsErrors(t *testing.T) {
	_, err := evaluation.RegressMetrics(decimals(1), decimals(1, 2))
	assert.Error(t, err)

	_, err = evaluation.RegressMetrics(nil, nil)
	assert.Error(t, err)
}
