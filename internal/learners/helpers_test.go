package learners_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"mlfit/internal/dataset"
)

func matrix(rows ...[]float64) [][]decimal.Decimal {
	X := make([][]decimal.Decimal, len(rows))
	for i, row := range rows {
		X[i] = make([]decimal.Decimal, len(row))
		for j, v := range row {
			X[i][j] = decimal.NewFromFloat(v)
		}
	}
	return X
}

func decimals(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func floats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i], _ = v.Float64()
	}
	return out
}

// twoBlobs is a linearly separable two-class problem: class 0 sits
// near the origin, class 1 near (10, 10).
func twoBlobs(t *testing.T) *dataset.Dataset {
	t.Helper()
	X := matrix(
		[]float64{0, 0},
		[]float64{1, 0},
		[]float64{0, 1},
		[]float64{1, 1},
		[]float64{10, 10},
		[]float64{11, 10},
		[]float64{10, 11},
		[]float64{11, 11},
	)
	ds, err := dataset.NewClassification(X, []int{0, 0, 0, 0, 1, 1, 1, 1}, nil, nil)
	require.NoError(t, err)
	return ds
}

// slope2 is y = 2x + 1 without noise.
func slope2(t *testing.T) *dataset.Dataset {
	t.Helper()
	X := matrix(
		[]float64{0},
		[]float64{1},
		[]float64{2},
		[]float64{3},
		[]float64{4},
		[]float64{5},
	)
	ds, err := dataset.NewRegression(X, decimals(1, 3, 5, 7, 9, 11), nil)
	require.NoError(t, err)
	return ds
}
