package evaluation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type RegressionMetrics struct {
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`

	NumSamples int `json:"num_samples"`
}

// RegressMetrics scores continuous predictions against the truth. R2
// is the coefficient of determination; a constant truth column yields
// R2 = 0 rather than a division by zero.
func RegressMetrics(yTrue, yPred []decimal.Decimal) (*RegressionMetrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("prediction length %d does not match truth length %d", len(yPred), len(yTrue))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("cannot score an empty prediction set")
	}

	n := float64(len(yTrue))
	var sse, sae, sum float64

	for i := range yTrue {
		truth, _ := yTrue[i].Float64()
		pred, _ := yPred[i].Float64()
		diff := pred - truth
		sse += diff * diff
		sae += math.Abs(diff)
		sum += truth
	}

	mean := sum / n
	var sst float64
	for i := range yTrue {
		truth, _ := yTrue[i].Float64()
		d := truth - mean
		sst += d * d
	}

	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	mse := sse / n
	return &RegressionMetrics{
		MSE:        mse,
		RMSE:       math.Sqrt(mse),
		MAE:        sae / n,
		R2:         r2,
		NumSamples: len(yTrue),
	}, nil
}

func (m *RegressionMetrics) Format() string {
	return fmt.Sprintf("MSE: %.4f\nRMSE: %.4f\nMAE: %.4f\nR2: %.4f\n", m.MSE, m.RMSE, m.MAE, m.R2)
}
