package preprocessing

import (
	"github.com/shopspring/decimal"
)

// Transformer is a feature-matrix preprocessing step: fit on training
// data, then transform any matrix with the fitted parameters. Clone
// returns an unfitted copy with the same configuration, so one
// configured transformer can seed many independent fits.
type Transformer interface {
	Fit(X [][]decimal.Decimal) error
	Transform(X [][]decimal.Decimal) ([][]decimal.Decimal, error)
	FitTransform(X [][]decimal.Decimal) ([][]decimal.Decimal, error)
	Clone() Transformer
}

func copyMatrix(X [][]decimal.Decimal) [][]decimal.Decimal {
	out := make([][]decimal.Decimal, len(X))
	for i := range X {
		out[i] = make([]decimal.Decimal, len(X[i]))
		copy(out[i], X[i])
	}
	return out
}
