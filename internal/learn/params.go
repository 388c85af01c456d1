package learn

import (
	"github.com/shopspring/decimal"

	"mlfit/internal/preprocessing"
)

// PreprocessorsParam is the reserved parameter key under which a
// fitter's preprocessor chain is stored, so whichever learner gets
// selected sees the same chain.
const PreprocessorsParam = "preprocessors"

// Params is an open, untyped bag of named configuration values. A
// fitter holds the union of parameters for all learners it can build
// and hands each constructor only the names it declares.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Filter keeps only the given names. Unknown names are silently
// dropped, never an error: constructors receive exactly the subset of
// the shared configuration they declared.
func (p Params) Filter(names []string) Params {
	out := make(Params, len(names))
	for _, name := range names {
		if v, ok := p[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Int reads an integer value, tolerating the numeric types yaml and
// json decoding produce.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func (p Params) Float(key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func (p Params) String(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

func (p Params) Decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	switch v := p[key].(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}

// Transformers reads the reserved preprocessor chain.
func (p Params) Transformers(key string) []preprocessing.Transformer {
	if v, ok := p[key].([]preprocessing.Transformer); ok {
		return v
	}
	return nil
}
