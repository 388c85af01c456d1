package dataset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TargetKind reports whether a dataset's target variable is discrete
// (class labels) or continuous (numeric values).
type TargetKind int

const (
	TargetDiscrete TargetKind = iota
	TargetContinuous
)

func (k TargetKind) String() string {
	switch k {
	case TargetDiscrete:
		return "discrete"
	case TargetContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Dataset is a feature matrix with exactly one target column, either a
// discrete class target or a continuous value target. Construction
// rejects empty or mismatched data, so a Dataset always has a valid
// target of a known kind.
type Dataset struct {
	Features   []string
	X          [][]decimal.Decimal
	Classes    []int
	ClassNames []string
	Values     []decimal.Decimal

	kind TargetKind
}

// NewClassification builds a dataset with a discrete target. classNames
// maps class codes to their original labels and may be nil.
func NewClassification(X [][]decimal.Decimal, classes []int, features, classNames []string) (*Dataset, error) {
	if err := checkShape(X, len(classes), features); err != nil {
		return nil, err
	}
	return &Dataset{
		Features:   features,
		X:          X,
		Classes:    classes,
		ClassNames: classNames,
		kind:       TargetDiscrete,
	}, nil
}

// NewRegression builds a dataset with a continuous target.
func NewRegression(X [][]decimal.Decimal, values []decimal.Decimal, features []string) (*Dataset, error) {
	if err := checkShape(X, len(values), features); err != nil {
		return nil, err
	}
	return &Dataset{
		Features: features,
		X:        X,
		Values:   values,
		kind:     TargetContinuous,
	}, nil
}

func checkShape(X [][]decimal.Decimal, targetLen int, features []string) error {
	if len(X) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if len(X) != targetLen {
		return fmt.Errorf("feature matrix and target have different lengths: %d vs %d", len(X), targetLen)
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return fmt.Errorf("dataset has no feature columns")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("inconsistent feature count at sample %d: expected %d, got %d", i, nFeatures, len(row))
		}
	}
	if features != nil && len(features) != nFeatures {
		return fmt.Errorf("feature name count %d does not match feature count %d", len(features), nFeatures)
	}
	return nil
}

func (d *Dataset) TargetKind() TargetKind {
	return d.kind
}

func (d *Dataset) Len() int {
	return len(d.X)
}

func (d *Dataset) NumFeatures() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

// ClassName resolves a class code to its original label. Falls back to
// the numeric code when no name table is attached.
func (d *Dataset) ClassName(code int) string {
	if code >= 0 && code < len(d.ClassNames) {
		return d.ClassNames[code]
	}
	return fmt.Sprintf("%d", code)
}

// CloneX returns a deep copy of the feature matrix. Preprocessors
// operate on copies so the original data stays untouched.
func (d *Dataset) CloneX() [][]decimal.Decimal {
	out := make([][]decimal.Decimal, len(d.X))
	for i := range d.X {
		out[i] = make([]decimal.Decimal, len(d.X[i]))
		copy(out[i], d.X[i])
	}
	return out
}

// WithX returns a dataset sharing this dataset's target but with a
// replacement feature matrix of the same length.
func (d *Dataset) WithX(X [][]decimal.Decimal) (*Dataset, error) {
	if len(X) != len(d.X) {
		return nil, fmt.Errorf("replacement matrix length %d does not match dataset length %d", len(X), len(d.X))
	}
	clone := *d
	clone.X = X
	return &clone, nil
}

// Subset selects the given sample indices into a new dataset.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("cannot build an empty subset")
	}

	X := make([][]decimal.Decimal, len(indices))
	sub := &Dataset{
		Features:   d.Features,
		ClassNames: d.ClassNames,
		kind:       d.kind,
	}

	switch d.kind {
	case TargetDiscrete:
		sub.Classes = make([]int, len(indices))
	case TargetContinuous:
		sub.Values = make([]decimal.Decimal, len(indices))
	}

	for i, idx := range indices {
		if idx < 0 || idx >= len(d.X) {
			return nil, fmt.Errorf("subset index %d out of range [0, %d)", idx, len(d.X))
		}
		X[i] = d.X[idx]
		switch d.kind {
		case TargetDiscrete:
			sub.Classes[i] = d.Classes[idx]
		case TargetContinuous:
			sub.Values[i] = d.Values[idx]
		}
	}

	sub.X = X
	return sub, nil
}
