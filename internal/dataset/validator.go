package dataset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateForTraining runs the checks a learner relies on before
// fitting: shape consistency is guaranteed by construction, so this
// covers the per-kind target requirements.
func (d *Dataset) ValidateForTraining() error {
	switch d.kind {
	case TargetDiscrete:
		classCount := make(map[int]int)
		for _, class := range d.Classes {
			classCount[class]++
		}
		if len(classCount) < 2 {
			return fmt.Errorf("classification dataset must have at least 2 classes, found %d", len(classCount))
		}
	case TargetContinuous:
		if len(d.Values) < 2 {
			return fmt.Errorf("regression dataset must have at least 2 samples, found %d", len(d.Values))
		}
	}
	return nil
}

// Stats summarizes a dataset for display and logging.
type Stats struct {
	Samples      int
	Features     int
	TargetKind   TargetKind
	Classes      map[int]int
	FeatureStats []FeatureStats
}

type FeatureStats struct {
	Name string
	Min  decimal.Decimal
	Max  decimal.Decimal
	Mean decimal.Decimal
}

func (d *Dataset) Describe() Stats {
	stats := Stats{
		Samples:    d.Len(),
		Features:   d.NumFeatures(),
		TargetKind: d.kind,
	}

	if d.kind == TargetDiscrete {
		stats.Classes = make(map[int]int)
		for _, class := range d.Classes {
			stats.Classes[class]++
		}
	}

	stats.FeatureStats = make([]FeatureStats, stats.Features)
	for j := 0; j < stats.Features; j++ {
		fs := FeatureStats{}
		if d.Features != nil {
			fs.Name = d.Features[j]
		}

		fs.Min = d.X[0][j]
		fs.Max = d.X[0][j]
		sum := decimal.Zero
		for i := range d.X {
			v := d.X[i][j]
			if v.LessThan(fs.Min) {
				fs.Min = v
			}
			if v.GreaterThan(fs.Max) {
				fs.Max = v
			}
			sum = sum.Add(v)
		}
		fs.Mean = sum.Div(decimal.NewFromInt(int64(len(d.X))))
		stats.FeatureStats[j] = fs
	}

	return stats
}
