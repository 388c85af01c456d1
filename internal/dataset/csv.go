package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"mlfit/internal/preprocessing"
)

// Cells treated as missing during load.
func isMissing(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NA", "NaN", "nan", "null":
		return true
	}
	return false
}

const (
	ImputeZero   = "zero"
	ImputeMean   = "mean"
	ImputeMedian = "median"
)

// LoadOptions controls CSV loading. The zero value reads the last
// column as the target and zero-fills missing feature cells.
type LoadOptions struct {
	// LabelCol is the target column index; negative means the last column.
	LabelCol int
	// Impute is the missing-feature-value strategy: zero, mean or median.
	Impute string
	// DiscreteThreshold caps how many distinct numeric target values
	// still count as a discrete target. Zero means the default of 10.
	DiscreteThreshold int
}

// LoadCSV reads a headered CSV file into a Dataset. The target kind is
// inferred from the label column: a column that does not parse fully as
// numbers, or parses to only a few distinct values, is discrete and
// gets label-encoded; anything else is a continuous target.
func LoadCSV(filename string, opts LoadOptions) (*Dataset, *preprocessing.LabelEncoder, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("insufficient data in %s", filename)
	}

	header := records[0]
	rows := records[1:]

	labelCol := opts.LabelCol
	if labelCol < 0 || labelCol >= len(header) {
		labelCol = len(header) - 1
	}

	features := make([]string, 0, len(header)-1)
	for j, name := range header {
		if j != labelCol {
			features = append(features, name)
		}
	}

	cells := make([][]string, len(rows))
	labels := make([]string, len(rows))
	for i, record := range rows {
		if len(record) != len(header) {
			return nil, nil, fmt.Errorf("row %d has %d columns, expected %d", i+1, len(record), len(header))
		}
		cells[i] = make([]string, 0, len(record)-1)
		for j, cell := range record {
			if j == labelCol {
				labels[i] = strings.TrimSpace(cell)
			} else {
				cells[i] = append(cells[i], cell)
			}
		}
	}

	X, err := parseFeatures(cells, opts.Impute)
	if err != nil {
		return nil, nil, err
	}

	threshold := opts.DiscreteThreshold
	if threshold <= 0 {
		threshold = 10
	}

	if values, numeric := parseNumericTarget(labels); numeric && distinctCount(labels) > threshold {
		ds, err := NewRegression(X, values, features)
		return ds, nil, err
	}

	encoder := preprocessing.NewLabelEncoder()
	classes, err := encoder.FitTransform(labels)
	if err != nil {
		return nil, nil, err
	}
	ds, err := NewClassification(X, classes, features, encoder.ClassNames())
	return ds, encoder, err
}

func parseNumericTarget(labels []string) ([]decimal.Decimal, bool) {
	values := make([]decimal.Decimal, len(labels))
	for i, label := range labels {
		val, err := decimal.NewFromString(label)
		if err != nil {
			return nil, false
		}
		values[i] = val
	}
	return values, true
}

func distinctCount(labels []string) int {
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		seen[label] = true
	}
	return len(seen)
}

func parseFeatures(cells [][]string, impute string) ([][]decimal.Decimal, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	nFeatures := len(cells[0])
	X := make([][]decimal.Decimal, len(cells))
	missing := make([][]bool, len(cells))

	for i, row := range cells {
		X[i] = make([]decimal.Decimal, nFeatures)
		missing[i] = make([]bool, nFeatures)
		for j, cell := range row {
			if isMissing(cell) {
				missing[i][j] = true
				continue
			}
			val, err := decimal.NewFromString(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("non-numeric feature value %q at row %d, column %d", cell, i+1, j)
			}
			X[i][j] = val
		}
	}

	switch impute {
	case ImputeZero, "":
	case ImputeMean, ImputeMedian:
		for j := 0; j < nFeatures; j++ {
			fill := columnFill(X, missing, j, impute)
			for i := range X {
				if missing[i][j] {
					X[i][j] = fill
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown impute strategy %q", impute)
	}

	return X, nil
}

func columnFill(X [][]decimal.Decimal, missing [][]bool, col int, strategy string) decimal.Decimal {
	present := make([]decimal.Decimal, 0, len(X))
	for i := range X {
		if !missing[i][col] {
			present = append(present, X[i][col])
		}
	}
	if len(present) == 0 {
		return decimal.Zero
	}

	if strategy == ImputeMedian {
		sort.Slice(present, func(a, b int) bool { return present[a].LessThan(present[b]) })
		mid := len(present) / 2
		if len(present)%2 == 1 {
			return present[mid]
		}
		return present[mid-1].Add(present[mid]).Div(decimal.NewFromInt(2))
	}

	sum := decimal.Zero
	for _, v := range present {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(present))))
}
