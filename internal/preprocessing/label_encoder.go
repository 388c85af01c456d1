package preprocessing

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// LabelEncoder maps string class labels to dense integer codes and back.
// Codes are assigned in sorted label order so repeated fits over the same
// label set are stable.
type LabelEncoder struct {
	ClassToInt map[string]int
	IntToClass map[int]string
	IsFitted   bool
}

func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{
		ClassToInt: make(map[string]int),
		IntToClass: make(map[int]string),
	}
}

func (le *LabelEncoder) Fit(labels []string) {
	le.ClassToInt = make(map[string]int)
	le.IntToClass = make(map[int]string)

	unique := make(map[string]bool)
	for _, label := range labels {
		unique[label] = true
	}

	ordered := make([]string, 0, len(unique))
	for label := range unique {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	for idx, label := range ordered {
		le.ClassToInt[label] = idx
		le.IntToClass[idx] = label
	}

	le.IsFitted = true
}

func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !le.IsFitted {
		return nil, fmt.Errorf("label encoder must be fitted before transform")
	}

	result := make([]int, len(labels))
	for i, label := range labels {
		code, ok := le.ClassToInt[label]
		if !ok {
			return nil, fmt.Errorf("unknown label: %s", label)
		}
		result[i] = code
	}

	return result, nil
}

func (le *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	le.Fit(labels)
	return le.Transform(labels)
}

func (le *LabelEncoder) InverseTransform(encoded []int) ([]string, error) {
	if !le.IsFitted {
		return nil, fmt.Errorf("label encoder must be fitted before inverse transform")
	}

	result := make([]string, len(encoded))
	for i, code := range encoded {
		label, ok := le.IntToClass[code]
		if !ok {
			return nil, fmt.Errorf("unknown encoding: %d", code)
		}
		result[i] = label
	}

	return result, nil
}

// ClassNames returns the labels in code order.
func (le *LabelEncoder) ClassNames() []string {
	names := make([]string, len(le.IntToClass))
	for code, label := range le.IntToClass {
		names[code] = label
	}
	return names
}

func (le *LabelEncoder) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(le)
}

func (le *LabelEncoder) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(le)
}
