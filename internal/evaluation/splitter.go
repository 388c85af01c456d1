package evaluation

import (
	"fmt"
	"math/rand"

	"mlfit/internal/dataset"
)

// TrainTestSplitter cuts a dataset into train and test partitions.
type TrainTestSplitter struct {
	testSize   float64
	randomSeed int64
	shuffle    bool
}

func NewTrainTestSplitter(testSize float64, randomSeed int64, shuffle bool) *TrainTestSplitter {
	return &TrainTestSplitter{
		testSize:   testSize,
		randomSeed: randomSeed,
		shuffle:    shuffle,
	}
}

func (tts *TrainTestSplitter) Split(ds *dataset.Dataset) (*dataset.Dataset, *dataset.Dataset, error) {
	if tts.testSize <= 0 || tts.testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be between 0 and 1, got %g", tts.testSize)
	}

	n := ds.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if tts.shuffle {
		rng := rand.New(rand.NewSource(tts.randomSeed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testCount := int(float64(n) * tts.testSize)
	if testCount == 0 || testCount == n {
		return nil, nil, fmt.Errorf("test size %g leaves an empty partition for %d samples", tts.testSize, n)
	}

	train, err := ds.Subset(indices[testCount:])
	if err != nil {
		return nil, nil, err
	}
	test, err := ds.Subset(indices[:testCount])
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
