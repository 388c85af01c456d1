package learners

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	DistanceEuclidean = "euclidean"
	DistanceManhattan = "manhattan"
)

func normalizeDistance(name string) string {
	if name != DistanceEuclidean && name != DistanceManhattan {
		return DistanceEuclidean
	}
	return name
}

func pairDistance(a, b []decimal.Decimal, metric string) float64 {
	switch metric {
	case DistanceManhattan:
		sum := 0.0
		for i := range a {
			diff, _ := a[i].Sub(b[i]).Abs().Float64()
			sum += diff
		}
		return sum
	default:
		sum := 0.0
		for i := range a {
			diff, _ := a[i].Sub(b[i]).Float64()
			sum += diff * diff
		}
		return math.Sqrt(sum)
	}
}

// nearestIndices returns the indices of the k training samples closest
// to sample, nearest first.
func nearestIndices(XTrain [][]decimal.Decimal, sample []decimal.Decimal, k int, metric string) []int {
	type neighbor struct {
		index    int
		distance float64
	}

	neighbors := make([]neighbor, len(XTrain))
	for i, trainSample := range XTrain {
		neighbors[i] = neighbor{index: i, distance: pairDistance(sample, trainSample, metric)}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	indices := make([]int, k)
	for i := 0; i < k; i++ {
		indices[i] = neighbors[i].index
	}
	return indices
}
