package learners

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
)

// ForestClassifier bags Gini trees over bootstrap samples and random
// feature subsets (sqrt of the feature count), trained on a small
// worker pool.
type ForestClassifier struct {
	learn.BaseLearner
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
	MaxWorkers      int
}

func NewForestClassifier(p learn.Params) (learn.Learner, error) {
	nTrees := p.Int("n_trees", 100)
	if nTrees <= 0 {
		nTrees = 100
	}

	return &ForestClassifier{
		BaseLearner:     learn.NewBaseLearner("ForestClassifier", p),
		NTrees:          nTrees,
		MaxDepth:        treeDepth(p),
		MinSamplesSplit: treeMinSplit(p),
		Seed:            int64(p.Int("seed", 0)),
		MaxWorkers:      4,
	}, nil
}

func (l *ForestClassifier) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetDiscrete {
		return nil, fmt.Errorf("ForestClassifier requires a discrete target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	targets := make([]float64, prepared.Len())
	for i, class := range prepared.Classes {
		targets[i] = float64(class)
	}

	trees, features := growForest(prepared.X, targets, forestSpec{
		nTrees:     l.NTrees,
		maxDepth:   l.MaxDepth,
		minSplit:   l.MinSamplesSplit,
		seed:       l.Seed,
		maxWorkers: l.MaxWorkers,
		impurity:   giniImpurity,
		leaf:       classLeaf,
	})

	return &ForestClassifierModel{
		BaseModel:      learn.BaseModel{ModelName: l.Name(), Chain: chain},
		Trees:          trees,
		FeatureIndices: features,
		ClassSet:       extractClasses(prepared.Classes),
	}, nil
}

type forestSpec struct {
	nTrees     int
	maxDepth   int
	minSplit   int
	seed       int64
	maxWorkers int
	impurity   func([]float64) float64
	leaf       func([]float64) *TreeNode
}

// growForest trains the trees concurrently. Each tree gets its own
// deterministic rng seeded from the forest seed and the tree index,
// so results do not depend on scheduling.
func growForest(X [][]decimal.Decimal, targets []float64, spec forestSpec) ([]*TreeNode, [][]int) {
	n := len(X)
	nFeatures := len(X[0])
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	trees := make([]*TreeNode, spec.nTrees)
	features := make([][]int, spec.nTrees)

	workers := spec.maxWorkers
	if workers > spec.nTrees {
		workers = spec.nTrees
	}

	jobs := make(chan int, spec.nTrees)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rng := rand.New(rand.NewSource(spec.seed + int64(i)))

				XBoot := make([][]decimal.Decimal, n)
				yBoot := make([]float64, n)
				for j := 0; j < n; j++ {
					idx := rng.Intn(n)
					XBoot[j] = X[idx]
					yBoot[j] = targets[idx]
				}

				subset := sampleFeatures(nFeatures, maxFeatures, rng)
				XSel := make([][]decimal.Decimal, n)
				for j := range XBoot {
					XSel[j] = make([]decimal.Decimal, len(subset))
					for k, feat := range subset {
						XSel[j][k] = XBoot[j][feat]
					}
				}

				grower := &treeGrower{
					maxDepth: spec.maxDepth,
					minSplit: spec.minSplit,
					impurity: spec.impurity,
					leaf:     spec.leaf,
				}
				trees[i] = grower.grow(XSel, yBoot, 0)
				features[i] = subset
			}
		}()
	}

	for i := 0; i < spec.nTrees; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return trees, features
}

func sampleFeatures(nFeatures, maxFeatures int, rng *rand.Rand) []int {
	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}
	for i := 0; i < maxFeatures && i < nFeatures; i++ {
		j := i + rng.Intn(nFeatures-i)
		features[i], features[j] = features[j], features[i]
	}
	return features[:maxFeatures]
}

type ForestClassifierModel struct {
	learn.BaseModel
	Trees          []*TreeNode
	FeatureIndices [][]int
	ClassSet       []int
}

func (m *ForestClassifierModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, sample := range X {
		votes := m.vote(sample)

		best := m.ClassSet[0]
		maxVotes := -1
		for _, class := range m.ClassSet {
			if votes[class] > maxVotes {
				maxVotes = votes[class]
				best = class
			}
		}
		predictions[i] = decimal.NewFromInt(int64(best))
	}
	return predictions, nil
}

func (m *ForestClassifierModel) PredictProba(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	total := decimal.NewFromInt(int64(len(m.Trees)))
	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		votes := m.vote(sample)

		proba[i] = make([]decimal.Decimal, len(m.ClassSet))
		for j, class := range m.ClassSet {
			proba[i][j] = decimal.NewFromInt(int64(votes[class])).Div(total)
		}
	}
	return proba, nil
}

func (m *ForestClassifierModel) Classes() []int {
	return m.ClassSet
}

func (m *ForestClassifierModel) vote(sample []decimal.Decimal) map[int]int {
	votes := make(map[int]int)
	for t, tree := range m.Trees {
		sub := make([]decimal.Decimal, len(m.FeatureIndices[t]))
		for k, feat := range m.FeatureIndices[t] {
			sub[k] = sample[feat]
		}
		votes[int(descend(tree, sub).Value.IntPart())]++
	}
	return votes
}
