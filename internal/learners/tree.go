package learners

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/learn"
)

// TreeNode is one split (or leaf) of a fitted decision tree. Leaves
// carry the predicted value: an encoded class for classification
// trees, a mean target for regression trees. Classification leaves
// also keep the class counts so probabilities survive persistence.
type TreeNode struct {
	Leaf      bool
	Value     decimal.Decimal
	Counts    map[int]int
	Feature   int
	Threshold decimal.Decimal
	Left      *TreeNode
	Right     *TreeNode
	Samples   int
}

// TreeClassifier grows a CART tree on Gini impurity.
type TreeClassifier struct {
	learn.BaseLearner
	MaxDepth        int
	MinSamplesSplit int
}

func NewTreeClassifier(p learn.Params) (learn.Learner, error) {
	return &TreeClassifier{
		BaseLearner:     learn.NewBaseLearner("TreeClassifier", p),
		MaxDepth:        treeDepth(p),
		MinSamplesSplit: treeMinSplit(p),
	}, nil
}

func (l *TreeClassifier) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetDiscrete {
		return nil, fmt.Errorf("TreeClassifier requires a discrete target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	grower := &treeGrower{
		maxDepth: l.MaxDepth,
		minSplit: l.MinSamplesSplit,
		impurity: giniImpurity,
		leaf:     classLeaf,
	}
	targets := make([]float64, prepared.Len())
	for i, class := range prepared.Classes {
		targets[i] = float64(class)
	}

	return &TreeClassifierModel{
		BaseModel: learn.BaseModel{ModelName: l.Name(), Chain: chain},
		Root:      grower.grow(prepared.X, targets, 0),
		ClassSet:  extractClasses(prepared.Classes),
	}, nil
}

// TreeRegressor grows the same tree on variance reduction, with mean
// targets at the leaves.
type TreeRegressor struct {
	learn.BaseLearner
	MaxDepth        int
	MinSamplesSplit int
}

func NewTreeRegressor(p learn.Params) (learn.Learner, error) {
	return &TreeRegressor{
		BaseLearner:     learn.NewBaseLearner("TreeRegressor", p),
		MaxDepth:        treeDepth(p),
		MinSamplesSplit: treeMinSplit(p),
	}, nil
}

func (l *TreeRegressor) Fit(ds *dataset.Dataset) (learn.Model, error) {
	if ds.TargetKind() != dataset.TargetContinuous {
		return nil, fmt.Errorf("TreeRegressor requires a continuous target, got %s", ds.TargetKind())
	}
	if err := ds.ValidateForTraining(); err != nil {
		return nil, err
	}

	prepared, chain, err := l.Preprocess(ds)
	if err != nil {
		return nil, err
	}

	grower := &treeGrower{
		maxDepth: l.MaxDepth,
		minSplit: l.MinSamplesSplit,
		impurity: varianceImpurity,
		leaf:     meanLeaf,
	}
	targets := make([]float64, prepared.Len())
	for i, value := range prepared.Values {
		targets[i], _ = value.Float64()
	}

	return &TreeRegressorModel{
		BaseModel: learn.BaseModel{ModelName: l.Name(), Chain: chain},
		Root:      grower.grow(prepared.X, targets, 0),
	}, nil
}

func treeDepth(p learn.Params) int {
	depth := p.Int("max_depth", 10)
	if depth <= 0 {
		depth = 10
	}
	return depth
}

func treeMinSplit(p learn.Params) int {
	minSplit := p.Int("min_samples_split", 2)
	if minSplit < 2 {
		minSplit = 2
	}
	return minSplit
}

// treeGrower holds the pieces that differ between the two target
// kinds: the impurity measure and how a leaf summarizes its targets.
type treeGrower struct {
	maxDepth int
	minSplit int
	impurity func(targets []float64) float64
	leaf     func(targets []float64) *TreeNode
}

func (g *treeGrower) grow(X [][]decimal.Decimal, targets []float64, depth int) *TreeNode {
	if depth >= g.maxDepth || len(targets) < g.minSplit || g.impurity(targets) == 0 {
		return g.makeLeaf(targets)
	}

	feature, threshold, decrease := g.bestSplit(X, targets)
	if decrease <= 0 {
		return g.makeLeaf(targets)
	}

	leftIdx, rightIdx := splitIndices(X, feature, threshold)
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return g.makeLeaf(targets)
	}

	node := &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Samples:   len(targets),
	}
	node.Left = g.grow(selectRows(X, leftIdx), selectTargets(targets, leftIdx), depth+1)
	node.Right = g.grow(selectRows(X, rightIdx), selectTargets(targets, rightIdx), depth+1)
	return node
}

func (g *treeGrower) makeLeaf(targets []float64) *TreeNode {
	node := g.leaf(targets)
	node.Samples = len(targets)
	return node
}

func (g *treeGrower) bestSplit(X [][]decimal.Decimal, targets []float64) (int, decimal.Decimal, float64) {
	bestFeature := 0
	bestThreshold := decimal.Zero
	bestDecrease := 0.0

	parent := g.impurity(targets)
	n := float64(len(targets))

	for feature := range X[0] {
		for _, threshold := range uniqueValues(X, feature) {
			leftIdx, rightIdx := splitIndices(X, feature, threshold)
			if len(leftIdx) == 0 || len(rightIdx) == 0 {
				continue
			}

			left := g.impurity(selectTargets(targets, leftIdx))
			right := g.impurity(selectTargets(targets, rightIdx))
			weighted := (float64(len(leftIdx))/n)*left + (float64(len(rightIdx))/n)*right

			if decrease := parent - weighted; decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestDecrease
}

func giniImpurity(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}

	counts := make(map[float64]int)
	for _, t := range targets {
		counts[t]++
	}

	impurity := 1.0
	n := float64(len(targets))
	for _, count := range counts {
		p := float64(count) / n
		impurity -= p * p
	}
	return impurity
}

func varianceImpurity(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}

	mean := 0.0
	for _, t := range targets {
		mean += t
	}
	mean /= float64(len(targets))

	variance := 0.0
	for _, t := range targets {
		diff := t - mean
		variance += diff * diff
	}
	return variance / float64(len(targets))
}

func classLeaf(targets []float64) *TreeNode {
	counts := make(map[int]int)
	for _, t := range targets {
		counts[int(t)]++
	}

	best, maxCount := 0, -1
	for class, count := range counts {
		if count > maxCount || (count == maxCount && class < best) {
			best, maxCount = class, count
		}
	}

	return &TreeNode{
		Leaf:   true,
		Value:  decimal.NewFromInt(int64(best)),
		Counts: counts,
	}
}

func meanLeaf(targets []float64) *TreeNode {
	mean := 0.0
	for _, t := range targets {
		mean += t
	}
	if len(targets) > 0 {
		mean /= float64(len(targets))
	}
	return &TreeNode{Leaf: true, Value: decimal.NewFromFloat(mean)}
}

func splitIndices(X [][]decimal.Decimal, feature int, threshold decimal.Decimal) ([]int, []int) {
	var left, right []int
	for i, sample := range X {
		if sample[feature].LessThan(threshold) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func selectRows(X [][]decimal.Decimal, indices []int) [][]decimal.Decimal {
	rows := make([][]decimal.Decimal, len(indices))
	for i, idx := range indices {
		rows[i] = X[idx]
	}
	return rows
}

func selectTargets(targets []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = targets[idx]
	}
	return out
}

func uniqueValues(X [][]decimal.Decimal, feature int) []decimal.Decimal {
	seen := make(map[string]bool)
	var values []decimal.Decimal
	for _, sample := range X {
		key := sample[feature].String()
		if !seen[key] {
			seen[key] = true
			values = append(values, sample[feature])
		}
	}
	return values
}

func descend(node *TreeNode, sample []decimal.Decimal) *TreeNode {
	for !node.Leaf {
		if sample[node.Feature].LessThan(node.Threshold) {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

type TreeClassifierModel struct {
	learn.BaseModel
	Root     *TreeNode
	ClassSet []int
}

func (m *TreeClassifierModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, sample := range X {
		predictions[i] = descend(m.Root, sample).Value
	}
	return predictions, nil
}

func (m *TreeClassifierModel) PredictProba(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		leaf := descend(m.Root, sample)
		total := decimal.NewFromInt(int64(leaf.Samples))

		proba[i] = make([]decimal.Decimal, len(m.ClassSet))
		for j, class := range m.ClassSet {
			if leaf.Samples > 0 {
				proba[i][j] = decimal.NewFromInt(int64(leaf.Counts[class])).Div(total)
			} else {
				proba[i][j] = decimal.Zero
			}
		}
	}
	return proba, nil
}

func (m *TreeClassifierModel) Classes() []int {
	return m.ClassSet
}

type TreeRegressorModel struct {
	learn.BaseModel
	Root *TreeNode
}

func (m *TreeRegressorModel) Predict(X [][]decimal.Decimal) ([]decimal.Decimal, error) {
	X, err := m.PrepareInput(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]decimal.Decimal, len(X))
	for i, sample := range X {
		predictions[i] = descend(m.Root, sample).Value
	}
	return predictions, nil
}
