package evaluation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type ClassificationMetrics struct {
	Accuracy          float64              `json:"accuracy"`
	BalancedAccuracy  float64              `json:"balanced_accuracy"`
	MacroPrecision    float64              `json:"macro_precision"`
	MacroRecall       float64              `json:"macro_recall"`
	MacroF1           float64              `json:"macro_f1"`
	WeightedPrecision float64              `json:"weighted_precision"`
	WeightedRecall    float64              `json:"weighted_recall"`
	WeightedF1        float64              `json:"weighted_f1"`
	PerClass          map[int]ClassMetrics `json:"per_class"`
	ConfusionMatrix   [][]int              `json:"confusion_matrix"`
	Support           map[int]int          `json:"support"`
	NumSamples        int                  `json:"num_samples"`
	NumClasses        int                  `json:"num_classes"`
}

type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// ClassifyMetrics scores encoded class predictions against the truth.
func ClassifyMetrics(yTrue, yPred []int, classes []int) (*ClassificationMetrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("prediction length %d does not match truth length %d", len(yPred), len(yTrue))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("cannot score an empty prediction set")
	}

	confusion := buildConfusionMatrix(yTrue, yPred, classes)

	support := make(map[int]int)
	for _, class := range yTrue {
		support[class]++
	}

	perClass := make(map[int]ClassMetrics)
	var macroPrec, macroRec, macroF1 float64
	var weightedPrec, weightedRec, weightedF1 float64
	totalSupport := 0

	for i, class := range classes {
		tp := confusion[i][i]
		fp, fn := 0, 0
		for j := range classes {
			if j != i {
				fp += confusion[j][i]
				fn += confusion[i][j]
			}
		}

		precision := safeDivide(float64(tp), float64(tp+fp))
		recall := safeDivide(float64(tp), float64(tp+fn))
		f1 := safeDivide(2*precision*recall, precision+recall)

		perClass[class] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1Score:   f1,
			Support:   support[class],
		}

		macroPrec += precision
		macroRec += recall
		macroF1 += f1

		weightedPrec += precision * float64(support[class])
		weightedRec += recall * float64(support[class])
		weightedF1 += f1 * float64(support[class])
		totalSupport += support[class]
	}

	n := float64(len(classes))
	macroPrec /= n
	macroRec /= n
	macroF1 /= n

	if totalSupport > 0 {
		weightedPrec /= float64(totalSupport)
		weightedRec /= float64(totalSupport)
		weightedF1 /= float64(totalSupport)
	}

	correct := 0
	for i, pred := range yPred {
		if pred == yTrue[i] {
			correct++
		}
	}

	balanced := 0.0
	for _, class := range classes {
		balanced += perClass[class].Recall
	}
	balanced /= n

	return &ClassificationMetrics{
		Accuracy:          float64(correct) / float64(len(yTrue)),
		BalancedAccuracy:  balanced,
		MacroPrecision:    macroPrec,
		MacroRecall:       macroRec,
		MacroF1:           macroF1,
		WeightedPrecision: weightedPrec,
		WeightedRecall:    weightedRec,
		WeightedF1:        weightedF1,
		PerClass:          perClass,
		ConfusionMatrix:   confusion,
		Support:           support,
		NumSamples:        len(yTrue),
		NumClasses:        len(classes),
	}, nil
}

func buildConfusionMatrix(yTrue, yPred []int, classes []int) [][]int {
	matrix := make([][]int, len(classes))
	for i := range matrix {
		matrix[i] = make([]int, len(classes))
	}

	classToIdx := make(map[int]int)
	for i, class := range classes {
		classToIdx[class] = i
	}

	for i := range yTrue {
		trueIdx, trueOk := classToIdx[yTrue[i]]
		predIdx, predOk := classToIdx[yPred[i]]
		if trueOk && predOk {
			matrix[trueIdx][predIdx]++
		}
	}

	return matrix
}

// DecodePredictions converts a classification model's decimal output
// back to integer class codes.
func DecodePredictions(preds []decimal.Decimal) []int {
	out := make([]int, len(preds))
	for i, p := range preds {
		out[i] = int(p.IntPart())
	}
	return out
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

func (m *ClassificationMetrics) Format() string {
	result := fmt.Sprintf("Accuracy: %.4f\n", m.Accuracy)
	result += fmt.Sprintf("Balanced Accuracy: %.4f\n", m.BalancedAccuracy)
	result += fmt.Sprintf("Macro Avg - Precision: %.4f, Recall: %.4f, F1: %.4f\n",
		m.MacroPrecision, m.MacroRecall, m.MacroF1)
	result += fmt.Sprintf("Weighted Avg - Precision: %.4f, Recall: %.4f, F1: %.4f\n",
		m.WeightedPrecision, m.WeightedRecall, m.WeightedF1)
	return result
}
