// Package evaluate scores binary predictions and decides whether a newly
// trained model should replace the registered one.
package evaluate

import (
	"fmt"

	"github.com/willbeason/crosssell/pkg/errs"
)

// Positive is the label of the class being predicted.
const Positive = 1.0

// Metrics are computed for the positive class. A metric whose denominator is
// zero is reported as 0.
type Metrics struct {
	F1        float64 `json:"f1_score"`
	Precision float64 `json:"precision_score"`
	Recall    float64 `json:"recall_score"`
}

// Score compares predicted labels against truth.
func Score(truth, predicted []float64) (Metrics, error) {
	if len(truth) != len(predicted) {
		return Metrics{}, fmt.Errorf("%w: %d labels but %d predictions", errs.ErrData, len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return Metrics{}, fmt.Errorf("%w: no labels to score", errs.ErrData)
	}

	var tp, fp, fn float64
	for i, y := range truth {
		p := predicted[i]
		switch {
		case y == Positive && p == Positive:
			tp++
		case y != Positive && p == Positive:
			fp++
		case y == Positive && p != Positive:
			fn++
		}
	}

	var m Metrics
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if 2*tp+fp+fn > 0 {
		m.F1 = 2 * tp / (2*tp + fp + fn)
	}
	return m, nil
}

// F1 is Score's F1 alone.
func F1(truth, predicted []float64) (float64, error) {
	m, err := Score(truth, predicted)
	return m.F1, err
}

// Decision records the outcome of comparing a trained model with the
// registered best.
type Decision struct {
	Accepted  bool     `json:"is_model_accepted"`
	TrainedF1 float64  `json:"trained_model_f1_score"`
	BestF1    *float64 `json:"best_model_f1_score"`
	// Difference is TrainedF1 minus the best score, or minus 0 if no model
	// is registered.
	Difference float64 `json:"changed_accuracy"`
}

// Decide accepts the trained model iff its F1 strictly exceeds bestF1. A nil
// bestF1 means no model is registered and counts as 0.
func Decide(trainedF1 float64, bestF1 *float64) Decision {
	best := 0.0
	if bestF1 != nil {
		best = *bestF1
	}
	return Decision{
		Accepted:   trainedF1 > best,
		TrainedF1:  trainedF1,
		BestF1:     bestF1,
		Difference: trainedF1 - best,
	}
}
