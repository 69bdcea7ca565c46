package model

import "fmt"

// ClassMetrics holds the per-class figures of a classification report.
type ClassMetrics struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Averages holds macro or support-weighted means.
type Averages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Report is a binary classification report.
type Report struct {
	Classes  []ClassMetrics `json:"classes"`
	Accuracy float64        `json:"accuracy"`
	Macro    Averages       `json:"macro_avg"`
	Weighted Averages       `json:"weighted_avg"`
	Total    int            `json:"total"`
	// Confusion[i][j] counts rows of true class i predicted as j.
	Confusion [2][2]int `json:"confusion"`
}

// ClassLabels names the two classes for display.
var ClassLabels = map[int]string{0: "healthy", 1: "parkinson's"}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Classify builds the report for labels 0 and 1. Undefined ratios are 0.
func Classify(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%w: %d labels but %d predictions", ErrBadInput, len(yTrue), len(yPred))
	}
	r := &Report{Total: len(yTrue)}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t > 1 || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: labels must be 0 or 1", ErrBadInput)
		}
		r.Confusion[t][p]++
	}
	correct := r.Confusion[0][0] + r.Confusion[1][1]
	r.Accuracy = ratio(correct, r.Total)
	for c := 0; c <= 1; c++ {
		tp := r.Confusion[c][c]
		predicted := r.Confusion[0][c] + r.Confusion[1][c]
		support := r.Confusion[c][0] + r.Confusion[c][1]
		m := ClassMetrics{Label: c, Precision: ratio(tp, predicted), Recall: ratio(tp, support), Support: support}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)

		r.Macro.Precision += m.Precision / 2
		r.Macro.Recall += m.Recall / 2
		r.Macro.F1 += m.F1 / 2
		w := ratio(support, r.Total)
		r.Weighted.Precision += w * m.Precision
		r.Weighted.Recall += w * m.Recall
		r.Weighted.F1 += w * m.F1
	}
	return r, nil
}

// Scorer rates predictions; higher is better.
type Scorer func(yTrue, yPred []int) float64

// Recall is the recall of class 1.
func Recall(yTrue, yPred []int) float64 {
	r, err := Classify(yTrue, yPred)
	if err != nil {
		return 0
	}
	return r.Classes[1].Recall
}

// WeightedRecall is the support-weighted mean of per-class recall.
func WeightedRecall(yTrue, yPred []int) float64 {
	r, err := Classify(yTrue, yPred)
	if err != nil {
		return 0
	}
	return r.Weighted.Recall
}

// Accuracy is the share of correct predictions.
func Accuracy(yTrue, yPred []int) float64 {
	r, err := Classify(yTrue, yPred)
	if err != nil {
		return 0
	}
	return r.Accuracy
}

// ScorerByName resolves recall, weighted_recall or accuracy.
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "recall":
		return Recall, nil
	case "weighted_recall":
		return WeightedRecall, nil
	case "accuracy":
		return Accuracy, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q (want recall|weighted_recall|accuracy)", name)
	}
}

// Evaluate predicts X and reports against y. A non-nil threshold derives
// labels from PredictProba instead of Predict.
func Evaluate(c Classifier, X [][]float64, y []int, threshold *float64) ([]int, *Report, error) {
	var (
		pred []int
		err  error
	)
	if threshold != nil {
		var proba []float64
		proba, err = c.PredictProba(X)
		if err == nil {
			pred = Threshold(proba, *threshold)
		}
	} else {
		pred, err = c.Predict(X)
	}
	if err != nil {
		return nil, nil, err
	}
	rep, err := Classify(y, pred)
	if err != nil {
		return nil, nil, err
	}
	return pred, rep, nil
}
