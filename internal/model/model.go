// Package model trains and evaluates the binary classifiers used on the
// harmonized speech features: gradient-boosted trees and k-nearest
// neighbours, with stratified cross-validated grid search.
package model

import (
	"errors"
	"fmt"
	"math"
)

// Classifier is a binary classifier over labels 0 and 1.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
	// PredictProba returns P(y=1) per row.
	PredictProba(X [][]float64) ([]float64, error)
	Name() string
}

const (
	KindGBT = "gbt"
	KindKNN = "knn"
)

var (
	// ErrNotFitted is returned when predicting with an untrained model.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrBadInput is returned for empty or ragged training data.
	ErrBadInput = errors.New("invalid training data")
)

func checkXY(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: no rows", ErrBadInput)
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d feature rows but %d labels", ErrBadInput, len(X), len(y))
	}
	nf, err := checkX(X, -1)
	if err != nil {
		return 0, err
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return 0, fmt.Errorf("%w: label %d at row %d, want 0 or 1", ErrBadInput, v, i+1)
		}
	}
	return nf, nil
}

// checkX verifies every row has width features (any width when width < 0)
// and returns that width.
func checkX(X [][]float64, width int) (int, error) {
	for i, row := range X {
		if width < 0 {
			width = len(row)
		}
		if len(row) != width || width == 0 {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrBadInput, i+1, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("%w: row %d holds a non-finite value", ErrBadInput, i+1)
			}
		}
	}
	return width, nil
}

// PredictRow classifies a single feature vector and returns the label and P(y=1).
func PredictRow(c Classifier, row []float64) (int, float64, error) {
	p, err := c.PredictProba([][]float64{row})
	if err != nil {
		return 0, 0, err
	}
	lbl, err := c.Predict([][]float64{row})
	if err != nil {
		return 0, 0, err
	}
	return lbl[0], p[0], nil
}

// Threshold turns probabilities into labels: 1 when p > thr.
func Threshold(proba []float64, thr float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > thr {
			out[i] = 1
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
