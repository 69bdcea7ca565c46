package model

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNNParams configures a KNN classifier.
type KNNParams struct {
	K       int     `json:"k"`
	Weights string  `json:"weights"`
	P       float64 `json:"p"`
}

// DefaultKNNParams returns two neighbours, inverse-distance weights and a
// Minkowski exponent of 0.5.
func DefaultKNNParams() KNNParams {
	return KNNParams{K: 2, Weights: WeightsDistance, P: 0.5}
}

// KNN is a brute-force k-nearest-neighbours classifier under the Minkowski
// distance with exponent P.
type KNN struct {
	Params KNNParams   `json:"params"`
	X      [][]float64 `json:"x"`
	Y      []int       `json:"y"`
}

// NewKNN returns an unfitted classifier.
func NewKNN(p KNNParams) *KNN { return &KNN{Params: p} }

func (m *KNN) Name() string {
	return fmt.Sprintf("knn(k=%d, weights=%s, p=%g)", m.Params.K, m.Params.Weights, m.Params.P)
}

// Fit stores the training data.
func (m *KNN) Fit(X [][]float64, y []int) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	if m.Params.K <= 0 {
		return fmt.Errorf("%w: k must be positive", ErrBadInput)
	}
	if m.Params.P <= 0 {
		return fmt.Errorf("%w: p must be positive", ErrBadInput)
	}
	switch strings.ToLower(m.Params.Weights) {
	case "", WeightsUniform:
		m.Params.Weights = WeightsUniform
	case WeightsDistance:
		m.Params.Weights = WeightsDistance
	default:
		return fmt.Errorf("%w: unknown weights %q", ErrBadInput, m.Params.Weights)
	}
	m.X = make([][]float64, len(X))
	for i, r := range X {
		m.X[i] = append([]float64(nil), r...)
	}
	m.Y = append([]int(nil), y...)
	return nil
}

// PredictProba returns the weighted share of class-1 neighbours per row.
// With distance weights, exact matches take all the weight.
func (m *KNN) PredictProba(X [][]float64) ([]float64, error) {
	if len(m.X) == 0 {
		return nil, ErrNotFitted
	}
	if _, err := checkX(X, len(m.X[0])); err != nil {
		return nil, err
	}
	k := min(m.Params.K, len(m.X))
	type nb struct {
		d float64
		i int
	}
	out := make([]float64, len(X))
	all := make([]nb, len(m.X))
	for r, x := range X {
		for i, t := range m.X {
			all[i] = nb{d: floats.Distance(x, t, m.Params.P), i: i}
		}
		sort.SliceStable(all, func(a, b int) bool { return all[a].d < all[b].d })
		near := all[:k]

		var w1, wt float64
		exact := false
		if m.Params.Weights == WeightsDistance {
			for _, n := range near {
				if n.d == 0 {
					exact = true
					break
				}
			}
		}
		for _, n := range near {
			w := 1.0
			if m.Params.Weights == WeightsDistance {
				switch {
				case exact && n.d == 0:
					w = 1
				case exact:
					w = 0
				default:
					w = 1 / n.d
				}
			}
			wt += w
			if m.Y[n.i] == 1 {
				w1 += w
			}
		}
		out[r] = w1 / wt
	}
	return out, nil
}

// Predict returns 1 when the class-1 weight exceeds one half.
func (m *KNN) Predict(X [][]float64) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return Threshold(p, 0.5), nil
}
