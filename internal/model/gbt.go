package model

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// GBTParams configures gradient boosting.
type GBTParams struct {
	NEstimators        int     `json:"n_estimators"`
	LearningRate       float64 `json:"learning_rate"`
	MaxDepth           int     `json:"max_depth"`
	MaxFeatures        string  `json:"max_features"`
	Subsample          float64 `json:"subsample"`
	NIterNoChange      int     `json:"n_iter_no_change,omitempty"`
	ValidationFraction float64 `json:"validation_fraction,omitempty"`
	Tol                float64 `json:"tol,omitempty"`
	RandomState        int64   `json:"random_state"`
}

// DefaultGBTParams returns 15 depth-6 trees with learning rate 0.1, sqrt
// feature sampling and 60% row subsampling, seeded with 13.
func DefaultGBTParams() GBTParams {
	return GBTParams{
		NEstimators:        15,
		LearningRate:       0.1,
		MaxDepth:           6,
		MaxFeatures:        "sqrt",
		Subsample:          0.6,
		ValidationFraction: 0.1,
		Tol:                1e-4,
		RandomState:        13,
	}
}

// GBT is a binary gradient-boosted tree classifier minimizing log-loss.
type GBT struct {
	Params      GBTParams `json:"params"`
	NFeatures   int       `json:"n_features"`
	Init        float64   `json:"init"`
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"feature_importances"`
}

// NewGBT returns an unfitted classifier.
func NewGBT(p GBTParams) *GBT { return &GBT{Params: p} }

func (m *GBT) Name() string {
	p := m.Params
	s := fmt.Sprintf("gbt(n_estimators=%d, learning_rate=%g, max_depth=%d, subsample=%g", p.NEstimators, p.LearningRate, p.MaxDepth, p.Subsample)
	if p.NIterNoChange > 0 {
		s += fmt.Sprintf(", n_iter_no_change=%d", p.NIterNoChange)
	}
	return s + ")"
}

func resolveMaxFeatures(spec string, nf int) (int, error) {
	switch strings.ToLower(spec) {
	case "", "all", "none":
		return nf, nil
	case "sqrt":
		return max(1, int(math.Sqrt(float64(nf)))), nil
	case "log2":
		return max(1, int(math.Log2(float64(nf)))), nil
	default:
		return 0, fmt.Errorf("%w: unknown max_features %q", ErrBadInput, spec)
	}
}

// Fit boosts regression trees on the log-loss gradient. When NIterNoChange
// is set, a stratified ValidationFraction of rows is held out and boosting
// stops once its loss fails to improve by Tol for that many rounds.
func (m *GBT) Fit(X [][]float64, y []int) error {
	nf, err := checkXY(X, y)
	if err != nil {
		return err
	}
	p := m.Params
	if p.NEstimators <= 0 || p.LearningRate <= 0 || p.MaxDepth <= 0 {
		return fmt.Errorf("%w: n_estimators, learning_rate and max_depth must be positive", ErrBadInput)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("%w: subsample must be in (0, 1]", ErrBadInput)
	}
	maxFeat, err := resolveMaxFeatures(p.MaxFeatures, nf)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(p.RandomState))

	train := make([]int, len(X))
	for i := range train {
		train[i] = i
	}
	var val []int
	if p.NIterNoChange > 0 {
		frac := p.ValidationFraction
		if frac <= 0 || frac >= 1 {
			frac = 0.1
		}
		tr, va := stratifiedHoldout(y, frac, rng)
		if len(tr) > 0 && len(va) > 0 {
			train, val = tr, va
		}
	}

	pos := 0.0
	for _, i := range train {
		pos += float64(y[i])
	}
	prior := math.Min(math.Max(pos/float64(len(train)), 1e-6), 1-1e-6)
	m.NFeatures = nf
	m.Init = math.Log(prior / (1 - prior))
	m.Trees = nil

	F := make([]float64, len(X))
	for i := range F {
		F[i] = m.Init
	}
	resid := make([]float64, len(X))
	prob := make([]float64, len(X))
	gains := make([]float64, nf)
	total := make([]float64, nf)

	best := math.Inf(1)
	stale := 0
	for it := 0; it < p.NEstimators; it++ {
		sample := train
		if p.Subsample < 1 {
			ns := max(1, int(p.Subsample*float64(len(train))))
			perm := rng.Perm(len(train))[:ns]
			sample = make([]int, ns)
			for k, j := range perm {
				sample[k] = train[j]
			}
		}
		for _, i := range sample {
			prob[i] = sigmoid(F[i])
			resid[i] = float64(y[i]) - prob[i]
		}
		for f := range gains {
			gains[f] = 0
		}
		b := &treeBuilder{
			X:           X,
			target:      resid,
			leafValue:   func(idx []int) float64 { return newtonStep(idx, resid, prob) },
			maxDepth:    p.MaxDepth,
			maxFeatures: maxFeat,
			rng:         rng,
			gains:       gains,
		}
		tree := b.build(sample)
		m.Trees = append(m.Trees, tree)
		for i := range F {
			F[i] += p.LearningRate * tree.Predict(X[i])
		}
		addNormalized(total, gains)

		if len(val) > 0 {
			loss := logLoss(F, y, val)
			if loss < best-p.Tol {
				best, stale = loss, 0
				continue
			}
			stale++
			if stale >= p.NIterNoChange {
				break
			}
		}
	}
	m.Importances = normalize(total)
	return nil
}

// newtonStep is the log-loss leaf value sum(residual) / sum(p(1-p)).
func newtonStep(idx []int, resid, prob []float64) float64 {
	var num, den float64
	for _, i := range idx {
		num += resid[i]
		den += prob[i] * (1 - prob[i])
	}
	if math.Abs(den) < 1e-150 {
		return 0
	}
	return num / den
}

func logLoss(F []float64, y []int, idx []int) float64 {
	var s float64
	for _, i := range idx {
		// log(1+exp(F)) - y*F, computed stably
		f := F[i]
		s += math.Max(f, 0) + math.Log1p(math.Exp(-math.Abs(f))) - float64(y[i])*f
	}
	return s / float64(len(idx))
}

func addNormalized(dst, gains []float64) {
	var s float64
	for _, g := range gains {
		s += g
	}
	if s <= 0 {
		return
	}
	for i, g := range gains {
		dst[i] += g / s
	}
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	var s float64
	for _, x := range v {
		s += x
	}
	if s == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / s
	}
	return out
}

func (m *GBT) decision(x []float64) float64 {
	f := m.Init
	for _, t := range m.Trees {
		f += m.Params.LearningRate * t.Predict(x)
	}
	return f
}

// PredictProba returns P(y=1) per row.
func (m *GBT) PredictProba(X [][]float64) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if _, err := checkX(X, m.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(m.decision(x))
	}
	return out, nil
}

// Predict returns 1 when P(y=1) exceeds one half.
func (m *GBT) Predict(X [][]float64) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return Threshold(p, 0.5), nil
}

// stratifiedHoldout splits row indices into train and validation, drawing
// frac of each class (at least one row when the class has two or more).
func stratifiedHoldout(y []int, frac float64, rng *rand.Rand) (train, val []int) {
	byClass := map[int][]int{}
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	for _, c := range []int{0, 1} {
		rows := byClass[c]
		nv := int(math.Round(frac * float64(len(rows))))
		if nv == 0 && len(rows) >= 2 {
			nv = 1
		}
		perm := rng.Perm(len(rows))
		for k, j := range perm {
			if k < nv {
				val = append(val, rows[j])
			} else {
				train = append(train, rows[j])
			}
		}
	}
	return train, val
}
