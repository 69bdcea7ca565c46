package model

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultFolds is the cross-validation fold count.
const DefaultFolds = 5

// Candidate is one point of a hyperparameter grid.
type Candidate struct {
	Label string
	New   func() Classifier
}

// CandidateScore is the mean cross-validated score of a candidate.
type CandidateScore struct {
	Label string
	Mean  float64
	Folds []float64
}

// SearchResult holds every candidate's score and the winner refit on all rows.
type SearchResult struct {
	Scores    []CandidateScore
	BestIndex int
	Best      Classifier
}

// BestScore returns the winning candidate's score.
func (r *SearchResult) BestScore() CandidateScore { return r.Scores[r.BestIndex] }

// StratifiedKFold splits row indices into k folds, each holding a contiguous
// share of every class in input order. Returns the test indices per fold.
func StratifiedKFold(y []int, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 folds", ErrBadInput)
	}
	byClass := map[int][]int{}
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	for c, rows := range byClass {
		if len(rows) < k {
			return nil, fmt.Errorf("%w: class %d has %d rows, fewer than %d folds", ErrBadInput, c, len(rows), k)
		}
	}
	folds := make([][]int, k)
	for _, c := range []int{0, 1} {
		rows := byClass[c]
		n := len(rows)
		start := 0
		for f := 0; f < k; f++ {
			size := n / k
			if f < n%k {
				size++
			}
			folds[f] = append(folds[f], rows[start:start+size]...)
			start += size
		}
	}
	return folds, nil
}

// GridSearch scores each candidate with stratified k-fold cross-validation,
// in parallel, then refits the best one on all rows. Ties go to the earlier
// candidate.
func GridSearch(ctx context.Context, cands []Candidate, X [][]float64, y []int, folds int, score Scorer) (*SearchResult, error) {
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrBadInput)
	}
	if _, err := checkXY(X, y); err != nil {
		return nil, err
	}
	if folds <= 0 {
		folds = DefaultFolds
	}
	tests, err := StratifiedKFold(y, folds)
	if err != nil {
		return nil, err
	}
	trains := make([][]int, folds)
	for f := range tests {
		inTest := make(map[int]bool, len(tests[f]))
		for _, i := range tests[f] {
			inTest[i] = true
		}
		for i := range y {
			if !inTest[i] {
				trains[f] = append(trains[f], i)
			}
		}
	}

	res := &SearchResult{Scores: make([]CandidateScore, len(cands))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for ci, cand := range cands {
		g.Go(func() error {
			cs := CandidateScore{Label: cand.Label, Folds: make([]float64, folds)}
			for f := range tests {
				if err := ctx.Err(); err != nil {
					return err
				}
				trX, trY := Subset(X, y, trains[f])
				teX, teY := Subset(X, y, tests[f])
				clf := cand.New()
				if err := clf.Fit(trX, trY); err != nil {
					return fmt.Errorf("%s fold %d: %w", cand.Label, f+1, err)
				}
				pred, err := clf.Predict(teX)
				if err != nil {
					return fmt.Errorf("%s fold %d: %w", cand.Label, f+1, err)
				}
				cs.Folds[f] = score(teY, pred)
				cs.Mean += cs.Folds[f] / float64(folds)
			}
			res.Scores[ci] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, s := range res.Scores {
		if s.Mean > res.Scores[res.BestIndex].Mean {
			res.BestIndex = i
		}
	}
	best := cands[res.BestIndex].New()
	if err := best.Fit(X, y); err != nil {
		return nil, fmt.Errorf("refit %s: %w", cands[res.BestIndex].Label, err)
	}
	res.Best = best
	return res, nil
}

// GBTGrid expands the boosting search space around base.
func GBTGrid(base GBTParams) []Candidate {
	var out []Candidate
	for _, n := range []int{10, 20, 30, 50, 100} {
		for _, lr := range []float64{0.05, 0.15, 0.2, 0.25, 0.3} {
			for _, d := range []int{3, 4, 5, 7, 9, 12, 15} {
				for _, nc := range []int{5, 7, 9, 11, 15} {
					for _, ss := range []float64{0.3, 0.5, 0.7, 0.9} {
						p := base
						p.NEstimators, p.LearningRate, p.MaxDepth, p.NIterNoChange, p.Subsample = n, lr, d, nc, ss
						out = append(out, Candidate{Label: NewGBT(p).Name(), New: func() Classifier { return NewGBT(p) }})
					}
				}
			}
		}
	}
	return out
}

// KNNGrid expands the neighbour weighting and distance exponent around base.
func KNNGrid(base KNNParams) []Candidate {
	var out []Candidate
	for _, w := range []string{WeightsUniform, WeightsDistance} {
		for _, pp := range []float64{1, 2} {
			p := base
			p.Weights, p.P = w, pp
			out = append(out, Candidate{Label: NewKNN(p).Name(), New: func() Classifier { return NewKNN(p) }})
		}
	}
	return out
}
