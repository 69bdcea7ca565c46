package model

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

func separable(n int) ([][]float64, []int) {
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i), float64((i * 7) % 13)}
		if i >= n/2 {
			y[i] = 1
		}
	}
	return X, y
}

func TestKNNUniformAndDistance(t *testing.T) {
	X := [][]float64{{0}, {1}, {10}, {11}}
	y := []int{0, 0, 1, 1}

	m := NewKNN(KNNParams{K: 2, Weights: WeightsUniform, P: 2})
	require.NoError(t, m.Fit(X, y))
	pred, err := m.Predict([][]float64{{0.4}, {10.6}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, pred)

	m = NewKNN(KNNParams{K: 3, Weights: WeightsUniform, P: 1})
	require.NoError(t, m.Fit(X, y))
	p, err := m.PredictProba([][]float64{{5}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, p[0], 1e-12)

	m = NewKNN(DefaultKNNParams())
	require.NoError(t, m.Fit(X, y))
	p, err = m.PredictProba([][]float64{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p[0], "an exact match takes all the weight")
	assert.Equal(t, 0.0, p[1])
}

func TestKNNErrors(t *testing.T) {
	_, err := NewKNN(DefaultKNNParams()).Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)

	m := NewKNN(KNNParams{K: 1, Weights: "gaussian", P: 2})
	assert.ErrorIs(t, m.Fit([][]float64{{1}}, []int{0}), ErrBadInput)

	m = NewKNN(DefaultKNNParams())
	require.NoError(t, m.Fit([][]float64{{1, 2}}, []int{0}))
	_, err = m.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestGBTSeparatesAndIsDeterministic(t *testing.T) {
	X, y := separable(40)
	p := DefaultGBTParams()
	p.MaxFeatures = "all"
	p.Subsample = 1
	m := NewGBT(p)
	require.NoError(t, m.Fit(X, y))
	pred, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, pred)
	assert.Len(t, m.Trees, p.NEstimators)
	require.Len(t, m.Importances, 2)
	assert.InDelta(t, 1.0, m.Importances[0]+m.Importances[1], 1e-9)
	assert.Greater(t, m.Importances[0], m.Importances[1])

	a := NewGBT(DefaultGBTParams())
	b := NewGBT(DefaultGBTParams())
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	for _, v := range pa {
		assert.True(t, v > 0 && v < 1)
	}
}

func TestGBTEarlyStopping(t *testing.T) {
	X, y := separable(60)
	p := DefaultGBTParams()
	p.NEstimators = 200
	p.NIterNoChange = 3
	p.Tol = 10 // no round can improve by this much
	m := NewGBT(p)
	require.NoError(t, m.Fit(X, y))
	// the first round sets the baseline, three stale rounds follow
	assert.Len(t, m.Trees, 4)
}

func TestGBTRejectsBadParams(t *testing.T) {
	X, y := separable(10)
	p := DefaultGBTParams()
	p.Subsample = 0
	assert.ErrorIs(t, NewGBT(p).Fit(X, y), ErrBadInput)
	p = DefaultGBTParams()
	p.MaxFeatures = "half"
	assert.ErrorIs(t, NewGBT(p).Fit(X, y), ErrBadInput)
	assert.ErrorIs(t, NewGBT(DefaultGBTParams()).Fit(X, y[:3]), ErrBadInput)
}

func TestTreeDepthBounded(t *testing.T) {
	X, y := separable(50)
	p := DefaultGBTParams()
	p.MaxDepth = 2
	m := NewGBT(p)
	require.NoError(t, m.Fit(X, y))
	for _, tr := range m.Trees {
		assert.LessOrEqual(t, tr.Depth(), 2)
	}
}

func TestClassify(t *testing.T) {
	r, err := Classify([]int{1, 1, 1, 0, 0}, []int{1, 1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, r.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, r.Classes[1].Precision, 1e-12)
	assert.InDelta(t, 2.0/3, r.Classes[1].Recall, 1e-12)
	assert.InDelta(t, 0.5, r.Classes[0].Recall, 1e-12)
	assert.Equal(t, 3, r.Classes[1].Support)
	assert.InDelta(t, 0.6, r.Weighted.Recall, 1e-12)
	assert.InDelta(t, (0.5+2.0/3)/2, r.Macro.Recall, 1e-12)
	assert.Equal(t, [2][2]int{{1, 1}, {1, 2}}, r.Confusion)

	assert.InDelta(t, 2.0/3, Recall([]int{1, 1, 1, 0, 0}, []int{1, 1, 0, 0, 1}), 1e-12)
	_, err = ScorerByName("f2")
	assert.Error(t, err)
}

func TestEvaluateWithThreshold(t *testing.T) {
	X := [][]float64{{0}, {1}, {10}, {11}}
	y := []int{0, 0, 1, 1}
	m := NewKNN(KNNParams{K: 4, Weights: WeightsUniform, P: 2})
	require.NoError(t, m.Fit(X, y))

	pred, _, err := Evaluate(m, X, y, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, pred, "p=0.5 is not above one half")

	thr := 0.4
	pred, rep, err := Evaluate(m, X, y, &thr)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1}, pred)
	assert.InDelta(t, 0.5, rep.Accuracy, 1e-12)
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 15)
	for i := 10; i < 15; i++ {
		y[i] = 1
	}
	folds, err := StratifiedKFold(y, 5)
	require.NoError(t, err)
	require.Len(t, folds, 5)
	seen := map[int]bool{}
	for _, f := range folds {
		ones := 0
		for _, i := range f {
			assert.False(t, seen[i])
			seen[i] = true
			ones += y[i]
		}
		assert.Len(t, f, 3)
		assert.Equal(t, 1, ones)
	}
	assert.Len(t, seen, 15)

	_, err = StratifiedKFold([]int{0, 1, 1}, 2)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestGridSearchKNN(t *testing.T) {
	X, y := separable(40)
	res, err := GridSearch(context.Background(), KNNGrid(DefaultKNNParams()), X, y, 5, Recall)
	require.NoError(t, err)
	require.Len(t, res.Scores, 4)
	require.NotNil(t, res.Best)
	best := res.BestScore()
	for _, s := range res.Scores {
		assert.LessOrEqual(t, s.Mean, best.Mean)
		assert.Len(t, s.Folds, 5)
	}
	_, err = res.Best.Predict(X)
	require.NoError(t, err)
}

func TestGrids(t *testing.T) {
	assert.Len(t, GBTGrid(DefaultGBTParams()), 5*5*7*5*4)
	g := KNNGrid(DefaultKNNParams())
	require.Len(t, g, 4)
	k := g[3].New().(*KNN)
	assert.Equal(t, WeightsDistance, k.Params.Weights)
	assert.Equal(t, 2.0, k.Params.P)
	assert.Equal(t, 2, k.Params.K)
}

func TestSaveLoad(t *testing.T) {
	X, y := separable(30)
	dir := t.TempDir()
	features := []string{"rap", "ppq"}

	g := NewGBT(DefaultGBTParams())
	require.NoError(t, g.Fit(X, y))
	path := filepath.Join(dir, "gbt.json")
	require.NoError(t, Save(path, g, features))
	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, KindGBT, b.Kind)
	assert.Equal(t, features, b.Features)
	want, _ := g.PredictProba(X)
	got, err := b.Classifier.PredictProba(X)
	require.NoError(t, err)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}

	k := NewKNN(DefaultKNNParams())
	require.NoError(t, k.Fit(X, y))
	path = filepath.Join(dir, "knn.json")
	require.NoError(t, Save(path, k, features))
	b, err = Load(path)
	require.NoError(t, err)
	lbl, p, err := PredictRow(b.Classifier, X[0])
	require.NoError(t, err)
	assert.Equal(t, 0, lbl)
	assert.False(t, math.IsNaN(p))
}

func TestDatasetFromTable(t *testing.T) {
	s := pipeline.Schema{ID: "subject_id", Features: []string{"rap", "ppq"}, Target: "status"}
	tb := table.New("x", s.Columns(), [][]string{{"a", "0.1", "0.2", "1"}, {"b", "0.3", "0.4", "0"}})
	ds, err := DatasetFromTable(tb, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.IDs)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, ds.X)
	assert.Equal(t, []int{1, 0}, ds.Y)

	X, err := MatrixFromTable(tb, []string{"ppq"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.2}, {0.4}}, X)
	_, err = MatrixFromTable(tb, []string{"apq_3"})
	assert.ErrorIs(t, err, pipeline.ErrSchemaMismatch)
}
