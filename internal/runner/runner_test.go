package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/runlog"
	"github.com/KaramelBytes/pdspeech-cli/internal/sources"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

const testCatalog = `
schema:
  id: subject_id
  features: [f1, f2]
  target: status
sources:
  - name: study_a
    path: a/a.csv
    role: train
    columns:
      - {from: id, to: subject_id}
      - {from: x1, to: f1}
      - {from: x2, to: f2}
  - name: study_b
    path: b/b.csv
    role: test
    columns:
      - {from: name, to: subject_id}
      - {from: f1, to: f1}
      - {from: f2, to: f2}
  - name: study_c
    path: c/c.csv
    role: train
    default_label: 1
    columns:
      - {from: sub, to: subject_id}
      - {from: f1, to: f1}
      - {from: f2, to: f2}
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func setup(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "a.csv"), "id,x1,x2,status\ns1,0.1,0.2,1\ns2,0.2,0.3,0\ns3,0.3,0.4,1\ns4,,0.5,1\n")
	writeFile(t, filepath.Join(dir, "b", "b.csv"), "name,f1,f2,class\nt1,0.5,0.6,1\nt2,0.6,0.7,0\n")
	writeFile(t, filepath.Join(dir, "c", "c.csv"), "sub,f1,f2\nc1,0.9,0.8\n")
	cat, err := sources.Parse([]byte(testCatalog), "yaml")
	require.NoError(t, err)
	return Options{
		DataDir:         dir,
		OutputDir:       "train_and_test_sets",
		ProcessedSuffix: "_processed",
		Catalog:         cat,
		Threshold:       pipeline.DefaultZThreshold,
		Mode:            pipeline.ModeSequential,
	}
}

func TestRunWritesSplitAndManifest(t *testing.T) {
	opt := setup(t)
	res, err := Run(context.Background(), opt)
	require.NoError(t, err)

	out := filepath.Join(opt.DataDir, "train_and_test_sets")
	train, err := os.ReadFile(filepath.Join(out, TrainFile))
	require.NoError(t, err)
	assert.Equal(t, "subject_id,f1,f2,status\ns1,0.1,0.2,1\ns2,0.2,0.3,0\ns3,0.3,0.4,1\nc1,0.9,0.8,1\n", string(train))
	test, err := os.ReadFile(filepath.Join(out, TestFile))
	require.NoError(t, err)
	assert.Equal(t, "subject_id,f1,f2,status\nt1,0.5,0.6,1\nt2,0.6,0.7,0\n", string(test))

	_, err = os.Stat(filepath.Join(opt.DataDir, "a", "a_processed.csv"))
	require.NoError(t, err)
	require.Len(t, res.Prepared, 3)

	m, err := runlog.Load(out)
	require.NoError(t, err)
	assert.Empty(t, m.Error)
	require.Len(t, m.Sources, 3)
	assert.Equal(t, 4, m.Sources[0].RowsPrepared)
	assert.Equal(t, 3, m.Sources[0].RowsCleaned)
	require.Len(t, m.Outputs, 2)
	assert.Equal(t, 4, m.Outputs[0].Rows)
	assert.Equal(t, 2, m.Outputs[1].Rows)
}

func TestRunBalancesTrainAndWritesParquet(t *testing.T) {
	opt := setup(t)
	opt.BalanceTrain = true
	opt.Parquet = true
	res, err := Run(context.Background(), opt)
	require.NoError(t, err)

	require.Equal(t, 2, res.Split.Train.Len())
	assert.Equal(t, "s2", res.Split.Train.Rows[0][0])
	assert.Equal(t, "1", res.Split.Train.Rows[1][3])
	require.Len(t, res.Outputs, 4)
	for _, o := range res.Outputs {
		_, err := os.Stat(o.Path)
		assert.NoError(t, err, o.Path)
	}
}

func TestRunOutliersPerSource(t *testing.T) {
	opt := setup(t)
	for i := range opt.Catalog.Sources {
		if opt.Catalog.Sources[i].Name == "study_c" {
			opt.Catalog.Sources[i].Outliers = true
		}
	}
	res, err := Run(context.Background(), opt)
	require.NoError(t, err)
	rep := res.Reports["study_c"]
	require.NotNil(t, rep)
	// a single row has zero spread in every column
	assert.Equal(t, []string{"f1", "f2"}, rep.Degenerate)
	assert.Equal(t, 0, rep.Removed())
}

func TestRunFailureRecordsManifest(t *testing.T) {
	opt := setup(t)
	require.NoError(t, os.Remove(filepath.Join(opt.DataDir, "c", "c.csv")))

	_, err := Run(context.Background(), opt)
	require.Error(t, err)
	var se *pipeline.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "study_c", se.Source)
	assert.ErrorIs(t, err, pipeline.ErrIO)

	m, lerr := runlog.Load(filepath.Join(opt.DataDir, "train_and_test_sets"))
	require.NoError(t, lerr)
	assert.NotEmpty(t, m.Error)
	_, serr := os.Stat(filepath.Join(opt.DataDir, "train_and_test_sets", TrainFile))
	assert.True(t, os.IsNotExist(serr))
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	opt := setup(t)
	lock, err := utils.AcquireRunLock(opt.DataDir)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Run(context.Background(), opt)
	assert.ErrorIs(t, err, utils.ErrLocked)
}

func TestPrepareThenMergeProcessed(t *testing.T) {
	opt := setup(t)
	opt.Sources = []string{"study_a", "study_b"}
	prepared, err := Prepare(context.Background(), opt)
	require.NoError(t, err)
	require.Len(t, prepared, 2)

	res, err := MergeProcessed(context.Background(), opt)
	require.NoError(t, err)
	// the row with a missing feature is dropped at merge time
	assert.Equal(t, 3, res.Split.Train.Len())
	assert.Equal(t, 1, res.Split.Dropped[pipeline.RoleTrain])
	assert.Equal(t, 2, res.Split.Test.Len())
}

func TestPrepareHonoursCancellation(t *testing.T) {
	opt := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Prepare(ctx, opt)
	assert.ErrorIs(t, err, context.Canceled)
}
