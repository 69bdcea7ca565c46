package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "db", "pdspeech.db"),
		Schema: pipeline.Schema{ID: "subject_id", Features: []string{"rap", "ppq"}, Target: "status"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndReadAllKeepsRepeatedSubjects(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.CreateTable(ctx, "little_2009"))
	require.NoError(t, s.CreateTable(ctx, "little_2009"), "create is idempotent")

	require.NoError(t, s.InsertRow(ctx, "little_2009", pipeline.HarmonizedRecord{SubjectID: "1", Features: []float64{0.1, 0.2}, Status: 1}))
	n, err := s.InsertRows(ctx, "little_2009", []pipeline.HarmonizedRecord{
		{SubjectID: "1", Features: []float64{0.3, 0.4}, Status: 1},
		{SubjectID: "2", Features: []float64{0.5, 0.6}, Status: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadAll(ctx, "little_2009")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].SubjectID)
	assert.Equal(t, []float64{0.3, 0.4}, got[1].Features)
	assert.Equal(t, 0, got[2].Status)
}

func TestInvalidNames(t *testing.T) {
	s := openTemp(t)
	assert.ErrorIs(t, s.CreateTable(context.Background(), "Robert'); DROP TABLE x;--"), ErrInvalidName)

	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestOpenRejectsReservedColumns(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "pdspeech.db")
	for _, s := range []pipeline.Schema{
		{ID: "id", Features: []string{"rap"}, Target: "status"},
		{ID: "subject_id", Features: []string{"rap", "seq"}, Target: "status"},
		{ID: "subject_id", Features: []string{"rap"}, Target: "id"},
	} {
		_, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: dsn, Schema: s})
		assert.ErrorIs(t, err, ErrInvalidName, "schema %+v", s)
	}
}

func TestInsertRejectsWrongWidth(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.CreateTable(ctx, "t"))
	_, err := s.InsertRows(ctx, "t", []pipeline.HarmonizedRecord{{SubjectID: "a", Features: []float64{1}, Status: 0}})
	assert.ErrorIs(t, err, pipeline.ErrInvalidValue)
	got, err := s.ReadAll(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadCSV(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	p := filepath.Join(t.TempDir(), "train_data.csv")
	require.NoError(t, os.WriteFile(p, []byte("subject_id,rap,ppq,status\na,0.1,0.2,1\nb,0.3,0.4,0\n"), 0o644))
	n, err := s.LoadCSV(ctx, TableNameFor(p), p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := s.ReadAll(ctx, "train_data")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTableNameFor(t *testing.T) {
	assert.Equal(t, "pd_speech_features", TableNameFor("Sakar_et_al_2018/pd_speech_features.csv"))
	assert.Equal(t, "replicatedacousticfeatures_parkinsondatabase", TableNameFor("ReplicatedAcousticFeatures-ParkinsonDatabase.csv"))
	assert.Equal(t, "t_2013", TableNameFor("2013.csv"))
}
