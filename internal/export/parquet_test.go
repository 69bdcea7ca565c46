package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
)

func TestWriteParquet(t *testing.T) {
	schema := pipeline.DefaultSchema()
	recs := []pipeline.HarmonizedRecord{
		{SubjectID: "phon_R01_S01_1", Features: []float64{0.00784, 0.00007, 0.0037, 0.00554, 0.01109, 0.01609, 0.02971}, Status: 1},
		{SubjectID: "phon_R01_S07_1", Features: []float64{0.00289, 0.00002, 0.00166, 0.00168, 0.00468, 0.0051, 0.01017}, Status: 0},
	}
	path := filepath.Join(t.TempDir(), "train_data.parquet")
	require.NoError(t, WriteParquet(path, schema, recs))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(b), 8)
	assert.Equal(t, "PAR1", string(b[:4]))
	assert.Equal(t, "PAR1", string(b[len(b)-4:]))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	assert.Equal(t, int64(2), pr.GetNumRows())
}

func TestBuildSchemaNamesEveryColumn(t *testing.T) {
	s := buildSchema(pipeline.DefaultSchema())
	for _, c := range pipeline.DefaultSchema().Columns() {
		assert.Contains(t, s, "name="+c+",")
	}
}
