// Package runlog records what a pipeline run read, wrote and dropped.
package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

const manifestFileName = "run.json"

// Manifest is the run.json persisted next to the train/test outputs.
type Manifest struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Settings   Settings       `json:"settings"`
	Sources    []SourceRecord `json:"sources"`
	Outputs    []OutputRecord `json:"outputs"`
	Error      string         `json:"error,omitempty"`

	// Not serialized: directory holding run.json
	dir string `json:"-"`
}

// Settings captures the knobs that shaped the outputs.
type Settings struct {
	DataDir         string  `json:"data_dir"`
	SourcesFile     string  `json:"sources_file,omitempty"`
	ZScoreThreshold float64 `json:"z_score_threshold"`
	OutlierMode     string  `json:"outlier_mode"`
	RandomState     int64   `json:"random_state"`
	BalanceTrain    bool    `json:"balance_train"`
}

// SourceRecord tracks one source through the stages.
type SourceRecord struct {
	Name           string         `json:"name"`
	Role           string         `json:"role"`
	Input          string         `json:"input"`
	Processed      string         `json:"processed"`
	RowsRaw        int            `json:"rows_raw"`
	RowsPrepared   int            `json:"rows_prepared"`
	RowsCleaned    int            `json:"rows_cleaned"`
	Outliers       []OutlierCount `json:"outliers,omitempty"`
	DegenerateCols []string       `json:"degenerate_columns,omitempty"`
}

// OutlierCount is the number of rows one column's z-score filter removed.
type OutlierCount struct {
	Column  string `json:"column"`
	Removed int    `json:"removed"`
}

// OutputRecord is one written dataset file.
type OutputRecord struct {
	Role string `json:"role"`
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// New constructs an in-memory manifest. Call Save() to persist.
func New(dir string, s Settings) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Settings:  s,
		dir:       dir,
	}
}

// Load reads run.json from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no run manifest at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = dir
	return &m, nil
}

// Path returns the run.json location.
func (m *Manifest) Path() string { return filepath.Join(m.dir, manifestFileName) }

// AddSource appends a source record.
func (m *Manifest) AddSource(r SourceRecord) { m.Sources = append(m.Sources, r) }

// AddOutput appends an output record.
func (m *Manifest) AddOutput(role, path string, rows int) {
	m.Outputs = append(m.Outputs, OutputRecord{Role: role, Path: path, Rows: rows})
}

// Finish stamps the end time and the terminal error, if any.
func (m *Manifest) Finish(err error) {
	m.FinishedAt = time.Now().UTC()
	if err != nil {
		m.Error = err.Error()
	}
}

// Save writes run.json using atomic write.
func (m *Manifest) Save() error {
	if m.dir == "" {
		return errors.New("manifest directory not set")
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.Path(), data)
}
