// Package runner drives the end-to-end data preparation: prepare every
// source, clean it, merge by role and write the train and test sets.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/pdspeech-cli/internal/export"
	"github.com/KaramelBytes/pdspeech-cli/internal/logging"
	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/runlog"
	"github.com/KaramelBytes/pdspeech-cli/internal/sources"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

// Output file names under the output directory.
const (
	TrainFile = "train_data.csv"
	TestFile  = "test_data.csv"
)

// Options configures a run.
type Options struct {
	DataDir         string
	OutputDir       string // absolute, or relative to DataDir
	ProcessedSuffix string
	SourcesFile     string // recorded in the manifest only
	Catalog         *sources.Catalog
	// Sources limits the run to the named sources; empty means all.
	Sources []string

	Threshold    float64
	Mode         pipeline.OutlierMode
	Seed         int64
	BalanceTrain bool
	Parquet      bool

	Logger *slog.Logger
}

func (o Options) outDir() string {
	if filepath.IsAbs(o.OutputDir) {
		return o.OutputDir
	}
	return filepath.Join(o.DataDir, o.OutputDir)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

func (o Options) schema() pipeline.Schema {
	if o.Catalog == nil {
		return pipeline.DefaultSchema()
	}
	return o.Catalog.Schema
}

func (o Options) selected() ([]pipeline.SourceSpec, error) {
	if o.Catalog == nil {
		return nil, errors.New("no sources catalog")
	}
	return o.Catalog.Select(o.Sources...)
}

// Output is one written dataset file.
type Output struct {
	Role pipeline.Role
	Path string
	Rows int
}

// Result summarizes a run.
type Result struct {
	Prepared []*pipeline.PrepareResult
	Reports  map[string]*pipeline.OutlierReport
	Split    *pipeline.Partitioned
	Outputs  []Output
	Manifest *runlog.Manifest
}

// Prepare harmonizes each selected source and writes its processed CSV.
func Prepare(ctx context.Context, opt Options) ([]*pipeline.PrepareResult, error) {
	srcs, err := opt.selected()
	if err != nil {
		return nil, err
	}
	log := opt.logger()
	schema := opt.schema()
	out := make([]*pipeline.PrepareResult, 0, len(srcs))
	for i, src := range srcs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		log.Info("preparing source", "source", src.Name, "step", fmt.Sprintf("%d/%d", i+1, len(srcs)), "path", src.Path)
		res, err := pipeline.PrepareSource(opt.DataDir, src, schema, opt.ProcessedSuffix)
		if err != nil {
			return out, err
		}
		log.Debug("source prepared", "source", src.Name, "rows", res.RowsPrepared, "output", res.Output)
		out = append(out, res)
	}
	return out, nil
}

// Run executes the whole pipeline under the data directory lock and records
// a manifest in the output directory, also when the run fails.
func Run(ctx context.Context, opt Options) (res *Result, err error) {
	lock, err := utils.AcquireRunLock(opt.DataDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", rerr)
		}
	}()

	log := opt.logger()
	manifest := runlog.New(opt.outDir(), runlog.Settings{
		DataDir:         opt.DataDir,
		SourcesFile:     opt.SourcesFile,
		ZScoreThreshold: opt.Threshold,
		OutlierMode:     string(opt.Mode),
		RandomState:     opt.Seed,
		BalanceTrain:    opt.BalanceTrain,
	})
	res = &Result{Reports: map[string]*pipeline.OutlierReport{}, Manifest: manifest}
	defer func() {
		manifest.Finish(err)
		if serr := manifest.Save(); serr != nil {
			log.Warn("could not save run manifest", "path", manifest.Path(), "error", serr)
		}
	}()

	prepared, err := Prepare(ctx, opt)
	res.Prepared = prepared
	if err != nil {
		return res, err
	}

	schema := opt.schema()
	srcs, _ := opt.selected()
	parts := make([]pipeline.Part, 0, len(prepared))
	for i, p := range prepared {
		src := srcs[i]
		cleaned, rep, err := pipeline.Clean(p.Table, schema, pipeline.CleanOptions{
			Outliers:  src.Outliers,
			Threshold: opt.Threshold,
			Mode:      opt.Mode,
			Balance:   src.Balance,
			Seed:      opt.Seed,
		})
		if err != nil {
			return res, err
		}
		rec := runlog.SourceRecord{
			Name:         src.Name,
			Role:         string(src.Role),
			Input:        p.Input,
			Processed:    p.Output,
			RowsRaw:      p.RowsRaw,
			RowsPrepared: p.RowsPrepared,
			RowsCleaned:  cleaned.Len(),
		}
		if rep != nil {
			res.Reports[src.Name] = rep
			for _, c := range rep.Columns {
				rec.Outliers = append(rec.Outliers, runlog.OutlierCount{Column: c.Column, Removed: c.Removed})
			}
			rec.DegenerateCols = rep.Degenerate
			for _, note := range rep.Notes() {
				log.Warn("outlier filter skipped column", "source", src.Name, "reason", note)
			}
			log.Info("outliers removed", "source", src.Name, "removed", rep.Removed(), "rows", rep.RowsOut)
		}
		manifest.AddSource(rec)
		parts = append(parts, pipeline.Part{Source: src.Name, Role: src.Role, Table: cleaned})
	}

	split, err := mergeParts(parts, opt, log)
	res.Split = split
	if err != nil {
		return res, err
	}
	outs, err := writeSplit(split, schema, opt, log)
	res.Outputs = outs
	for _, o := range outs {
		manifest.AddOutput(string(o.Role), o.Path, o.Rows)
	}
	return res, err
}

// MergeProcessed merges the processed CSVs left by an earlier Prepare and
// writes the train and test sets.
func MergeProcessed(ctx context.Context, opt Options) (*Result, error) {
	srcs, err := opt.selected()
	if err != nil {
		return nil, err
	}
	log := opt.logger()
	parts := make([]pipeline.Part, 0, len(srcs))
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := pipeline.ProcessedPath(opt.DataDir, src, opt.ProcessedSuffix)
		t, err := table.Load(path)
		if err != nil {
			return nil, &pipeline.SourceError{Source: src.Name, Stage: "merge", Err: err}
		}
		t.Name = src.Name
		parts = append(parts, pipeline.Part{Source: src.Name, Role: src.Role, Table: t})
	}
	split, err := mergeParts(parts, opt, log)
	if err != nil {
		return nil, err
	}
	outs, err := writeSplit(split, opt.schema(), opt, log)
	return &Result{Split: split, Outputs: outs}, err
}

func mergeParts(parts []pipeline.Part, opt Options, log *slog.Logger) (*pipeline.Partitioned, error) {
	split, err := pipeline.Merge(parts)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	for role, n := range split.Dropped {
		log.Info("dropped rows with missing values", "role", role, "rows", n)
	}
	if opt.BalanceTrain {
		b, err := pipeline.Balance(split.Train, opt.schema().Target, opt.Seed)
		if err != nil {
			return split, fmt.Errorf("balance train: %w", err)
		}
		log.Info("balanced training set", "rows_before", split.Train.Len(), "rows_after", b.Len())
		b.Name = split.Train.Name
		split.Train = b
	}
	return split, nil
}

func writeSplit(split *pipeline.Partitioned, schema pipeline.Schema, opt Options, log *slog.Logger) ([]Output, error) {
	dir := opt.outDir()
	var outs []Output
	for _, side := range []struct {
		role pipeline.Role
		file string
		t    *table.Table
	}{
		{pipeline.RoleTrain, TrainFile, split.Train},
		{pipeline.RoleTest, TestFile, split.Test},
	} {
		path := filepath.Join(dir, side.file)
		if err := table.WriteCSV(path, side.t); err != nil {
			return outs, fmt.Errorf("write %s set: %w", side.role, err)
		}
		log.Info("wrote dataset", "role", side.role, "path", path, "rows", side.t.Len())
		outs = append(outs, Output{Role: side.role, Path: path, Rows: side.t.Len()})

		if !opt.Parquet {
			continue
		}
		recs, err := pipeline.Records(side.t, schema)
		if err != nil {
			return outs, fmt.Errorf("%s set: %w", side.role, err)
		}
		pq := strings.TrimSuffix(path, filepath.Ext(path)) + ".parquet"
		if err := export.WriteParquet(pq, schema, recs); err != nil {
			return outs, fmt.Errorf("write %s parquet: %w", side.role, err)
		}
		log.Info("wrote dataset", "role", side.role, "path", pq, "rows", len(recs))
		outs = append(outs, Output{Role: side.role, Path: pq, Rows: len(recs)})
	}
	return outs, nil
}
