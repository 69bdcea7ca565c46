// Package pipeline implements the speech-feature preparation stages: target
// normalization, schema unification, outlier filtering, class balancing and
// the provenance-aware train/test merge.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

var (
	// ErrSchemaMismatch indicates a required column is absent or headers disagree.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrAmbiguousTargetColumn indicates more than one label column candidate.
	ErrAmbiguousTargetColumn = errors.New("ambiguous target column")
	// ErrUnsupportedClassCardinality indicates a label column without exactly two classes.
	ErrUnsupportedClassCardinality = errors.New("unsupported class cardinality")
	// ErrDegenerateColumn marks a zero-variance column. It is reported, never returned.
	ErrDegenerateColumn = errors.New("degenerate column")
	// ErrInvalidValue indicates a missing or non-numeric cell where a number is required.
	ErrInvalidValue = errors.New("invalid value")
	// ErrIO is the table package's read/write failure.
	ErrIO = table.ErrIO
)

// SourceError attaches the source and stage to a stage failure.
type SourceError struct {
	Source string
	Stage  string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func stageErr(source, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Stage: stage, Err: err}
}
