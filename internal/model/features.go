package model

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// Dataset is a feature matrix with labels, taken from a harmonized table.
type Dataset struct {
	Features []string
	IDs      []string
	X        [][]float64
	Y        []int
}

// DatasetFromTable extracts every schema feature and the label.
func DatasetFromTable(t *table.Table, schema pipeline.Schema) (*Dataset, error) {
	recs, err := pipeline.Records(t, schema)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		Features: append([]string(nil), schema.Features...),
		IDs:      make([]string, len(recs)),
		X:        make([][]float64, len(recs)),
		Y:        make([]int, len(recs)),
	}
	for i, r := range recs {
		ds.IDs[i] = r.SubjectID
		ds.X[i] = r.Features
		ds.Y[i] = r.Status
	}
	return ds, nil
}

// MatrixFromTable reads the named feature columns only, for unlabelled input.
func MatrixFromTable(t *table.Table, features []string) ([][]float64, error) {
	cols := make([][]float64, len(features))
	for k, f := range features {
		if !t.Has(f) {
			return nil, fmt.Errorf("%w: %s: feature column %q not found", pipeline.ErrSchemaMismatch, t.Name, f)
		}
		v, err := t.Floats(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidValue, err)
		}
		cols[k] = v
	}
	X := make([][]float64, t.Len())
	for i := range X {
		row := make([]float64, len(features))
		for k := range features {
			row[k] = cols[k][i]
		}
		X[i] = row
	}
	return X, nil
}

// Subset returns the rows at idx.
func Subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	sx := make([][]float64, len(idx))
	sy := make([]int, len(idx))
	for k, i := range idx {
		sx[k] = X[i]
		sy[k] = y[i]
	}
	return sx, sy
}
