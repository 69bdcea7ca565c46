// Package export writes harmonized datasets in columnar form.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

// EncodeParquet renders records as a snappy-compressed parquet file.
func EncodeParquet(schema pipeline.Schema, recs []pipeline.HarmonizedRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(buildSchema(schema), pfw, 4)
	if err != nil {
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, rec := range recs {
		row := make(map[string]any, len(schema.Features)+2)
		row[schema.ID] = rec.SubjectID
		for k, f := range schema.Features {
			row[f] = rec.Features[k]
		}
		row[schema.Target] = rec.Status
		b, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := pw.Write(string(b)); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return nil, fmt.Errorf("finish parquet: %w", err)
	}
	_ = pfw.Close()
	return buf.Bytes(), nil
}

// WriteParquet writes records to path atomically.
func WriteParquet(path string, schema pipeline.Schema, recs []pipeline.HarmonizedRecord) error {
	b, err := EncodeParquet(schema, recs)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("%w: %s: %v", table.ErrIO, path, err)
	}
	return nil
}

func buildSchema(s pipeline.Schema) string {
	fields := make([]map[string]string, 0, len(s.Features)+2)
	fields = append(fields, map[string]string{
		"Tag": fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=REQUIRED", s.ID),
	})
	for _, f := range s.Features {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=REQUIRED", f),
		})
	}
	fields = append(fields, map[string]string{
		"Tag": fmt.Sprintf("name=%s, type=INT32, repetitiontype=REQUIRED", s.Target),
	})
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}
