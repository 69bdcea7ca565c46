// Package store persists harmonized datasets in a SQL database, one table per
// dataset. SQLite is the default; PostgreSQL is supported for shared setups.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrInvalidName is returned for table or column names outside [a-z][a-z0-9_]*
// and for columns that collide with the reserved id and seq columns.
var ErrInvalidName = errors.New("invalid identifier")

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedColumns are added to every dataset table by CreateTable.
var reservedColumns = map[string]bool{"id": true, "seq": true}

// Options configures Open.
type Options struct {
	Driver      string
	DSN         string
	Schema      pipeline.Schema
	TablePrefix string
}

// Store manages dataset tables.
type Store struct {
	db     *sql.DB
	driver string
	schema pipeline.Schema
	prefix string
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
	case DriverPostgres, "postgresql":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported store driver %q (want sqlite|postgres)", opts.Driver)
	}
	if opts.DSN == "" {
		return nil, errors.New("store dsn is empty")
	}
	for _, c := range opts.Schema.Columns() {
		if !identRe.MatchString(c) {
			return nil, fmt.Errorf("%w: column %q", ErrInvalidName, c)
		}
		if reservedColumns[c] {
			return nil, fmt.Errorf("%w: column %q is reserved", ErrInvalidName, c)
		}
	}
	if opts.TablePrefix != "" && !identRe.MatchString(opts.TablePrefix) {
		return nil, fmt.Errorf("%w: table prefix %q", ErrInvalidName, opts.TablePrefix)
	}

	if driver == DriverSQLite && opts.DSN != ":memory:" && !strings.HasPrefix(opts.DSN, "file:") {
		if err := utils.EnsureDir(filepath.Dir(opts.DSN)); err != nil {
			return nil, fmt.Errorf("ensure db dir: %w", err)
		}
	}
	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return &Store{db: db, driver: driver, schema: opts.Schema, prefix: opts.TablePrefix}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the normalized driver name.
func (s *Store) Driver() string { return s.driver }

func (s *Store) tableName(name string) (string, error) {
	full := s.prefix + name
	if !identRe.MatchString(full) {
		return "", fmt.Errorf("%w: table %q", ErrInvalidName, full)
	}
	return full, nil
}

func (s *Store) placeholder(i int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// CreateTable creates the dataset table when it does not exist.
func (s *Store) CreateTable(ctx context.Context, name string) error {
	tbl, err := s.tableName(name)
	if err != nil {
		return err
	}
	cols := []string{"id TEXT PRIMARY KEY", "seq BIGINT NOT NULL", s.schema.ID + " TEXT NOT NULL"}
	for _, f := range s.schema.Features {
		cols = append(cols, f+" DOUBLE PRECISION NOT NULL")
	}
	cols = append(cols, s.schema.Target+" INTEGER NOT NULL")
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", tbl, strings.Join(cols, ",\n    "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", tbl, err)
	}
	return nil
}

// InsertRow inserts one record.
func (s *Store) InsertRow(ctx context.Context, name string, rec pipeline.HarmonizedRecord) error {
	_, err := s.InsertRows(ctx, name, []pipeline.HarmonizedRecord{rec})
	return err
}

// InsertRows inserts records in one transaction, after any rows already in
// the table. Repeated subject ids are kept as separate rows.
func (s *Store) InsertRows(ctx context.Context, name string, recs []pipeline.HarmonizedRecord) (int, error) {
	tbl, err := s.tableName(name)
	if err != nil {
		return 0, err
	}
	cols := append([]string{"id", "seq"}, s.schema.Columns()...)
	ph := make([]string, len(cols))
	for i := range ph {
		ph[i] = s.placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tbl, strings.Join(cols, ", "), strings.Join(ph, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) FROM %s", tbl)).Scan(&next); err != nil {
		return 0, fmt.Errorf("read sequence of %s: %w", tbl, err)
	}
	prep, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", tbl, err)
	}
	defer prep.Close()

	for i, rec := range recs {
		if len(rec.Features) != len(s.schema.Features) {
			return 0, fmt.Errorf("%w: record %d has %d features, want %d", pipeline.ErrInvalidValue, i+1, len(rec.Features), len(s.schema.Features))
		}
		next++
		args := make([]any, 0, len(cols))
		args = append(args, uuid.NewString(), next, rec.SubjectID)
		for _, f := range rec.Features {
			args = append(args, f)
		}
		args = append(args, rec.Status)
		if _, err := prep.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", tbl, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(recs), nil
}

// ReadAll returns every record in insertion order.
func (s *Store) ReadAll(ctx context.Context, name string) ([]pipeline.HarmonizedRecord, error) {
	tbl, err := s.tableName(name)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(s.schema.Columns(), ", "), tbl)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tbl, err)
	}
	defer rows.Close()

	var out []pipeline.HarmonizedRecord
	for rows.Next() {
		rec := pipeline.HarmonizedRecord{Features: make([]float64, len(s.schema.Features))}
		dest := make([]any, 0, len(s.schema.Features)+2)
		dest = append(dest, &rec.SubjectID)
		for i := range rec.Features {
			dest = append(dest, &rec.Features[i])
		}
		dest = append(dest, &rec.Status)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tbl, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", tbl, err)
	}
	return out, nil
}

// LoadCSV creates the table if needed and inserts every row of a harmonized CSV.
func (s *Store) LoadCSV(ctx context.Context, name, path string) (int, error) {
	t, err := table.Load(path)
	if err != nil {
		return 0, err
	}
	recs, err := pipeline.Records(t, s.schema)
	if err != nil {
		return 0, err
	}
	if err := s.CreateTable(ctx, name); err != nil {
		return 0, err
	}
	return s.InsertRows(ctx, name, recs)
}

// TableNameFor derives a valid table name from a file or source name,
// e.g. "Sakar_et_al_2018/pd_speech_features.csv" -> "pd_speech_features".
func TableNameFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "t_" + name
	}
	return name
}
