// Package sources loads the declarative catalog of input datasets: where each
// file lives, how its columns map onto the canonical schema, how its label is
// spelled and which side of the train/test split it feeds.
package sources

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
)

//go:embed default_sources.yaml
var defaultCatalog []byte

// ErrInvalidCatalog wraps every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid sources catalog")

// Catalog is the full set of sources plus the canonical schema they map onto.
type Catalog struct {
	Schema  pipeline.Schema       `yaml:"schema" toml:"schema" json:"schema"`
	Sources []pipeline.SourceSpec `yaml:"sources" toml:"sources" json:"sources" validate:"required,min=1,dive"`
}

// Default returns the built-in catalog of published studies.
func Default() *Catalog {
	c, err := Parse(defaultCatalog, "yaml")
	if err != nil {
		panic(fmt.Sprintf("built-in sources catalog: %v", err))
	}
	return c
}

// DefaultYAML returns the built-in catalog text, e.g. to seed a user file.
func DefaultYAML() []byte { return bytes.Clone(defaultCatalog) }

// Load reads a catalog file. An empty path yields the built-in catalog.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	c, err := Parse(b, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog text in the given format (yaml|toml).
func Parse(b []byte, format string) (*Catalog, error) {
	var c Catalog
	switch format {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported sources format %q", format)
	}
	if c.Schema.ID == "" && c.Schema.Target == "" && len(c.Schema.Features) == 0 {
		c.Schema = pipeline.DefaultSchema()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints, unique source names, and that every
// source maps exactly the canonical identifier and feature columns.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	want := map[string]struct{}{c.Schema.ID: {}}
	for _, f := range c.Schema.Features {
		if _, dup := want[f]; dup || f == c.Schema.Target {
			return fmt.Errorf("%w: schema column %q listed twice", ErrInvalidCatalog, f)
		}
		want[f] = struct{}{}
	}

	names := map[string]struct{}{}
	for _, s := range c.Sources {
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidCatalog, s.Name)
		}
		names[s.Name] = struct{}{}

		got := map[string]struct{}{}
		for _, m := range s.Columns {
			if _, ok := want[m.To]; !ok {
				return fmt.Errorf("%w: source %s maps %q onto unknown column %q", ErrInvalidCatalog, s.Name, m.From, m.To)
			}
			if _, dup := got[m.To]; dup {
				return fmt.Errorf("%w: source %s maps column %q twice", ErrInvalidCatalog, s.Name, m.To)
			}
			got[m.To] = struct{}{}
		}
		if len(got) != len(want) {
			var missing []string
			for _, col := range c.Schema.Columns() {
				if _, ok := got[col]; !ok && col != c.Schema.Target {
					missing = append(missing, col)
				}
			}
			return fmt.Errorf("%w: source %s has no mapping for %q", ErrInvalidCatalog, s.Name, missing)
		}
	}
	return nil
}

// Select returns the named sources in catalog order; no names means all.
func (c *Catalog) Select(names ...string) ([]pipeline.SourceSpec, error) {
	if len(names) == 0 {
		return c.Sources, nil
	}
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}
	var out []pipeline.SourceSpec
	for _, s := range c.Sources {
		if wanted[s.Name] {
			out = append(out, s)
			delete(wanted, s.Name)
		}
	}
	if len(wanted) > 0 {
		var unknown []string
		for _, n := range names {
			if wanted[n] {
				unknown = append(unknown, n)
			}
		}
		return nil, fmt.Errorf("unknown source(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// ByRole returns the sources feeding one side of the split, in catalog order.
func (c *Catalog) ByRole(r pipeline.Role) []pipeline.SourceSpec {
	var out []pipeline.SourceSpec
	for _, s := range c.Sources {
		if s.Role == r {
			out = append(out, s)
		}
	}
	return out
}
