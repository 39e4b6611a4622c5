package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/secretspec/secretspec/pkg/engine"
)

// Parser turns secretspec.toml text into validated engine configs.
// It implements engine.Parser and is safe for concurrent use.
type Parser struct {
	validator      *validator.Validate
	schemaRegistry *SchemaRegistry
}

// NewParser creates a parser with the built-in project schema.
func NewParser() *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Parser{
		validator:      v,
		schemaRegistry: NewSchemaRegistry(),
	}
}

// Schemas returns the registry used for structural validation.
func (p *Parser) Schemas() *SchemaRegistry {
	return p.schemaRegistry
}

// Parse decodes and validates one fragment. id is recorded on the result and
// on any error so callers can report which file was at fault.
//
// The [project] table is checked with validator tags. Profile and secret
// names are checked by the CUE schema against the raw table.
func (p *Parser) Parse(id string, data []byte) (*engine.ProjectConfig, error) {
	var doc document

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, decodeError(id, data, err)
	}

	switch doc.Project.Revision {
	case "":
		return nil, engine.NewConfigError("missing project.revision", nil).
			WithCode(engine.ErrCodeParse).
			WithFragment(id).
			WithPath("project.revision")
	case engine.SupportedRevision:
	default:
		return nil, engine.NewConfigError(
			fmt.Sprintf("unsupported revision %q (supported: %s)", doc.Project.Revision, engine.SupportedRevision), nil).
			WithCode(engine.ErrCodeUnsupportedRevision).
			WithFragment(id).
			WithPath("project.revision").
			WithDetail("revision", doc.Project.Revision)
	}

	if err := p.validator.Struct(doc.Project); err != nil {
		return nil, validationError(id, "project", err)
	}

	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, decodeError(id, data, err)
	}
	if err := p.schemaRegistry.validateDocument(context.Background(), raw); err != nil {
		cfgErr := engine.NewConfigError("fragment does not match schema", err).
			WithCode(engine.ErrCodeParse).
			WithFragment(id)
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) && len(schemaErr.Violations) > 0 {
			cfgErr = cfgErr.WithPath(schemaErr.Violations[0].Path)
		}
		return nil, cfgErr
	}

	return doc.toProjectConfig(id), nil
}

// ParseFile reads and parses the fragment at path. The absolute path is used
// as the fragment identifier.
func (p *Parser) ParseFile(path string) (*engine.ProjectConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engine.NewConfigError("fragment not found", err).
				WithCode(engine.ErrCodeFragmentNotFound).
				WithFragment(abs)
		}
		return nil, fmt.Errorf("failed to read %s: %w", abs, err)
	}

	return p.Parse(abs, data)
}

// Marshal renders cfg in secretspec.toml layout. Every secret is written with
// an explicit required flag.
func Marshal(cfg *engine.ProjectConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(fromProjectConfig(cfg)); err != nil {
		return nil, fmt.Errorf("failed to encode project %s: %w", cfg.Name, err)
	}
	return buf.Bytes(), nil
}

// decodeError maps go-toml failures onto PARSE_ERROR with a location.
// data is the decoded source, used to locate redefined keys.
func decodeError(id string, data []byte, err error) error {
	cfgErr := engine.NewConfigError("malformed fragment", err).
		WithCode(engine.ErrCodeParse).
		WithFragment(id)

	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		row, col := decErr.Position()
		cfgErr = cfgErr.WithLocation(row, col)
		if key := decErr.Key(); len(key) > 0 {
			cfgErr = cfgErr.WithPath(strings.Join(key, "."))
		}
		return cfgErr
	}

	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) && len(strictErr.Errors) > 0 {
		first := strictErr.Errors[0]
		row, col := first.Position()
		cfgErr = engine.NewConfigError("unknown field", err).
			WithCode(engine.ErrCodeParse).
			WithFragment(id).
			WithLocation(row, col)
		if key := first.Key(); len(key) > 0 {
			cfgErr = cfgErr.WithPath(strings.Join(key, "."))
		}
		return cfgErr
	}

	if dup, ok := findDuplicateKey(data); ok {
		cfgErr = engine.NewConfigError("duplicate key", err).
			WithCode(engine.ErrCodeParse).
			WithFragment(id).
			WithLocation(dup.line, dup.column).
			WithPath(strings.Join(dup.path, "."))
	}

	return cfgErr
}

// validationError maps validator failures onto PARSE_ERROR.
func validationError(id, prefix string, err error) error {
	cfgErr := engine.NewConfigError("invalid fragment", err).
		WithCode(engine.ErrCodeParse).
		WithFragment(id)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		path := prefix
		if ns := fe.Namespace(); ns != "" {
			// Drop the struct name validator prefixes to the namespace.
			if i := strings.Index(ns, "."); i >= 0 {
				path = prefix + ns[i:]
			}
		}
		cfgErr = cfgErr.WithPath(path).WithDetail("rule", fe.Tag())
	}

	return cfgErr
}
