package config

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]registeredSchema
	mu      sync.RWMutex
}

// registeredSchema is a compiled schema plus the definition data is checked against.
type registeredSchema struct {
	value      cue.Value
	definition string
}

// SchemaViolation is one problem found by schema validation.
type SchemaViolation struct {
	Path    string
	Message string
}

// SchemaError is returned when data does not conform to a schema.
type SchemaError struct {
	Schema     string
	Violations []SchemaViolation
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Path != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", v.Path, v.Message))
		} else {
			parts = append(parts, v.Message)
		}
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, strings.Join(parts, "; "))
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]registeredSchema),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	// The built-in sources are constants; a compile failure is a programming error.
	if err := sr.RegisterSchema("project", "#SecretSpec", builtinProjectSchema); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema("user", "#UserConfig", builtinUserSchema); err != nil {
		panic(err)
	}
}

// RegisterSchema compiles schema and registers it under name. Data validated
// against name is unified with the given definition (e.g. "#SecretSpec").
func (sr *SchemaRegistry) RegisterSchema(name, definition, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema %s does not define %s", name, definition)
	}

	sr.schemas[name] = registeredSchema{value: val, definition: definition}
	return nil
}

// GetSchema retrieves the definition value of a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	s, ok := sr.schemas[name]
	if !ok {
		return cue.Value{}, false
	}
	return s.value.LookupPath(cue.ParsePath(s.definition)), true
}

// ValidateAgainstSchema validates data against a named schema.
// Conformance failures are returned as *SchemaError.
// The CUE context is not safe for concurrent use, so validation is serialized.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	s, ok := sr.schemas[schemaName]
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}
	schema := s.value.LookupPath(cue.ParsePath(s.definition))

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Schema: schemaName, Violations: convertCUEErrors(err)}
	}

	return nil
}

// ListSchemas returns all registered schema names in sorted order.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// convertCUEErrors flattens a CUE error list into violations.
func convertCUEErrors(err error) []SchemaViolation {
	var out []SchemaViolation
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, SchemaViolation{
			Path:    violationPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = append(out, SchemaViolation{Message: err.Error()})
	}
	return out
}

// violationPath renders a CUE error path relative to the validated data,
// dropping definition selectors and label quoting.
func violationPath(selectors []string) string {
	parts := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		if strings.HasPrefix(sel, "#") {
			continue
		}
		if unquoted, err := strconv.Unquote(sel); err == nil {
			sel = unquoted
		}
		parts = append(parts, sel)
	}
	return strings.Join(parts, ".")
}

// Built-in schema definitions

// Name patterns shared by the built-in schemas.
const (
	profileNamePattern = `^[A-Za-z0-9][A-Za-z0-9_-]*$`
	secretNamePattern  = `^[A-Za-z_][A-Za-z0-9_]*$`
	providerURIPattern = `^[A-Za-z][A-Za-z0-9+.-]*(:.*)?$`
)

const builtinProjectSchema = `
// Secret declaration inside a profile
#Secret: {
	description?: string
	required?:    bool
	default?:     string
}

// SecretSpec is the layout of a secretspec.toml fragment
#SecretSpec: {
	project: {
		// Name namespaces stored values
		name: string & !=""

		// Revision of this schema
		revision: "1.0"

		// Extends lists parent fragments
		extends?: [...(string & !="")]
	}

	// Profile and secret names are identifiers; anything else is not allowed
	profiles?: {
		[=~"` + profileNamePattern + `"]: {
			[=~"` + secretNamePattern + `"]: #Secret
		}
	}
}
`

const builtinUserSchema = `
#Defaults: {
	// Provider is a backend URI or a bare scheme shorthand
	provider?: string & =~"` + providerURIPattern + `"
	profile?:  string & =~"` + profileNamePattern + `"
}

// UserConfig is the layout of the per-user config.toml
#UserConfig: {
	defaults?: #Defaults
	projects?: [string]: #Defaults
}
`

// validateDocument validates a fragment against the project schema. data is
// either the raw decoded TOML table or a *document.
func (sr *SchemaRegistry) validateDocument(ctx context.Context, data interface{}) error {
	return sr.ValidateAgainstSchema(ctx, "project", data)
}

// ValidateUserConfig validates user configuration against the user schema.
// Pass the raw decoded table to check values a *UserConfig would omit.
func (sr *SchemaRegistry) ValidateUserConfig(ctx context.Context, data interface{}) error {
	return sr.ValidateAgainstSchema(ctx, "user", data)
}
