package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/secretspec/secretspec/pkg/engine"
)

const validFragment = `
[project]
name = "app"
revision = "1.0"
extends = ["../shared"]

[profiles.default]
DATABASE_URL = { description = "Postgres connection string" }
LOG_LEVEL = { description = "Log level", required = false, default = "info" }

[profiles.production]
SENTRY_DSN = { description = "Error reporting", required = true }
`

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.Parse("/app/secretspec.toml", []byte(validFragment))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.ID != "/app/secretspec.toml" {
		t.Errorf("Expected ID to be recorded, got %s", cfg.ID)
	}
	if cfg.Name != "app" || cfg.Revision != "1.0" {
		t.Errorf("Unexpected project section: %+v", cfg)
	}
	if len(cfg.Extends) != 1 || cfg.Extends[0] != "../shared" {
		t.Errorf("Unexpected extends: %v", cfg.Extends)
	}

	def, ok := cfg.Profiles["default"]["DATABASE_URL"]
	if !ok {
		t.Fatal("Expected DATABASE_URL in default profile")
	}
	if !def.Required {
		t.Error("Expected required to default to true")
	}
	if def.Description != "Postgres connection string" {
		t.Errorf("Unexpected description: %q", def.Description)
	}

	logLevel := cfg.Profiles["default"]["LOG_LEVEL"]
	if logLevel.Required || logLevel.Default == nil || *logLevel.Default != "info" {
		t.Errorf("Unexpected LOG_LEVEL definition: %+v", logLevel)
	}

	if !cfg.Profiles["production"]["SENTRY_DSN"].Required {
		t.Error("Expected SENTRY_DSN to be required")
	}
}

func TestParser_Errors(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		content  string
		code     string
		path     string
		line     int
		location bool
		schema   bool
	}{
		{
			name:     "malformed toml",
			content:  "[project\nname = \"app\"",
			code:     engine.ErrCodeParse,
			location: true,
		},
		{
			name:    "missing revision",
			content: "[project]\nname = \"app\"\n",
			code:    engine.ErrCodeParse,
			path:    "project.revision",
		},
		{
			name:    "unsupported revision",
			content: "[project]\nname = \"app\"\nrevision = \"2.0\"\n",
			code:    engine.ErrCodeUnsupportedRevision,
			path:    "project.revision",
		},
		{
			name:    "missing name",
			content: "[project]\nrevision = \"1.0\"\n",
			code:    engine.ErrCodeParse,
			path:    "project.name",
		},
		{
			name:     "unknown field",
			content:  "[project]\nname = \"app\"\nrevision = \"1.0\"\nowner = \"me\"\n",
			code:     engine.ErrCodeParse,
			location: true,
		},
		{
			name:    "invalid secret name",
			content: "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.default]\n\"bad-name\" = { description = \"x\" }\n",
			code:    engine.ErrCodeParse,
			path:    "profiles.default",
			schema:  true,
		},
		{
			name:    "secret name starting with a digit",
			content: "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.default]\n1BAD = {}\n",
			code:    engine.ErrCodeParse,
			path:    "profiles.default",
			schema:  true,
		},
		{
			name:    "profile name with spaces",
			content: "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.\"pro d\"]\nAPI_KEY = {}\n",
			code:    engine.ErrCodeParse,
			path:    "profiles",
			schema:  true,
		},
		{
			name:    "empty profile name",
			content: "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.\"\"]\nAPI_KEY = {}\n",
			code:    engine.ErrCodeParse,
			path:    "profiles",
			schema:  true,
		},
		{
			name:     "key twice",
			content:  "[project]\nname = \"app\"\nname = \"other\"\nrevision = \"1.0\"\n",
			code:     engine.ErrCodeParse,
			path:     "project.name",
			line:     3,
			location: true,
		},
		{
			name:     "key twice in inline table",
			content:  "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.default]\nX = { required = true, required = false }\n",
			code:     engine.ErrCodeParse,
			path:     "profiles.default.X.required",
			line:     5,
			location: true,
		},
		{
			name:     "table twice",
			content:  "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.default]\nA = {}\n[profiles.default]\nB = {}\n",
			code:     engine.ErrCodeParse,
			path:     "profiles.default",
			line:     6,
			location: true,
		},
		{
			name:     "inline then sub-table",
			content:  "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.default]\nX = { required = true }\n[profiles.default.X]\nrequired = false\n",
			code:     engine.ErrCodeParse,
			path:     "profiles.default.X",
			line:     6,
			location: true,
		},
		{
			name:    "wrong value type",
			content: "[project]\nname = \"app\"\nrevision = \"1.0\"\n[profiles.default]\nAPI_KEY = { required = \"yes\" }\n",
			code:    engine.ErrCodeParse,
		},
		{
			name:    "empty extends entry",
			content: "[project]\nname = \"app\"\nrevision = \"1.0\"\nextends = [\"\"]\n",
			code:    engine.ErrCodeParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse("/app/secretspec.toml", []byte(tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var ee *engine.EngineError
			if !errors.As(err, &ee) {
				t.Fatalf("Expected *engine.EngineError, got %T: %v", err, err)
			}
			if ee.Code != tt.code {
				t.Errorf("Expected code %s, got %s (%v)", tt.code, ee.Code, err)
			}
			if ee.Class != engine.ErrorClassConfig {
				t.Errorf("Expected config class, got %s", ee.Class)
			}
			if ee.Fragment != "/app/secretspec.toml" {
				t.Errorf("Expected fragment to be recorded, got %q", ee.Fragment)
			}
			if tt.path != "" && !strings.HasPrefix(ee.Path, tt.path) {
				t.Errorf("Expected path %s, got %s", tt.path, ee.Path)
			}
			if tt.location && ee.Line == 0 {
				t.Errorf("Expected a line number, got %+v", ee)
			}
			if tt.line != 0 && ee.Line != tt.line {
				t.Errorf("Expected line %d, got %d (%v)", tt.line, ee.Line, err)
			}
			var schemaErr *SchemaError
			if tt.schema && !errors.As(err, &schemaErr) {
				t.Errorf("Expected the schema to reject the fragment, got %v", err)
			}
		})
	}
}

func TestParser_RequiredWithDefaultAccepted(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.Parse("/app/secretspec.toml", []byte(`
[project]
name = "app"
revision = "1.0"

[profiles.default]
PORT = { description = "Port", required = true, default = "8080" }
`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	def := cfg.Profiles["default"]["PORT"]
	if !def.Required || !def.HasDefault() {
		t.Errorf("Expected required secret with default, got %+v", def)
	}
	if def.Mandatory() {
		t.Error("Expected secret with default not to be mandatory")
	}
}

func TestParser_EmptyProfiles(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.Parse("/base/secretspec.toml", []byte("[project]\nname = \"base\"\nrevision = \"1.0\"\n"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(cfg.Profiles) != 0 {
		t.Errorf("Expected no profiles, got %v", cfg.Profiles)
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, engine.SpecFileName)
	if err := os.WriteFile(path, []byte(validFragment), 0o644); err != nil {
		t.Fatalf("Failed to write fragment: %v", err)
	}

	parser := NewParser()
	cfg, err := parser.ParseFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !filepath.IsAbs(cfg.ID) {
		t.Errorf("Expected absolute ID, got %s", cfg.ID)
	}

	_, err = parser.ParseFile(filepath.Join(dir, "missing.toml"))
	if !errors.Is(err, engine.ErrFragmentNotFound) {
		t.Errorf("Expected ErrFragmentNotFound, got: %v", err)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	parser := NewParser()

	cfg, err := parser.Parse("/app/secretspec.toml", []byte(validFragment))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "revision = '1.0'") && !strings.Contains(string(data), `revision = "1.0"`) {
		t.Errorf("Expected revision in output:\n%s", data)
	}

	again, err := parser.Parse("/app/secretspec.toml", data)
	if err != nil {
		t.Fatalf("Expected marshaled output to parse, got: %v\n%s", err, data)
	}
	if again.Name != cfg.Name || len(again.Profiles) != len(cfg.Profiles) {
		t.Errorf("Round trip changed project: %+v", again)
	}
	if *again.Profiles["default"]["LOG_LEVEL"].Default != "info" {
		t.Error("Round trip lost default value")
	}
}

func TestParser_WithResolver(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, filepath.Join(dir, "shared"), `
[project]
name = "shared"
revision = "1.0"

[profiles.default]
DATABASE_URL = { description = "shared db", required = false }
`)
	writeFragment(t, filepath.Join(dir, "app"), `
[project]
name = "app"
revision = "1.0"
extends = ["../shared"]

[profiles.default]
DATABASE_URL = { description = "app db" }
`)

	resolver := engine.NewResolver(engine.NewFileSource(), NewParser())
	order, err := resolver.ResolveRoot(t.Context(), filepath.Join(dir, "app"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(order.Fragments) != 2 {
		t.Fatalf("Expected 2 fragments, got %d", len(order.Fragments))
	}

	set := engine.Merge(order, engine.DefaultProfile)
	def, _ := set.Get("DATABASE_URL")
	if def.Description != "app db" || !def.Required {
		t.Errorf("Expected child definition to win, got %+v", def)
	}
}

func writeFragment(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, engine.SpecFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fragment: %v", err)
	}
}
