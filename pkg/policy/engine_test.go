package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/secretspec/secretspec/pkg/config"
	"github.com/secretspec/secretspec/pkg/engine"
)

var lintFragments = map[string]string{
	"/app/secretspec.toml": `
[project]
name = "app"
revision = "1.0"

[profiles.default]
DATABASE_URL = { description = "Database" }
TOKEN = { description = "Token", required = true, default = "x" }
apiKey = { required = false }

[profiles.production]
SENTRY_DSN = { description = "Error reporting" }
`,
}

// setupTestInput resolves fragments rooted at /app into policy input.
func setupTestInput(t *testing.T, fragments map[string]string) *Input {
	t.Helper()

	r := engine.NewResolver(engine.NewMemorySource(fragments), config.NewParser())
	order, err := r.ResolveRoot(context.Background(), "/app")
	if err != nil {
		t.Fatalf("Failed to resolve fixture: %v", err)
	}
	return BuildInput(order)
}

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()

	eng, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := setupTestEngine(t)

	policies := eng.ListPolicies()
	expected := []string{
		"missing-description",
		"profile-only-secret",
		"required-with-default",
		"secret-naming",
	}
	if len(policies) != len(expected) {
		t.Fatalf("Expected %d built-in policies, got %d", len(expected), len(policies))
	}
	for i, name := range expected {
		if policies[i].Name != name {
			t.Errorf("Policy %d: expected %s, got %s", i, name, policies[i].Name)
		}
	}
}

func TestBuildInput(t *testing.T) {
	in := setupTestInput(t, lintFragments)

	if in.Project.Name != "app" || in.Project.Revision != "1.0" {
		t.Errorf("Unexpected project: %+v", in.Project)
	}
	if len(in.Fragments) != 1 || in.Fragments[0].ID != "/app/secretspec.toml" {
		t.Fatalf("Unexpected fragments: %+v", in.Fragments)
	}

	token, ok := in.Effective["default"]["TOKEN"]
	if !ok {
		t.Fatal("Expected TOKEN in default profile")
	}
	if !token.Required || !token.HasDefault || token.Mandatory {
		t.Errorf("Unexpected TOKEN input: %+v", token)
	}
	if token.Tier != string(engine.TierDefault) {
		t.Errorf("Expected default tier, got %s", token.Tier)
	}

	if _, ok := in.Effective["default"]["SENTRY_DSN"]; ok {
		t.Error("SENTRY_DSN should not be in the default profile")
	}
	if _, ok := in.Effective["production"]["TOKEN"]; !ok {
		t.Error("Expected production to inherit TOKEN")
	}
}

func TestEvaluate_BuiltinPolicies(t *testing.T) {
	eng := setupTestEngine(t)
	in := setupTestInput(t, lintFragments)

	result, err := eng.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	expected := []Violation{
		{Policy: "required-with-default", Secret: "TOKEN", Profile: "default", Severity: SeverityWarning},
		{Policy: "required-with-default", Secret: "TOKEN", Profile: "production", Severity: SeverityWarning},
		{Policy: "secret-naming", Secret: "apiKey", Severity: SeverityWarning},
		{Policy: "missing-description", Secret: "apiKey", Severity: SeverityInfo},
		{Policy: "profile-only-secret", Secret: "SENTRY_DSN", Profile: "production", Severity: SeverityInfo},
	}
	if len(result.Violations) != len(expected) {
		t.Fatalf("Expected %d violations, got %d: %+v", len(expected), len(result.Violations), result.Violations)
	}
	for i, want := range expected {
		got := result.Violations[i]
		if got.Policy != want.Policy || got.Secret != want.Secret ||
			got.Profile != want.Profile || got.Severity != want.Severity {
			t.Errorf("Violation %d: expected %+v, got %+v", i, want, got)
		}
		if got.Message == "" {
			t.Errorf("Violation %d has no message", i)
		}
	}

	if !result.Passed() {
		t.Error("Expected result to pass without error violations")
	}
	if result.Count(SeverityWarning) != 3 {
		t.Errorf("Expected 3 warnings, got %d", result.Count(SeverityWarning))
	}
	if len(result.EvaluatedPolicies) != 4 {
		t.Errorf("Expected 4 evaluated policies, got %d", len(result.EvaluatedPolicies))
	}
}

func TestEvaluate_CleanProject(t *testing.T) {
	eng := setupTestEngine(t)
	in := setupTestInput(t, map[string]string{
		"/app/secretspec.toml": `
[project]
name = "app"
revision = "1.0"

[profiles.default]
DATABASE_URL = { description = "Database" }
LOG_LEVEL = { description = "Log level", required = false, default = "info" }
`,
	})

	result, err := eng.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(result.Violations) != 0 {
		t.Errorf("Expected no violations, got %+v", result.Violations)
	}
}

func TestEvaluate_CustomPolicy(t *testing.T) {
	eng := setupTestEngine(t)
	ctx := context.Background()

	custom := Policy{
		Name:     "no-production",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package custom.no_production

deny contains msg if {
	"production" in input.profiles
	msg := "production profile is not allowed here"
}
`,
	}
	if err := eng.AddPolicies(ctx, []Policy{custom}); err != nil {
		t.Fatalf("AddPolicies failed: %v", err)
	}

	result, err := eng.Evaluate(ctx, setupTestInput(t, lintFragments))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Passed() {
		t.Fatal("Expected result to fail with an error violation")
	}
	first := result.Violations[0]
	if first.Policy != "no-production" || first.Severity != SeverityError {
		t.Errorf("Expected error violation first, got %+v", first)
	}
	if first.Message != "production profile is not allowed here" {
		t.Errorf("Unexpected message: %s", first.Message)
	}
}

func TestAddPolicies_InvalidRego(t *testing.T) {
	eng := setupTestEngine(t)

	err := eng.AddPolicies(context.Background(), []Policy{
		{Name: "ok", Enabled: true, Rego: "package ok\n\ndeny contains 1 if { false }\n"},
		{Name: "broken", Enabled: true, Rego: "package broken\n\ndeny contains if {"},
	})
	if err == nil {
		t.Fatal("Expected compile error")
	}
	if _, err := eng.GetPolicy("ok"); err == nil {
		t.Error("No policy should be added when one fails to compile")
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := setupTestEngine(t)
	ctx := context.Background()
	in := setupTestInput(t, lintFragments)

	if err := eng.DisablePolicy("required-with-default"); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}
	p, err := eng.GetPolicy("required-with-default")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if p.Enabled {
		t.Error("Expected policy to be disabled")
	}

	result, err := eng.Evaluate(ctx, in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for _, v := range result.Violations {
		if v.Policy == "required-with-default" {
			t.Errorf("Disabled policy reported %+v", v)
		}
	}

	if err := eng.EnablePolicy("required-with-default"); err != nil {
		t.Fatalf("EnablePolicy failed: %v", err)
	}
	if err := eng.DisablePolicy("missing"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestReset(t *testing.T) {
	eng := setupTestEngine(t)
	ctx := context.Background()

	extra := Policy{Name: "extra", Enabled: true, Rego: "package extra\n\ndeny contains 1 if { false }\n"}
	if err := eng.AddPolicies(ctx, []Policy{extra}); err != nil {
		t.Fatalf("AddPolicies failed: %v", err)
	}
	if err := eng.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := eng.GetPolicy("extra"); err == nil {
		t.Error("Expected extra policy to be dropped")
	}
	if len(eng.ListPolicies()) != len(GetBuiltinPolicies()) {
		t.Error("Expected built-ins after reset")
	}
}

func TestCreateViolation(t *testing.T) {
	p := &Policy{Name: "p", Severity: SeverityWarning}

	tests := []struct {
		name   string
		result interface{}
		want   Violation
	}{
		{
			name:   "string",
			result: "plain message",
			want:   Violation{Policy: "p", Message: "plain message", Severity: SeverityWarning},
		},
		{
			name: "object",
			result: map[string]interface{}{
				"message":  "msg",
				"severity": "error",
				"secret":   "TOKEN",
				"profile":  "default",
			},
			want: Violation{Policy: "p", Message: "msg", Severity: SeverityError, Secret: "TOKEN", Profile: "default"},
		},
		{
			name:   "other",
			result: 42,
			want:   Violation{Policy: "p", Message: "42", Severity: SeverityWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := createViolation(p, tt.result); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
