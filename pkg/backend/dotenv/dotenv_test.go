package dotenv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/secretspec/secretspec/pkg/backend"
)

func newTestBackend(t *testing.T, content string) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write .env: %v", err)
		}
	}
	b, err := New(backend.Spec{Scheme: Scheme, Path: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return b.(*Backend), path
}

func TestBackend_Get(t *testing.T) {
	b, _ := newTestBackend(t, "DATABASE_URL=postgres://localhost/app\n# comment\nAPI_KEY=\"quoted value\"\n")
	ctx := context.Background()

	tests := []struct {
		key   string
		value string
		found bool
	}{
		{"DATABASE_URL", "postgres://localhost/app", true},
		{"API_KEY", "quoted value", true},
		{"MISSING", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, ok, err := b.Get(ctx, "app", "default", tt.key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if ok != tt.found || v != tt.value {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.value, tt.found, v, ok)
			}
		})
	}
}

func TestBackend_MissingFileIsEmpty(t *testing.T) {
	b, _ := newTestBackend(t, "")

	_, ok, err := b.Get(context.Background(), "app", "default", "ANY")
	if err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}
	if ok {
		t.Error("Expected no value in missing file")
	}
}

func TestBackend_SetPreservesOtherEntries(t *testing.T) {
	b, path := newTestBackend(t, "KEEP=me\n")
	ctx := context.Background()

	if err := b.Set(ctx, "app", "default", "NEW", "value with spaces"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "app", "default", "KEEP", "updated"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	all, err := b.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if all["KEEP"] != "updated" || all["NEW"] != "value with spaces" {
		t.Errorf("Unexpected contents: %v", all)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600, got %o", info.Mode().Perm())
	}
}

func TestBackend_SetNumericValue(t *testing.T) {
	b, _ := newTestBackend(t, "")
	ctx := context.Background()

	if err := b.Set(ctx, "app", "default", "PIN", "007"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := b.Get(ctx, "app", "default", "PIN")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if v != "7" {
		t.Errorf("Expected integer encoding %q, got %q", "7", v)
	}
}

func TestNew_DefaultPath(t *testing.T) {
	b, err := New(backend.Spec{Scheme: Scheme})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := b.(*Backend).Path(); got != DefaultPath {
		t.Errorf("Expected %s, got %s", DefaultPath, got)
	}
	if !b.AllowsWrite() {
		t.Error("Expected dotenv to allow writes")
	}
}
