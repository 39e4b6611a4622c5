package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/secretspec/secretspec/pkg/backend"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "secrets.db"),
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStoreLifecycle(t *testing.T) {
	store := setupTestStore(t)

	if err := store.db.PingContext(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM secrets").Scan(&count); err != nil {
		t.Fatalf("secrets table not accessible: %v", err)
	}
}

func TestStoreReopenSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.db")
	ctx := context.Background()

	first, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := first.Set(ctx, "app", "default", "KEY", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer second.Close()

	v, ok, err := second.Get(ctx, "app", "default", "KEY")
	if err != nil || !ok || v != "v1" {
		t.Errorf("Expected v1 after reopen, got (%q, %v, %v)", v, ok, err)
	}
}

func TestSecretCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "app", "default", "API_KEY"); err != nil || ok {
		t.Fatalf("Expected not found, got (%v, %v)", ok, err)
	}

	if err := store.Set(ctx, "app", "default", "API_KEY", "one"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "app", "default", "API_KEY", "two"); err != nil {
		t.Fatalf("Set (update) failed: %v", err)
	}
	if err := store.Set(ctx, "app", "production", "API_KEY", "prod"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "app", "default", "DATABASE_URL", ""); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok, err := store.Get(ctx, "app", "default", "API_KEY")
	if err != nil || !ok || v != "two" {
		t.Errorf("Expected two, got (%q, %v, %v)", v, ok, err)
	}

	v, ok, err = store.Get(ctx, "app", "default", "DATABASE_URL")
	if err != nil || !ok || v != "" {
		t.Errorf("Expected stored empty string, got (%q, %v, %v)", v, ok, err)
	}

	v, ok, err = store.Get(ctx, "app", "production", "API_KEY")
	if err != nil || !ok || v != "prod" {
		t.Errorf("Expected profiles to be stored separately, got (%q, %v, %v)", v, ok, err)
	}
}

func TestNew_FromSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.db")

	b, err := New(backend.Spec{Scheme: Scheme, Path: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()

	if b.Name() != Scheme || !b.AllowsWrite() {
		t.Errorf("Unexpected backend: %s", b.Name())
	}
	if b.(*Store).Path() != path {
		t.Errorf("Expected path %s, got %s", path, b.(*Store).Path())
	}

	if _, err := New(backend.Spec{Scheme: Scheme, Path: path, Query: map[string][]string{"busy_timeout": {"soon"}}}); err == nil {
		t.Error("Expected invalid busy_timeout to fail")
	}
}
