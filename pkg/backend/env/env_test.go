package env

import (
	"context"
	"errors"
	"testing"

	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/engine"
)

func TestBackend_Get(t *testing.T) {
	t.Setenv("SECRETSPEC_TEST_TOKEN", "abc")

	b, err := New(backend.Spec{Scheme: Scheme})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	v, ok, err := b.Get(context.Background(), "app", "default", "SECRETSPEC_TEST_TOKEN")
	if err != nil || !ok || v != "abc" {
		t.Errorf("Expected abc, got (%q, %v, %v)", v, ok, err)
	}

	_, ok, err = b.Get(context.Background(), "app", "default", "SECRETSPEC_TEST_UNSET")
	if err != nil || ok {
		t.Errorf("Expected not found, got (%v, %v)", ok, err)
	}
}

func TestBackend_ReadOnly(t *testing.T) {
	b := NewWithLookup(func(string) (string, bool) { return "", false })

	if b.AllowsWrite() {
		t.Error("Expected env backend to be read-only")
	}
	err := b.Set(context.Background(), "app", "default", "KEY", "v")
	if !errors.Is(err, engine.ErrWriteNotSupported) {
		t.Errorf("Expected ErrWriteNotSupported, got: %v", err)
	}
}
