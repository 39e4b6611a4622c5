package backend

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/secretspec/secretspec/pkg/engine"
)

type stubBackend struct {
	name string
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Get(context.Context, string, string, string) (string, bool, error) {
	return "", false, nil
}

func (s *stubBackend) Set(context.Context, string, string, string, string) error { return nil }

func (s *stubBackend) AllowsWrite() bool { return true }

func (s *stubBackend) Close() error { return nil }

func stubFactory(name string) Factory {
	return func(Spec) (Backend, error) { return &stubBackend{name: name}, nil }
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, info := range []Info{
		{Scheme: "keyring"},
		{Scheme: "dotenv", PathOnly: true},
		{Scheme: "vault"},
		{Scheme: "onepassword"},
	} {
		if err := r.Register(info, stubFactory(info.Scheme)); err != nil {
			t.Fatalf("Register(%s) failed: %v", info.Scheme, err)
		}
	}
	return r
}

func TestRegistry_Register(t *testing.T) {
	r := testRegistry(t)

	if err := r.Register(Info{Scheme: "keyring"}, stubFactory("keyring")); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := r.Register(Info{Scheme: " "}, stubFactory("x")); err == nil {
		t.Error("Expected empty scheme to fail")
	}
	if err := r.Register(Info{Scheme: "x"}, nil); err == nil {
		t.Error("Expected nil factory to fail")
	}

	var schemes []string
	for _, info := range r.List() {
		schemes = append(schemes, info.Scheme)
	}
	if !reflect.DeepEqual(schemes, []string{"dotenv", "keyring", "onepassword", "vault"}) {
		t.Errorf("Expected sorted schemes, got %v", schemes)
	}
}

func TestRegistry_ParseURI(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		raw    string
		scheme string
		host   string
		path   string
		user   string
		canon  string
	}{
		{raw: "keyring", scheme: "keyring", canon: "keyring://"},
		{raw: "keyring://", scheme: "keyring", canon: "keyring://"},
		{raw: "dotenv:.env", scheme: "dotenv", path: ".env", canon: "dotenv://.env"},
		{raw: "dotenv://.env.local", scheme: "dotenv", path: ".env.local", canon: "dotenv://.env.local"},
		{raw: "dotenv://config/.env", scheme: "dotenv", path: "config/.env", canon: "dotenv://config/.env"},
		{raw: "dotenv:///etc/app/.env", scheme: "dotenv", path: "/etc/app/.env", canon: "dotenv:///etc/app/.env"},
		{raw: "vault://localhost:8200/secret", scheme: "vault", host: "localhost:8200", path: "/secret", canon: "vault://localhost:8200/secret"},
		{raw: "onepassword://work@Engineering", scheme: "onepassword", host: "Engineering", user: "work", canon: "onepassword://work@Engineering"},
		{raw: "KEYRING://", scheme: "keyring", canon: "keyring://"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			spec, err := r.ParseURI(tt.raw)
			if err != nil {
				t.Fatalf("ParseURI(%q) failed: %v", tt.raw, err)
			}
			if spec.Scheme != tt.scheme || spec.Host != tt.host || spec.Path != tt.path || spec.User != tt.user {
				t.Errorf("Unexpected spec: %+v", spec)
			}
			if spec.Raw != tt.raw {
				t.Errorf("Expected raw %q, got %q", tt.raw, spec.Raw)
			}
			if got := spec.String(); got != tt.canon {
				t.Errorf("Expected canonical %q, got %q", tt.canon, got)
			}
		})
	}
}

func TestRegistry_ParseURI_Query(t *testing.T) {
	r := testRegistry(t)

	spec, err := r.ParseURI("vault://localhost:8200/kv?tls=false&token_env=DEV_TOKEN")
	if err != nil {
		t.Fatalf("ParseURI failed: %v", err)
	}
	if spec.Param("tls", "true") != "false" {
		t.Error("Expected tls=false")
	}
	if spec.Param("token_env", "VAULT_TOKEN") != "DEV_TOKEN" {
		t.Error("Expected token_env=DEV_TOKEN")
	}
	if spec.Param("namespace", "root") != "root" {
		t.Error("Expected fallback for missing param")
	}
}

func TestRegistry_ParseURI_Invalid(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name string
		raw  string
		hint string
	}{
		{"empty", "", ""},
		{"missing scheme", "://foo", ""},
		{"unknown scheme", "s3://bucket", ""},
		{"numeric scheme", "1password://vault", "onepassword"},
		{"malformed", "foo bar", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ParseURI(tt.raw)
			if !errors.Is(err, engine.ErrInvalidBackendURI) {
				t.Fatalf("Expected ErrInvalidBackendURI, got: %v", err)
			}
			if engine.ClassOf(err) != engine.ErrorClassResolution {
				t.Errorf("Expected resolution class, got %s", engine.ClassOf(err))
			}
			if tt.hint != "" && !strings.Contains(err.Error(), tt.hint) {
				t.Errorf("Expected hint %q in %q", tt.hint, err.Error())
			}
		})
	}
}

func TestRegistry_Open(t *testing.T) {
	r := testRegistry(t)

	b, err := r.Open("vault://localhost:8200")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b.Name() != "vault" {
		t.Errorf("Expected vault backend, got %s", b.Name())
	}

	boom := errors.New("bad option")
	if err := r.Register(Info{Scheme: "broken"}, func(Spec) (Backend, error) { return nil, boom }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, err = r.Open("broken://")
	if !errors.Is(err, engine.ErrInvalidBackendURI) || !errors.Is(err, boom) {
		t.Errorf("Expected factory error wrapped as invalid URI, got: %v", err)
	}
}

func TestWriteNotSupported(t *testing.T) {
	err := WriteNotSupported("env")
	if !errors.Is(err, engine.ErrWriteNotSupported) {
		t.Errorf("Expected ErrWriteNotSupported, got: %v", err)
	}
}
