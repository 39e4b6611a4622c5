package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/engine"
)

const versionMetadata = `{"created_time":"2018-03-22T02:24:06.945319214Z","custom_metadata":null,"deletion_time":"","destroyed":false,"version":1}`

// fakeKV is a minimal KV v2 server keyed by request path.
type fakeKV struct {
	mu      sync.Mutex
	entries map[string]map[string]interface{}
	token   string
	status  int
}

func newFakeKV(t *testing.T, token string) (*fakeKV, *httptest.Server) {
	t.Helper()
	kv := &fakeKV{entries: make(map[string]map[string]interface{}), token: token}
	srv := httptest.NewServer(kv)
	t.Cleanup(srv.Close)
	return kv, srv
}

func (f *fakeKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"errors":["forced failure"]}`))
		return
	}
	if r.Header.Get("X-Vault-Token") != f.token {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := f.entries[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := json.Marshal(data)
		_, _ = w.Write([]byte(`{"data":{"data":` + string(body) + `,"metadata":` + versionMetadata + `}}`))

	case http.MethodPut, http.MethodPost:
		var req struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.entries[r.URL.Path] = req.Data
		_, _ = w.Write([]byte(`{"data":` + versionMetadata + `}`))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeKV) entry(path string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[path]
}

func newTestBackend(t *testing.T, srv *httptest.Server, token string) *Backend {
	t.Helper()
	b, err := NewWithConfig(Config{Address: srv.URL, Token: token, Mount: "kv"})
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	return b
}

func TestBackend_GetSet(t *testing.T) {
	kv, srv := newFakeKV(t, "root")
	b := newTestBackend(t, srv, "root")
	ctx := context.Background()

	if _, ok, err := b.Get(ctx, "app", "default", "API_KEY"); err != nil || ok {
		t.Fatalf("Expected not found, got (%v, %v)", ok, err)
	}

	if err := b.Set(ctx, "app", "default", "API_KEY", "k1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "app", "default", "DATABASE_URL", "postgres://db"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok, err := b.Get(ctx, "app", "default", "API_KEY")
	if err != nil || !ok || v != "k1" {
		t.Errorf("Expected k1, got (%q, %v, %v)", v, ok, err)
	}

	stored := kv.entry("/v1/kv/data/secretspec/app/default")
	if stored["API_KEY"] != "k1" || stored["DATABASE_URL"] != "postgres://db" {
		t.Errorf("Expected both keys in one entry, got %v", stored)
	}

	if _, ok, _ := b.Get(ctx, "app", "production", "API_KEY"); ok {
		t.Error("Expected production profile to be isolated")
	}
}

func TestBackend_PermissionDenied(t *testing.T) {
	_, srv := newFakeKV(t, "root")
	b := newTestBackend(t, srv, "wrong")

	_, _, err := b.Get(context.Background(), "app", "default", "API_KEY")
	if !engine.IsBackend(err) {
		t.Fatalf("Expected backend error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected permission hint, got: %v", err)
	}
}

func TestBackend_ServerError(t *testing.T) {
	kv, srv := newFakeKV(t, "root")
	kv.status = http.StatusInternalServerError
	b := newTestBackend(t, srv, "root")

	err := b.Set(context.Background(), "app", "default", "API_KEY", "v")
	if !errors.Is(err, &engine.EngineError{Code: engine.ErrCodeBackendFailed}) {
		t.Errorf("Expected BACKEND_FAILED, got: %v", err)
	}
}

func TestNew_FromSpec(t *testing.T) {
	kv, srv := newFakeKV(t, "from-env")
	t.Setenv("TEST_VAULT_TOKEN", "from-env")

	host := strings.TrimPrefix(srv.URL, "http://")
	b, err := New(backend.Spec{
		Scheme: Scheme,
		Host:   host,
		Path:   "/secret",
		Query:  map[string][]string{"tls": {"false"}, "token_env": {"TEST_VAULT_TOKEN"}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := b.Set(context.Background(), "app", "default", "KEY", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if kv.entry("/v1/secret/data/secretspec/app/default")["KEY"] != "v" {
		t.Error("Expected write under the secret mount")
	}

	if _, err := New(backend.Spec{Scheme: Scheme, Query: map[string][]string{"timeout": {"soon"}}}); err == nil {
		t.Error("Expected invalid timeout to fail")
	}
}
