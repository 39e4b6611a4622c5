// Package vault stores secrets in a HashiCorp Vault KV version 2 engine.
//
// All secrets of a project profile live in one KV entry at
// "secretspec/<project>/<profile>" under the configured mount, keyed by
// secret name.
package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/secretspec/secretspec/pkg/backend"
)

// Scheme is the URI scheme of this backend.
const Scheme = "vault"

// Defaults for URI options.
const (
	DefaultMount    = "secret"
	DefaultTokenEnv = "VAULT_TOKEN"
	DefaultTimeout  = 30 * time.Second
)

// Info describes the backend for registration.
var Info = backend.Info{
	Scheme:      Scheme,
	Description: "HashiCorp Vault KV v2",
	Examples: []string{
		"vault://vault.example.com:8200/secret",
		"vault://localhost:8200/kv?tls=false&token_env=DEV_VAULT_TOKEN",
	},
}

// Config holds connection settings.
type Config struct {
	// Address is the Vault base URL; empty uses VAULT_ADDR.
	Address   string
	Mount     string
	Token     string
	Namespace string
	Timeout   time.Duration
}

// Backend talks to one KV v2 mount.
type Backend struct {
	client *api.Client
	mount  string

	// serializes read-modify-write cycles from this process
	mu sync.Mutex
}

// New is the registry factory. Options: tls (default true), token_env,
// namespace, timeout (Go duration).
func New(spec backend.Spec) (backend.Backend, error) {
	cfg := Config{
		Mount:     strings.Trim(spec.Path, "/"),
		Namespace: spec.Query.Get("namespace"),
		Token:     os.Getenv(spec.Param("token_env", DefaultTokenEnv)),
	}
	if spec.Host != "" {
		scheme := "https"
		if spec.Param("tls", "true") == "false" {
			scheme = "http"
		}
		cfg.Address = scheme + "://" + spec.Host
	}
	if v := spec.Query.Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a backend from explicit settings.
func NewWithConfig(cfg Config) (*Backend, error) {
	if cfg.Mount == "" {
		cfg.Mount = DefaultMount
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", apiCfg.Error)
	}
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	apiCfg.Timeout = cfg.Timeout
	apiCfg.MaxRetries = 0

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return &Backend{client: client, mount: cfg.Mount}, nil
}

// SecretPath returns the KV path holding a project profile.
func SecretPath(project, profile string) string {
	return "secretspec/" + project + "/" + profile
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return Scheme }

// AllowsWrite implements backend.Backend.
func (b *Backend) AllowsWrite() bool { return true }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

// Get implements backend.Backend.
func (b *Backend) Get(ctx context.Context, project, profile, key string) (string, bool, error) {
	data, err := b.read(ctx, project, profile)
	if err != nil {
		return "", false, err
	}
	raw, ok := data[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return fmt.Sprint(raw), true, nil
	}
	return s, true, nil
}

// Set implements backend.Backend. Other keys of the profile entry are kept.
func (b *Backend) Set(ctx context.Context, project, profile, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.read(ctx, project, profile)
	if err != nil {
		return err
	}
	data[key] = value

	if _, err := b.client.KVv2(b.mount).Put(ctx, SecretPath(project, profile), data); err != nil {
		return backend.Failed(Scheme, "set", describe(err))
	}
	return nil
}

// read returns the profile entry, empty when it does not exist.
func (b *Backend) read(ctx context.Context, project, profile string) (map[string]interface{}, error) {
	secret, err := b.client.KVv2(b.mount).Get(ctx, SecretPath(project, profile))
	if err != nil {
		if isNotFound(err) {
			return make(map[string]interface{}), nil
		}
		return nil, backend.Failed(Scheme, "get", describe(err))
	}
	data := make(map[string]interface{}, len(secret.Data))
	for k, v := range secret.Data {
		data[k] = v
	}
	return data, nil
}

func isNotFound(err error) bool {
	if errors.Is(err, api.ErrSecretNotFound) {
		return true
	}
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// describe adds a hint for common HTTP failures.
func describe(err error) error {
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("permission denied (check the token): %w", err)
		case http.StatusBadRequest:
			if strings.Contains(strings.Join(apiErr.Errors, ","), "no matching mount") {
				return fmt.Errorf("mount not found: %w", err)
			}
		}
	}
	return err
}
