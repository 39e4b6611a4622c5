// Package onepassword stores secrets in 1Password through the op CLI.
//
// Items are titled "<project>/<key>" and live in the vault named after the
// profile, falling back to the vault from the URI and then "Private".
package onepassword

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/secretspec/secretspec/pkg/backend"
)

// Scheme is the URI scheme of this backend.
const Scheme = "onepassword"

// DefaultVault is used when neither profile nor URI names a vault.
const DefaultVault = "Private"

// Info describes the backend for registration.
var Info = backend.Info{
	Scheme:      Scheme,
	Description: "1Password via the op CLI",
	Examples:    []string{"onepassword://Private", "onepassword://work@Engineering"},
}

// Runner executes the op CLI and returns stdout.
type Runner func(ctx context.Context, env []string, args ...string) ([]byte, error)

// Config holds CLI settings.
type Config struct {
	Account      string
	DefaultVault string
	// ServiceAccountToken is passed as OP_SERVICE_ACCOUNT_TOKEN.
	ServiceAccountToken string
}

// Backend shells out to op.
type Backend struct {
	cfg Config
	run Runner
}

// New is the registry factory. The URI authority is [account@]vault, and a
// token_env option names the variable holding a service account token.
func New(spec backend.Spec) (backend.Backend, error) {
	cfg := Config{
		Account:      spec.User,
		DefaultVault: spec.Host,
	}
	if name := spec.Query.Get("token_env"); name != "" {
		cfg.ServiceAccountToken = os.Getenv(name)
	}
	return NewWithRunner(cfg, execRunner), nil
}

// NewWithRunner creates a backend with a custom command runner.
func NewWithRunner(cfg Config, run Runner) *Backend {
	return &Backend{cfg: cfg, run: run}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return Scheme }

// AllowsWrite implements backend.Backend.
func (b *Backend) AllowsWrite() bool { return true }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

type item struct {
	Fields []field `json:"fields"`
}

type field struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

type itemTemplate struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Vault    string   `json:"vault,omitempty"`
	Fields   []field  `json:"fields"`
	Tags     []string `json:"tags"`
}

// Get implements backend.Backend. The "value" field is preferred, then the
// first concealed field.
func (b *Backend) Get(ctx context.Context, project, profile, key string) (string, bool, error) {
	out, err := b.op(ctx, "item", "get", ItemTitle(project, key),
		"--vault", b.vault(profile), "--format", "json")
	if err != nil {
		if strings.Contains(err.Error(), "isn't an item") {
			return "", false, nil
		}
		return "", false, backend.Failed(Scheme, "get", err)
	}

	var it item
	if err := json.Unmarshal(out, &it); err != nil {
		return "", false, backend.Failed(Scheme, "get", fmt.Errorf("decode item: %w", err))
	}
	for _, f := range it.Fields {
		if f.Label == "value" {
			return f.Value, true, nil
		}
	}
	for _, f := range it.Fields {
		if f.Type == "CONCEALED" || f.ID == "password" {
			return f.Value, true, nil
		}
	}
	return "", false, nil
}

// Set implements backend.Backend. Existing items are edited in place,
// otherwise a secure note is created from a template on stdin.
func (b *Backend) Set(ctx context.Context, project, profile, key, value string) error {
	vault := b.vault(profile)
	title := ItemTitle(project, key)

	_, found, err := b.Get(ctx, project, profile, key)
	if err != nil {
		return err
	}
	if found {
		if _, err := b.op(ctx, "item", "edit", title, "--vault", vault, "value="+value); err != nil {
			return backend.Failed(Scheme, "set", err)
		}
		return nil
	}

	tmpl := itemTemplate{
		Title:    title,
		Category: "SECURE_NOTE",
		Vault:    vault,
		Fields: []field{
			{Type: "STRING", Label: "project", Value: project},
			{Type: "STRING", Label: "key", Value: key},
			{Type: "CONCEALED", Label: "value", Value: value},
		},
		Tags: []string{"secretspec", project},
	}
	data, err := json.Marshal(tmpl)
	if err != nil {
		return backend.Failed(Scheme, "set", err)
	}

	f, err := os.CreateTemp("", "secretspec-op-*.json")
	if err != nil {
		return backend.Failed(Scheme, "set", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return backend.Failed(Scheme, "set", err)
	}
	if err := f.Close(); err != nil {
		return backend.Failed(Scheme, "set", err)
	}

	if _, err := b.op(ctx, "item", "create", "--template", f.Name()); err != nil {
		return backend.Failed(Scheme, "set", err)
	}
	return nil
}

// ItemTitle returns the 1Password item title for a secret.
func ItemTitle(project, key string) string {
	return project + "/" + key
}

func (b *Backend) vault(profile string) string {
	if profile != "" {
		return profile
	}
	if b.cfg.DefaultVault != "" {
		return b.cfg.DefaultVault
	}
	return DefaultVault
}

func (b *Backend) op(ctx context.Context, args ...string) ([]byte, error) {
	if b.cfg.Account != "" {
		args = append([]string{"--account", b.cfg.Account}, args...)
	}
	var env []string
	if b.cfg.ServiceAccountToken != "" {
		env = append(env, "OP_SERVICE_ACCOUNT_TOKEN="+b.cfg.ServiceAccountToken)
	}
	return b.run(ctx, env, args...)
}

// execRunner runs the real op binary.
func execRunner(ctx context.Context, env []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "op", args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, errors.New("1Password CLI (op) is not installed; see https://1password.com/downloads/command-line/")
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "not currently signed in") {
			return nil, errors.New("1Password authentication required; run 'op signin' first")
		}
		if msg == "" {
			return nil, err
		}
		return nil, errors.New(msg)
	}
	return stdout.Bytes(), nil
}
