// Package sqlite stores secrets in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/secretspec/secretspec/pkg/backend"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Scheme is the URI scheme of this backend.
const Scheme = "sqlite"

// DefaultPath is used for sqlite:// with no path.
const DefaultPath = "secretspec.db"

// Info describes the backend for registration.
var Info = backend.Info{
	Scheme:      Scheme,
	Description: "Local SQLite database",
	Examples:    []string{"sqlite://secrets.db", "sqlite:///var/lib/app/secrets.db?busy_timeout=10000"},
	PathOnly:    true,
}

// Config holds SQLite store configuration.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Store implements backend.Backend on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database file if needed and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New is the registry factory.
func New(spec backend.Spec) (backend.Backend, error) {
	cfg := Config{Path: spec.Path}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if v := spec.Query.Get("busy_timeout"); v != "" {
		var ms int
		if _, err := fmt.Sscanf(v, "%d", &ms); err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid busy_timeout %q", v)
		}
		cfg.BusyTimeout = time.Duration(ms) * time.Millisecond
	}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// migrate runs the embedded migrations.
func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return Scheme }

// AllowsWrite implements backend.Backend.
func (s *Store) AllowsWrite() bool { return true }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get implements backend.Backend.
func (s *Store) Get(ctx context.Context, project, profile, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM secrets
		WHERE project = ? AND profile = ? AND name = ?
	`

	var value string
	err := s.db.QueryRowContext(ctx, query, project, profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, backend.Failed(Scheme, "get", err)
	}
	return value, true, nil
}

// Set implements backend.Backend.
func (s *Store) Set(ctx context.Context, project, profile, key, value string) error {
	query := `
		INSERT INTO secrets (project, profile, name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, profile, name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, project, profile, key, value, now, now); err != nil {
		return backend.Failed(Scheme, "set", err)
	}
	return nil
}
