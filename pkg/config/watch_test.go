package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secretspec.toml")
	if err := os.WriteFile(path, []byte(validFragment), 0o644); err != nil {
		t.Fatalf("Failed to write fragment: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 4)
	w := NewWatcher(zerolog.Nop(), 20*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, []string{path}, func(context.Context) ([]string, error) {
			reloaded <- struct{}{}
			return []string{path}, nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	select {
	case <-reloaded:
		t.Fatal("Expected no reload for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(validFragment+"\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite fragment: %v", err)
	}
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected reload after fragment change")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher did not stop")
	}
}

func TestWatcher_SerializesSlowReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secretspec.toml")
	if err := os.WriteFile(path, []byte(validFragment), 0o644); err != nil {
		t.Fatalf("Failed to write fragment: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls, active, maxActive atomic.Int32
	reload := func(context.Context) ([]string, error) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(300 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
		return []string{path}, nil
	}

	w := NewWatcher(zerolog.Nop(), 20*time.Millisecond)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, []string{path}, reload)
	}()

	time.Sleep(100 * time.Millisecond)

	// The second write lands while the first reload is still sleeping.
	for i := 0; i < 2; i++ {
		if err := os.WriteFile(path, []byte(validFragment+"\n# edit\n"), 0o644); err != nil {
			t.Fatalf("Failed to rewrite fragment: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatalf("Expected a reload for each write, got %d", calls.Load())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher did not stop")
	}

	if got := active.Load(); got != 0 {
		t.Errorf("Expected no reload running after Run returned, got %d", got)
	}
	if got := maxActive.Load(); got != 1 {
		t.Errorf("Expected reloads to run one at a time, got %d concurrent", got)
	}
}
