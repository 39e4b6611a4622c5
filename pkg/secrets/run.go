package secrets

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Environ returns base with every available secret of the selected profile
// added or replaced. It fails with MISSING_REQUIRED_SECRET when a required
// secret has no value.
func (s *Secrets) Environ(ctx context.Context, base []string) ([]string, error) {
	result, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}
	if err := result.Report.Err(); err != nil {
		return nil, err
	}
	return mergeEnv(base, result.Report.Values()), nil
}

// Stdio are the streams handed to a child process.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes argv with the secrets of the selected profile in its
// environment. The child's exit status is returned as *exec.ExitError.
func (s *Secrets) Run(ctx context.Context, argv []string, stdio Stdio) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command given")
	}

	env, err := s.Environ(ctx, os.Environ())
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr

	s.logger.Debug().
		Str("command", argv[0]).
		Int("secrets", len(env)-len(os.Environ())).
		Msg("Running command")

	return cmd.Run()
}

// mergeEnv overlays values onto base. Later entries win in exec, but
// replacing in place keeps the result free of duplicates.
func mergeEnv(base []string, values map[string]string) []string {
	out := make([]string, 0, len(base)+len(values))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := values[name]; ok {
			continue
		}
		out = append(out, kv)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, name+"="+values[name])
	}
	return out
}
