package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/secretspec/secretspec/pkg/config"
	"github.com/secretspec/secretspec/pkg/policy"
	"github.com/secretspec/secretspec/pkg/secrets"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var (
		delay       time.Duration
		policyPaths []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check whenever the specification changes",
		Long: `Watch every fragment of the extends graph, and any --policy files, and
re-run check (and lint when policies are given) after each change.

Fragments added or dropped by an edit to extends are picked up. With
--metrics-listen, Prometheus metrics are served while watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := componentLogger("watch")

			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			if metricsListen != "" {
				t := currentTelemetry()
				go func() {
					if err := t.Metrics.ServeMetrics(ctx, t.Logger); err != nil {
						logger.Error().Err(err).Msg("Metrics server failed")
					}
				}()
			}

			w := cmd.OutOrStdout()
			runPass(ctx, w, s, policyPaths)

			reload := func(ctx context.Context) ([]string, error) {
				fmt.Fprintf(w, "\n--- %s\n", time.Now().Format(time.RFC3339))
				if err := s.Reload(ctx); err != nil {
					fmt.Fprintf(w, "✗ %v\n", err)
					// Keep watching the previous graph so a fix is noticed.
					return nil, nil
				}
				runPass(ctx, w, s, policyPaths)
				return watchedFiles(s, policyPaths), nil
			}

			return config.NewWatcher(logger, delay).Run(ctx, watchedFiles(s, policyPaths), reload)
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", config.DefaultWatchDelay, "quiet period before re-checking")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "policy file or directory to lint with (repeatable)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

// runPass prints a check, and a lint when policies are configured. Failures
// are printed rather than returned so watching continues.
func runPass(ctx context.Context, w io.Writer, s *secrets.Secrets, policyPaths []string) {
	result, err := s.Check(ctx)
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return
	}
	_ = printCheck(w, result)

	if len(policyPaths) == 0 {
		return
	}
	eng, err := policy.NewEngine(componentLogger("lint"))
	if err == nil {
		err = eng.LoadPolicies(ctx, policyPaths)
	}
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return
	}
	lint, err := eng.Evaluate(ctx, policy.BuildInput(s.Order()))
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return
	}
	fmt.Fprintln(w)
	_ = printLint(w, lint)
}

// watchedFiles returns the fragment files plus every policy file below
// policyPaths.
func watchedFiles(s *secrets.Secrets, policyPaths []string) []string {
	files := s.Files()
	for _, p := range policyPaths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() && policy.IsPolicyFile(path) {
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}
