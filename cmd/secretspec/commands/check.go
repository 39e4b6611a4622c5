package commands

import (
	"fmt"
	"io"

	"github.com/secretspec/secretspec/pkg/engine"
	"github.com/secretspec/secretspec/pkg/secrets"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every required secret has a value",
		Long: `Classify every secret of the selected profile against the selected backend.

Exits non-zero when a required secret has neither a stored value nor a default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			result, err := s.Check(cmd.Context())
			if err != nil {
				return err
			}

			if err := writeOutput(cmd.OutOrStdout(), result, func(w io.Writer) error {
				return printCheck(w, result)
			}); err != nil {
				return err
			}
			return result.Report.Err()
		},
	}

	return cmd
}

// printCheck writes one line per secret. Values are never printed.
func printCheck(w io.Writer, result *secrets.CheckResult) error {
	report := result.Report
	fmt.Fprintf(w, "Project %s, profile %s, provider %s\n\n",
		report.Project, report.Profile, result.Context.ProviderURI)

	for _, st := range report.Secrets {
		mark := "✓"
		switch st.Status {
		case engine.StatusMissing:
			mark = "✗"
		case engine.StatusUnset:
			mark = "-"
		}
		line := fmt.Sprintf("%s %s (%s)", mark, st.Name, st.Status)
		if st.Description != "" {
			line += " - " + st.Description
		}
		fmt.Fprintln(w, line)
	}

	missing := report.MissingRequired()
	fmt.Fprintf(w, "\n%d secrets, %d missing required\n", len(report.Secrets), len(missing))
	return nil
}
