package commands

import (
	"fmt"
	"io"

	"github.com/secretspec/secretspec/pkg/policy"
	"github.com/spf13/cobra"
)

func newLintCommand() *cobra.Command {
	var (
		policyPaths []string
		disabled    []string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the specification against policies",
		Long: `Evaluate the resolved specification against the built-in Rego policies
and any policy files given with --policy. Exits non-zero when a policy
reports an error-severity violation.

Built-in policies:
  - required-with-default  required secret that also has a default
  - missing-description    secret without a description
  - secret-naming          name that is not upper snake case
  - profile-only-secret    secret missing from the default profile`,
		Example: `  secretspec lint
  secretspec lint --policy policies/ --disable secret-naming`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			eng, err := newPolicyEngine(cmd, policyPaths, disabled)
			if err != nil {
				return err
			}

			result, err := eng.Evaluate(cmd.Context(), policy.BuildInput(s.Order()))
			if err != nil {
				return err
			}

			if err := writeOutput(cmd.OutOrStdout(), result, func(w io.Writer) error {
				return printLint(w, result)
			}); err != nil {
				return err
			}

			if !result.Passed() {
				return fmt.Errorf("lint failed with %d errors", result.Count(policy.SeverityError))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "policy file or directory (repeatable)")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "policy to skip (repeatable)")

	return cmd
}

func newPolicyEngine(cmd *cobra.Command, paths, disabled []string) (*policy.Engine, error) {
	eng, err := policy.NewEngine(componentLogger("lint"))
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		if err := eng.LoadPolicies(cmd.Context(), paths); err != nil {
			return nil, err
		}
	}
	for _, name := range disabled {
		if err := eng.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func printLint(w io.Writer, result *policy.Result) error {
	if len(result.Violations) == 0 {
		fmt.Fprintf(w, "✓ %d policies passed\n", len(result.EvaluatedPolicies))
		return nil
	}

	for _, v := range result.Violations {
		subject := v.Secret
		if v.Profile != "" {
			subject += "@" + v.Profile
		}
		if subject != "" {
			subject = " " + subject
		}
		fmt.Fprintf(w, "%-7s [%s]%s: %s\n", v.Severity, v.Policy, subject, v.Message)
	}

	fmt.Fprintf(w, "\n%d errors, %d warnings, %d info\n",
		result.Count(policy.SeverityError),
		result.Count(policy.SeverityWarning),
		result.Count(policy.SeverityInfo))
	return nil
}
