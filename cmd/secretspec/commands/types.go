package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/secretspec/secretspec/pkg/engine"
	"github.com/spf13/cobra"
)

func newTypesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Show the derived type of every secret",
		Long: `Show whether each secret is mandatory or optional, per profile and across
all profiles. The union column is what generated code exposes when the
profile is only known at run time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			sigs := s.Signatures()
			return writeOutput(cmd.OutOrStdout(), sigs, func(w io.Writer) error {
				return printSignatures(w, sigs)
			})
		},
	}

	return cmd
}

func printSignatures(w io.Writer, sigs *engine.SignatureSet) error {
	fmt.Fprintf(w, "Profiles: %s\n\n", strings.Join(sigs.Profiles, ", "))

	for _, sig := range sigs.Secrets {
		parts := make([]string, 0, len(sigs.Profiles))
		for _, profile := range sigs.Profiles {
			ps := sig.Profiles[profile]
			if ps.Absent {
				parts = append(parts, profile+"=absent")
				continue
			}
			parts = append(parts, profile+"="+string(ps.Presence))
		}
		fmt.Fprintf(w, "%s: %s [%s]\n", sig.Name, sig.Union, strings.Join(parts, " "))
	}
	return nil
}
