package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FROM",
		Short: "Copy secret values from another backend",
		Long: `Copy the values of the selected profile's secrets from the backend at FROM
into the selected backend. Values that already exist are left alone.`,
		Example: `  secretspec import dotenv://.env
  secretspec import env:// -p keyring://`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			result, err := s.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), result, func(w io.Writer) error {
				fmt.Fprintf(w, "Imported: %d\n", len(result.Imported))
				for _, name := range result.Imported {
					fmt.Fprintf(w, "  ✓ %s\n", name)
				}
				if len(result.Skipped) > 0 {
					fmt.Fprintf(w, "Already set: %s\n", strings.Join(result.Skipped, ", "))
				}
				if len(result.NotFound) > 0 {
					fmt.Fprintf(w, "Not found in source: %s\n", strings.Join(result.NotFound, ", "))
				}
				return nil
			})
		},
	}

	return cmd
}
