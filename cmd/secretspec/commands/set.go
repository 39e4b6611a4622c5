package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set NAME [VALUE]",
		Short: "Store the value of a secret",
		Long: `Store the value of a declared secret in the selected backend.

When VALUE is omitted it is read from standard input, so values need not
appear in shell history. One trailing newline is dropped.`,
		Example: `  secretspec set DATABASE_URL postgres://localhost/app
  printf %s "$TOKEN" | secretspec set API_TOKEN`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			name := args[0]
			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read value: %w", err)
				}
				value = strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
			}

			if err := s.Set(cmd.Context(), name, value); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "✓ Stored %s in %s (profile %s)\n",
				name, s.Context().ProviderURI, s.Context().Profile)
			return err
		},
	}

	return cmd
}
