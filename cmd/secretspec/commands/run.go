package commands

import (
	"github.com/secretspec/secretspec/pkg/secrets"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -- COMMAND [ARGS...]",
		Short: "Run a command with secrets in its environment",
		Long: `Run a command with every satisfied or defaulted secret of the selected
profile exported as an environment variable.

The command does not start when a required secret is missing. Its exit
status becomes the exit status of secretspec.`,
		Example: `  secretspec run -- npm start
  secretspec run -P production -- ./migrate up`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			return s.Run(cmd.Context(), args, secrets.Stdio{
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}

	// Flags after the command name belong to the command.
	cmd.Flags().SetInterspersed(false)

	return cmd
}
