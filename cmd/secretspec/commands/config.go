package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/secretspec/secretspec/pkg/backend/builtin"
	"github.com/secretspec/secretspec/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user configuration",
		Long: `Manage the per-user configuration file.

The user configuration names the default provider and profile, globally and
per project. Flags and environment variables still take precedence.`,
	}

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Record default provider and profile",
		Example: `  # Use the system keychain everywhere
  secretspec config init -p keyring://

  # Use a dotenv file and the dev profile for one project
  secretspec config init --project billing -p dotenv://.env -P dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerFlag == "" && profileFlag == "" {
				return fmt.Errorf("nothing to record: pass --provider and/or --profile")
			}
			if providerFlag != "" {
				if _, err := builtin.NewRegistry().ParseURI(providerFlag); err != nil {
					return err
				}
			}

			path, cfg, err := readUserConfig(cmd.Context())
			if err != nil {
				return err
			}

			defaults := config.UserDefaults{Provider: providerFlag, Profile: profileFlag}
			if project != "" {
				cfg.SetProjectDefaults(project, defaults)
			} else {
				cfg.Defaults = defaults
			}

			if err := config.SaveUserConfig(path, cfg); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "record defaults for this project only")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the user configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg, err := readUserConfig(cmd.Context())
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), cfg, func(w io.Writer) error {
				data, err := toml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to encode user config: %w", err)
				}
				fmt.Fprintf(w, "# %s\n", path)
				_, err = w.Write(data)
				return err
			})
		},
	}

	return cmd
}

// readUserConfig loads the user config from --user-config or the default
// location.
func readUserConfig(ctx context.Context) (string, *config.UserConfig, error) {
	path := userConfigPath
	if path == "" {
		p, err := config.DefaultUserConfigPath()
		if err != nil {
			return "", nil, err
		}
		path = p
	}

	cfg, err := config.LoadUserConfig(ctx, path)
	if err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}
