package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/secretspec/secretspec/pkg/backend/builtin"
	"github.com/secretspec/secretspec/pkg/engine"
	"github.com/secretspec/secretspec/pkg/secrets"
	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var (
		from  string
		name  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a secretspec.toml",
		Long: `Create a secretspec.toml in the project directory.

With --from, every key found in the given backend becomes a required secret
of the default profile. Only names are copied; values stay in the source.
A bare path is read as a dotenv file.`,
		Example: `  # Start from an existing .env file
  secretspec init --from .env

  # Start empty with an explicit project name
  secretspec init --name billing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug().
				Str("path", projectPath).
				Str("from", from).
				Msg("Initializing project")

			cfg, path, err := secrets.Init(secrets.InitOptions{
				Dir:      projectPath,
				Name:     name,
				From:     from,
				Force:    force,
				Registry: builtin.NewRegistry(),
			})
			if err != nil {
				return err
			}

			result := struct {
				Path    string                `json:"path" yaml:"path"`
				Project *engine.ProjectConfig `json:"project" yaml:"project"`
			}{path, cfg}

			return writeOutput(cmd.OutOrStdout(), result, func(w io.Writer) error {
				n := len(cfg.Profiles[engine.DefaultProfile])
				_, err := fmt.Fprintf(w, "✓ Created %s for project %s with %d secrets\n", path, cfg.Name, n)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "backend URI or dotenv path to copy secret names from")
	cmd.Flags().StringVar(&name, "name", "", "project name (default: directory name)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing secretspec.toml")

	return cmd
}
