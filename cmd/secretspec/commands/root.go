package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/secretspec/secretspec/pkg/backend"
	"github.com/secretspec/secretspec/pkg/secrets"
	"github.com/secretspec/secretspec/pkg/telemetry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	projectPath     string
	providerFlag    string
	profileFlag     string
	userConfigPath  string
	outputFormat    string
	logLevel        string
	telemetryConfig string
	metricsTextfile string

	// Set by commands that serve metrics.
	metricsListen string

	tel *telemetry.Telemetry
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	err := rootCmd.ExecuteContext(ctx)

	if tel != nil {
		if shutdownErr := tel.Shutdown(context.Background()); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
		tel = nil
	}
	return err
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secretspec",
		Short: "Declarative secrets for every environment",
		Long: `secretspec reads the secrets a project needs from secretspec.toml and
resolves their values from a pluggable backend.

Features:
  - Profiles with per-profile overrides and inheritance via extends
  - Backends: keyring, dotenv, env, sqlite, vault, onepassword
  - Typed code generation from the declared secrets
  - Policy linting with Rego`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupTelemetry(version)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&projectPath, "path", ".", "project directory or secretspec.toml file")
	flags.StringVarP(&providerFlag, "provider", "p", "", "backend URI (env: "+backend.EnvProvider+")")
	flags.StringVarP(&profileFlag, "profile", "P", "", "profile name (env: "+backend.EnvProfile+")")
	flags.StringVar(&userConfigPath, "user-config", "", "user config file (default: <config dir>/secretspec/config.toml)")
	flags.StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error (env: LOG_LEVEL)")
	flags.StringVar(&telemetryConfig, "telemetry-config", "", "YAML file with telemetry settings")
	flags.StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newGetCommand())
	rootCmd.AddCommand(newSetCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newProvidersCommand())
	rootCmd.AddCommand(newTypesCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newLintCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// setupTelemetry builds the process telemetry from flags and the optional
// telemetry config file.
func setupTelemetry(version string) error {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version

	if telemetryConfig != "" {
		data, err := os.ReadFile(telemetryConfig)
		if err != nil {
			return fmt.Errorf("failed to read telemetry config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse telemetry config %s: %w", telemetryConfig, err)
		}
	}

	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		zerolog.SetGlobalLevel(parsed)
		cfg.Logging.Level = level
	}

	if metricsTextfile != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.TextfilePath = metricsTextfile
	}
	if metricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddress = metricsListen
	}

	t, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	tel = t
	return nil
}

// loadSecrets loads the project selected by the global flags.
func loadSecrets(cmd *cobra.Command) (*secrets.Secrets, error) {
	return secrets.Load(cmd.Context(), secrets.Options{
		Path:           projectPath,
		Profile:        profileFlag,
		Provider:       providerFlag,
		UserConfigPath: userConfigPath,
		Prefetch:       true,
		Telemetry:      currentTelemetry(),
	})
}

func currentTelemetry() *telemetry.Telemetry {
	if tel == nil {
		return telemetry.NewNop()
	}
	return tel
}

// componentLogger returns a zerolog logger tagged with component.
func componentLogger(component string) zerolog.Logger {
	return currentTelemetry().Logger.NewComponentLogger(component).Zerolog()
}

// writeOutput renders v as JSON or YAML, or calls text for the text format.
func writeOutput(w io.Writer, v interface{}, text func(io.Writer) error) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return text(w)
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", outputFormat)
	}
}
