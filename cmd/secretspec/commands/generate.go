package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/secretspec/secretspec/pkg/codegen"
	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	var (
		lang       string
		scriptPath string
		pkg        string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed accessors for the declared secrets",
		Long: `Generate code from the derived secret types.

The built-in Go generator emits a Secrets struct whose fields are plain
strings for secrets that are mandatory in every profile and pointers
otherwise, plus one struct per profile with that profile's exact types.

A Starlark script can generate any other language. It receives the globals
project, package, profiles and secrets and sets either output (a string) or
files (a dict of file name to content).`,
		Example: `  secretspec generate --package config --out internal/config/secrets.go
  secretspec generate --script gen/typescript.star --out src/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			model, err := codegen.NewModel(pkg, s.Project().Name, s.Signatures())
			if err != nil {
				return err
			}

			var files map[string][]byte
			switch {
			case scriptPath != "":
				script, err := os.ReadFile(scriptPath)
				if err != nil {
					return fmt.Errorf("failed to read script: %w", err)
				}
				files, err = codegen.NewScriptEvaluator(codegen.DefaultScriptTimeout).
					Generate(cmd.Context(), string(script), model, "secrets.out")
				if err != nil {
					return fmt.Errorf("script %s: %w", scriptPath, err)
				}
			case lang == "go":
				src, err := codegen.GenerateGo(model)
				if err != nil {
					return err
				}
				files = map[string][]byte{"secrets.go": src}
			default:
				return fmt.Errorf("unsupported language %q (use --script for others)", lang)
			}

			return writeGenerated(cmd, files, out)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "go", "built-in generator language")
	cmd.Flags().StringVar(&scriptPath, "script", "", "Starlark generator script")
	cmd.Flags().StringVar(&pkg, "package", "secretspec", "package name for generated code")
	cmd.Flags().StringVar(&out, "out", "", "output file, or directory for multiple files (default: stdout)")

	return cmd
}

// writeGenerated writes a single file to out or stdout, and multiple files
// into the directory out.
func writeGenerated(cmd *cobra.Command, files map[string][]byte, out string) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(files) == 1 && !isDir(out) {
		content := files[names[0]]
		if out == "" {
			_, err := cmd.OutOrStdout().Write(content)
			return err
		}
		return writeFile(out, content)
	}

	if out == "" {
		out = "."
	}
	for _, name := range names {
		if filepath.IsAbs(name) || !filepath.IsLocal(name) {
			return fmt.Errorf("generated file name %q escapes the output directory", name)
		}
		if err := writeFile(filepath.Join(out, name), files[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Generated file")
	return nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
