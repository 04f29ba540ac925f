package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/ingestcas/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/ingestcas.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sources file from a commented template",
		Long: `Init writes a .ingestcas.yaml sources file in the current directory.

The generated file includes:
- The storage section (CAS root and hash algorithm)
- One example entry for each source category
- Commented examples for per-host request headers

Examples:
  # Create .ingestcas.yaml in current directory
  ingestcas init

  # Create the sources file at a specific path
  ingestcas init -o sources/nightly.yaml

  # Force overwrite existing file
  ingestcas init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the sources file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing sources file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("sources file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/ingestcas.yaml")
	if err != nil {
		return fmt.Errorf("failed to read sources template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write sources file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created sources file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to declare:")
	fmt.Fprintln(out, "  - Files to download into the store")
	fmt.Fprintln(out, "  - Web pages to scrape for links")
	fmt.Fprintln(out, "  - JSON APIs to poll")
	fmt.Fprintf(out, "\nThen run: ingestcas run -c %s\n", outputPath)

	return nil
}
