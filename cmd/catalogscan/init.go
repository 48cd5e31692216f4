package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/catalogscan/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated catalog file",
		Long: `Init writes a .catalogscan catalog file to the current directory.

The file holds the built-in catalogs with every option documented:
- Request identity (user agent, cookie, headers)
- Extraction rule of the listing template
- Category listings of each taxonomy with page counts
- Exclusion keywords, precedence and grouping

Examples:
  # Create .catalogscan in current directory
  catalogscan init

  # Create the catalog file at a specific path
  catalogscan init -o catalogs.yaml

  # Force overwrite existing file
  catalogscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the catalog file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing catalog file")

	return cmd
}

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
			return fmt.Errorf("catalog file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, config.Template, 0600); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created catalog file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to define your catalogs:")
	fmt.Fprintln(out, "  - Category listings and page counts per taxonomy")
	fmt.Fprintln(out, "  - Keywords excluded before reconciliation")
	fmt.Fprintln(out, "  - Request headers and cookies")

	return nil
}
