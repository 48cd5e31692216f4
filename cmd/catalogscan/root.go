package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/catalogscan/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for catalogscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogscan",
		Short: "Scrape and reconcile product catalogs",
		Long: `catalogscan scrapes product listings that a shop classifies under two
taxonomies (product type and usage), joins both views on the normalized
product name and writes one canonical table per catalog.

Catalogs are defined in a .catalogscan YAML file. Without one, the built-in
"herbal" and "equipment" catalogs are used. Run "catalogscan init" to write
an annotated copy to edit.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// newLogger builds the logger selected by the global flags. Sensitive
// request headers and cookies are always redacted. --quiet applies to text
// logs only.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	verbose := getVerboseFlag(cmd)
	quiet := getBoolFlag(cmd, "quiet")
	if verbose && quiet {
		return nil, errors.New("--verbose and --quiet cannot be used together")
	}

	format := "text"
	if f := cmd.Flag("log-format"); f != nil {
		format = f.Value.String()
	}

	switch format {
	case "json":
		return log.NewJSONLogger(w, verbose), nil
	case "text":
		if quiet {
			return log.NewQuietLogger(w), nil
		}
		return log.NewLogger(w, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
}

// getBoolFlag retrieves a boolean flag from the command or its parents.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	if f == nil {
		return false
	}
	return f.Value.String() == "true"
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
