package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ingestcas.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingestcas",
		Short: "Ingest files, web pages and API data into a content-addressable store",
		Long: `ingestcas acquires remote data into a content-addressable store (CAS).

Downloaded files are stored under their content hash next to a JSON
provenance manifest. Scraped web pages produce a manifest with their
canonical URL and outgoing links. JSON APIs are polled and a configured
field is extracted. Every run is recorded in a local history database.

Sources are declared in a YAML file; create one with 'ingestcas init'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewDownloadCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewAPICmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
