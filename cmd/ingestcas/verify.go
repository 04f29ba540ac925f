package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errVerifyFailed is returned when the audit found inconsistencies.
var errVerifyFailed = errors.New("store verification found problems")

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit stored files and manifests",
		Long: `Verify re-hashes every stored file with the algorithm named in its
manifest and checks that the digest matches both the manifest and the
content directory. Every file and page manifest is also validated against
its JSON schema.

Examples:
  # Audit the whole store
  ingestcas verify

  # Audit one data source of a specific store
  ingestcas verify --cas-root ./cas_storage --source demo_files`,
		Args: cobra.NoArgs,
		RunE: runVerifyCmd,
	}

	addConfigFlag(cmd)
	cmd.Flags().String("cas-root", "",
		"Root directory of the content-addressable store (default: XDG data directory)")
	cmd.Flags().StringP("source", "s", "", "Only audit this data source")

	return cmd
}

// runVerifyCmd executes the verify command.
func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	source, err := cmd.Flags().GetString("source")
	if err != nil {
		return err
	}

	store, err := newStore(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	logger.Info("verifying store", "root", store.Root(), "source", source)
	rep, err := store.Verify(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", store.Root(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verified %s\n", store.Root())
	fmt.Fprintf(out, "  data sources:   %d\n", len(rep.Sources))
	fmt.Fprintf(out, "  files:          %d\n", rep.FilesChecked)
	fmt.Fprintf(out, "  page manifests: %d\n", rep.PageManifestsChecked)

	if rep.OK() {
		fmt.Fprintln(out, "\nNo problems found.")
		return nil
	}

	fmt.Fprintf(out, "\n%d problem(s):\n", len(rep.Problems))
	for _, p := range rep.Problems {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	return errVerifyFailed
}
