package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/ingestcas/internal/config"
	"github.com/nao1215/ingestcas/internal/database"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs and their results",
		Long: `History lists the most recent runs recorded in the history database.
Given a run ID it lists every result recorded for that run.

Examples:
  # List the last 20 runs
  ingestcas history

  # Show the results of one run
  ingestcas history 3f1c2d4e-...

  # Output JSON
  ingestcas history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit, "Maximum number of runs to list")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if asJSON {
			return writeJSON(out, runs)
		}
		printRuns(out, runs)
		return nil
	}

	run, err := db.GetRun(ctx, args[0])
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("%w: %s (use 'ingestcas history' to list runs)", err, args[0])
		}
		return err
	}
	results, err := db.ListResults(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if asJSON {
		return writeJSON(out, struct {
			Run     *database.Run           `json:"run"`
			Results []database.ResultRecord `json:"results"`
		}{run, results})
	}
	printRunResults(out, run, results)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRuns writes the run list as a table.
func printRuns(w io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		fmt.Fprintln(w, "\nUse 'ingestcas run' to ingest the sources file.")
		return
	}

	fmt.Fprintf(w, "  %-36s  %-20s  %-22s  %-7s  %s\n", "Run ID", "Started", "Status", "Results", "Flow")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Fprintf(w, "  %-36s  %-20s  %-22s  %-7d  %s\n",
			run.ID,
			formatTime(run.StartedAt),
			run.Status,
			run.ResultCount,
			run.FlowName,
		)
	}
	fmt.Fprintln(w, "\nUse 'ingestcas history <run-id>' to list the results of a run.")
}

// printRunResults writes one run and its results.
func printRunResults(w io.Writer, run *database.Run, results []database.ResultRecord) {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.FlowName)
	fmt.Fprintf(w, "  status:   %s\n", run.Status)
	fmt.Fprintf(w, "  started:  %s\n", formatTime(run.StartedAt))
	fmt.Fprintf(w, "  finished: %s\n", formatTime(run.FinishedAt))
	if run.ConfigPath != "" {
		fmt.Fprintf(w, "  config:   %s\n", run.ConfigPath)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "\nNo results recorded.")
		return
	}

	fmt.Fprintf(w, "\n  %-6s  %-22s  %-16s  %s\n", "Kind", "Status", "Data Source", "URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 90))
	for _, r := range results {
		fmt.Fprintf(w, "  %-6s  %-22s  %-16s  %s\n", r.Kind, r.Status, r.DataSource, r.URL)
		switch {
		case r.ErrorMessage != "":
			fmt.Fprintf(w, "          %s\n", truncate(r.ErrorMessage, 160))
		case r.StoragePath != "":
			fmt.Fprintf(w, "          %s\n", r.StoragePath)
		case r.ManifestPath != "":
			fmt.Fprintf(w, "          %s\n", r.ManifestPath)
		}
	}
}

// formatTime formats t for tables, or "-" when zero.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
