package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/ingestcas/internal/apifetch"
	"github.com/nao1215/ingestcas/internal/cas"
	"github.com/nao1215/ingestcas/internal/config"
	"github.com/nao1215/ingestcas/internal/crawler"
	"github.com/nao1215/ingestcas/internal/database"
	"github.com/nao1215/ingestcas/internal/log"
	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/pipeline"
	"github.com/nao1215/ingestcas/internal/report"
	"github.com/nao1215/ingestcas/internal/transport"
)

// errUnitsFailed makes the process exit non-zero when a run finished with
// failed units. The summary has already been printed.
var errUnitsFailed = errors.New("one or more units failed")

// addConfigFlag registers the sources file flag.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Sources file path (default: .ingestcas.yaml in current directory, then the XDG config directory)")
}

// addStoreFlags registers the flags that locate the store.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("cas-root", "",
		"Root directory of the content-addressable store (default: XDG data directory)")
	cmd.Flags().String("hash", "",
		"Content hash algorithm: sha256, blake2b-256 or blake3")
}

// addCommonFlags registers the flags shared by every acquiring command.
func addCommonFlags(cmd *cobra.Command) {
	addConfigFlag(cmd)
	addStoreFlags(cmd)

	cmd.Flags().DurationP("timeout", "t", config.DefaultFileTimeout,
		"Timeout for each file download")
	cmd.Flags().Duration("page-timeout", config.DefaultPageTimeout,
		"Timeout for each page fetch and API request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header for HTTP requests")
	cmd.Flags().Int64("max-file-size", 0,
		"Maximum size of a downloaded file in bytes (0 = unlimited)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of units processed concurrently")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryAttempts,
		"Total attempts per unit for transient failures (1 = no retry)")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff,
		"Delay before the first retry; doubles for each further retry")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().String("report-dir", "",
		"Write one report artifact per result and for the run into this directory")
	cmd.Flags().String("report-format", "markdown",
		"Report artifact format: markdown or json")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON")
}

// globalBool reads a persistent flag from the root command.
func globalBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the secure structured logger writing to stderr.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	w := cmd.ErrOrStderr()
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// buildConfig creates a Config from defaults, the sources file, .env and
// the process environment, and finally the flags that were set on cmd.
//
// If the user named a sources file that does not exist, an error is
// returned; a missing default file is not an error.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = globalBool(cmd, "verbose")
	cfg.LogJSON = globalBool(cmd, "log-json")

	explicitPath, err := stringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	if configPath := config.FindConfigFile(explicitPath); configPath != "" {
		sources, err := config.LoadSourcesFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplyFile(configPath, sources)
	} else if explicitPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
	}

	dotenv, err := config.ReadEnvFile(config.DefaultEnvFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(config.EnvLookup(dotenv))

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every flag the user set on cmd into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	for name, dst := range map[string]*string{
		"cas-root":      &cfg.CASRoot,
		"hash":          &cfg.HashAlgorithm,
		"proxy":         &cfg.ProxyAddress,
		"user-agent":    &cfg.UserAgent,
		"db-dir":        &cfg.DBDir,
		"report-dir":    &cfg.ReportDir,
		"report-format": &cfg.ReportFormat,
	} {
		if changed(name) {
			if *dst, err = flags.GetString(name); err != nil {
				return err
			}
		}
	}
	if changed("timeout") {
		if cfg.FileTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if changed("page-timeout") {
		if cfg.PageTimeout, err = flags.GetDuration("page-timeout"); err != nil {
			return err
		}
		cfg.APITimeout = cfg.PageTimeout
	}
	if changed("retry-backoff") {
		if cfg.RetryBackoff, err = flags.GetDuration("retry-backoff"); err != nil {
			return err
		}
	}
	if changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return err
		}
	}
	if changed("retries") {
		if cfg.RetryAttempts, err = flags.GetInt("retries"); err != nil {
			return err
		}
	}
	if changed("max-file-size") {
		if cfg.MaxFileSize, err = flags.GetInt64("max-file-size"); err != nil {
			return err
		}
	}
	if changed("no-history") {
		noHistory, err := flags.GetBool("no-history")
		if err != nil {
			return err
		}
		cfg.SaveHistory = !noHistory
	}
	return nil
}

// stringFlag returns the flag value, or "" when cmd has no such flag.
func stringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	return cmd.Flags().GetString(name)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// newStore opens the store described by cfg.
func newStore(cfg *config.Config, client *http.Client) (*cas.Store, error) {
	hasher, err := cfg.Hasher()
	if err != nil {
		return nil, err
	}
	opts := []cas.Option{cas.WithHasher(hasher), cas.WithMaxFileSize(cfg.MaxFileSize)}
	if client != nil {
		opts = append(opts, cas.WithHTTPClient(client))
	}
	return cas.NewStore(cfg.CASRoot, opts...)
}

// components holds everything a run needs. close releases the history
// database.
type components struct {
	store    *cas.Store
	scraper  *crawler.Fetcher
	api      *apifetch.Fetcher
	history  *database.HistoryDB
	reporter *report.DirWriter
}

func (c *components) close() {
	if c.history != nil {
		_ = c.history.Close() //nolint:errcheck // nothing to do on close failure
	}
}

// newComponents builds the HTTP clients, store, fetchers, history database
// and report writer described by cfg. A configured proxy is probed first
// so a dead proxy fails fast instead of failing every unit.
func newComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	if cfg.ProxyAddress != "" {
		if err := transport.ProbeProxy(ctx, cfg.ProxyAddress); err != nil {
			return nil, fmt.Errorf("proxy check failed: %w", err)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	fileClient, err := transport.NewClient(cfg.TransportOptions(cfg.FileTimeout))
	if err != nil {
		return nil, err
	}
	pageClient, err := transport.NewClient(cfg.TransportOptions(cfg.PageTimeout))
	if err != nil {
		return nil, err
	}
	apiClient, err := transport.NewClient(cfg.TransportOptions(cfg.APITimeout))
	if err != nil {
		return nil, err
	}

	hasher, err := cfg.Hasher()
	if err != nil {
		return nil, err
	}

	c := &components{
		scraper: crawler.NewFetcher(pageClient,
			crawler.WithMaxBodySize(cfg.MaxBodySize),
			crawler.WithParser(crawler.NewParser(crawler.WithParserHasher(hasher))),
		),
		api: apifetch.NewFetcher(apiClient, apifetch.WithMaxBodySize(cfg.MaxBodySize)),
	}

	if c.store, err = newStore(cfg, fileClient); err != nil {
		return nil, err
	}

	if cfg.ReportDir != "" {
		format, err := report.ParseFormat(cfg.ReportFormat)
		if err != nil {
			return nil, err
		}
		if c.reporter, err = report.NewDirWriter(cfg.ReportDir, format); err != nil {
			return nil, err
		}
	}

	if cfg.SaveHistory {
		if c.history, err = database.Open(cfg.DBDir, database.DefaultOptions()); err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		logger.Debug("history database opened", "path", c.history.Path())
	}

	return c, nil
}

// executeRun runs the selected categories of sources, records the run in
// the history database, prints the summary and returns errUnitsFailed when
// any unit failed.
func executeRun(cmd *cobra.Command, cfg *config.Config, flowName string, sources *config.File, sel pipeline.Selection) error {
	logger := setupLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	opts := []pipeline.FlowOption{
		pipeline.WithFlowLogger(logger),
		pipeline.WithRetryPolicy(pipeline.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			Backoff:     cfg.RetryBackoff,
			MaxBackoff:  cfg.MaxRetryBackoff,
		}),
		pipeline.WithBatchProcessor(pipeline.NewBatchProcessor(
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)),
	}

	runID := uuid.NewString()
	if c.history != nil {
		run, err := c.history.StartRun(ctx, flowName, cfg.ConfigFilePath)
		if err != nil {
			return fmt.Errorf("failed to start run: %w", err)
		}
		runID = run.ID
		opts = append(opts, pipeline.WithRecorder(c.history, runID))
	} else {
		opts = append(opts, pipeline.WithRunID(runID))
	}
	if c.reporter != nil {
		opts = append(opts, pipeline.WithReporter(c.reporter))
	}

	flows := pipeline.NewFlows(c.store, c.scraper, c.api, opts...)
	summary := flows.Run(ctx, flowName, cfg.ConfigFilePath, sources, sel)

	if c.history != nil {
		// The run is closed even after cancellation so the ledger does not
		// keep it RUNNING forever.
		if err := c.history.FinishRun(context.WithoutCancel(ctx), runID, summary.Status); err != nil {
			logger.Error("failed to finish run", "run_id", runID, "error", err)
		}
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if err := printSummary(cmd.OutOrStdout(), summary, asJSON); err != nil {
		return err
	}

	if summary.Status == model.RunCompletedWithErrors {
		return errUnitsFailed
	}
	return ctx.Err()
}

// printSummary writes the run summary as text or JSON.
func printSummary(w io.Writer, summary *model.RunSummary, asJSON bool) error {
	if asJSON {
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteRunSummary(summary)
		return err
	}

	total, succeeded, failed, skipped := summary.Totals()
	fmt.Fprintf(w, "Run %s (%s): %s\n", summary.RunID, summary.FlowName, summary.Status)
	fmt.Fprintf(w, "  %d unit(s): %d succeeded, %d failed, %d skipped\n", total, succeeded, failed, skipped)

	for _, c := range summary.Categories {
		fmt.Fprintf(w, "\n%s [%s]: %s\n", c.Category, c.DataSource, c.Status)
		for _, item := range c.Items {
			fmt.Fprintf(w, "  %-22s  %-24s  %s\n", item.Status, truncate(item.Name, 24), item.URL)
			if item.ErrorMessage != "" {
				fmt.Fprintf(w, "      %s\n", truncate(item.ErrorMessage, 160))
			}
		}
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
