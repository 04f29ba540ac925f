package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/ingestcas/internal/config"
	"github.com/nao1215/ingestcas/internal/pipeline"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url>...",
		Short: "Acquire files into the content-addressable store",
		Long: `Download fetches each URL, hashes the content and stores it at

  {cas-root}/{source}/{hash}/{filename}

next to a {filename}.manifest.json provenance manifest. Storing the same
content twice is idempotent.

Examples:
  # Store a file under the "reports" data source
  ingestcas download --source reports https://example.com/annual.pdf

  # Record where the link was found
  ingestcas download --source reports --page-url https://example.com/ \
    --title "Annual report" https://example.com/annual.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDownloadCmd,
	}

	addCommonFlags(cmd)

	cmd.Flags().StringP("source", "s", config.DefaultFileDataSource, "Data source name")
	cmd.Flags().String("page-url", "", "Page the file was linked from (recorded in the manifest)")
	cmd.Flags().String("title", "", "Link title (recorded in the manifest)")

	return cmd
}

// runDownloadCmd executes the download command.
func runDownloadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	source, err := cmd.Flags().GetString("source")
	if err != nil {
		return err
	}
	pageURL, err := cmd.Flags().GetString("page-url")
	if err != nil {
		return err
	}
	title, err := cmd.Flags().GetString("title")
	if err != nil {
		return err
	}

	files := config.FileDownloads{DataSourceName: source}
	for _, u := range args {
		files.FilesToAcquire = append(files.FilesToAcquire, config.FileSource{
			Name:          u,
			URL:           u,
			SourcePageURL: pageURL,
			LinkTitle:     title,
		})
	}

	return executeRun(cmd, cfg, "download", &config.File{ScheduledFileDownloads: files}, pipeline.Selection{Files: true})
}
