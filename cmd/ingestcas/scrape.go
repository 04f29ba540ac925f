package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/ingestcas/internal/config"
	"github.com/nao1215/ingestcas/internal/pipeline"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <url>...",
		Short: "Extract canonical URLs and links from web pages",
		Long: `Scrape fetches each page, resolves its canonical URL and collects the
absolute http(s) links it contains. The result is saved as

  {cas-root}/{source}/scraped_pages_manifests/{url-hash}/{name}.manifest.json

Examples:
  ingestcas scrape --source news https://example.com/ https://example.org/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScrapeCmd,
	}

	addCommonFlags(cmd)

	cmd.Flags().StringP("source", "s", config.DefaultPageDataSource, "Data source name")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	source, err := cmd.Flags().GetString("source")
	if err != nil {
		return err
	}

	pages := config.PageScraping{DataSourceName: source}
	for _, u := range args {
		pages.PagesToScrape = append(pages.PagesToScrape, config.PageSource{Name: u, URL: u})
	}

	return executeRun(cmd, cfg, "scrape", &config.File{WebPageLinkScraping: pages}, pipeline.Selection{Pages: true})
}
