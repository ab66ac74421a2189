package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/firecrawl-demo/internal/api"
	"github.com/JakeFAU/firecrawl-demo/internal/config"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

// scrapeFlags are shared by scrape and batch. When none is set the configured
// defaults apply; setting any of them replaces the defaults.
type scrapeFlags struct {
	formats         []string
	onlyMainContent bool
}

func (f *scrapeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.formats, "format", nil, "output formats (markdown, html, ...)")
	cmd.Flags().BoolVar(&f.onlyMainContent, "only-main-content", false, "strip navigation and footers")
}

func (f *scrapeFlags) options(cmd *cobra.Command) *scraper.ScrapeOptions {
	if !cmd.Flags().Changed("format") && !cmd.Flags().Changed("only-main-content") {
		return nil
	}
	opts := &scraper.ScrapeOptions{Formats: f.formats}
	if cmd.Flags().Changed("only-main-content") {
		onlyMain := f.onlyMainContent
		opts.OnlyMainContent = &onlyMain
	}
	return opts
}

func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape URL",
		Short: "Scrape a single page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			res, err := client.ScrapeURL(cmd.Context(), args[0], cfg.ScrapeDefaults().Scrape(flags.options(cmd)))
			if err != nil {
				return fmt.Errorf("scrape %s: %w", args[0], err)
			}
			if !res.Success {
				return providerFailure("scrape", res.Error)
			}
			return printJSON(cmd.OutOrStdout(), api.NewScrapeResponse(res))
		},
	}
	flags.register(cmd)
	return cmd
}

func newCrawlCmd() *cobra.Command {
	var (
		limit    int
		maxDepth int
	)
	cmd := &cobra.Command{
		Use:   "crawl URL",
		Short: "Start an asynchronous crawl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			var opts *scraper.CrawlOptions
			if cmd.Flags().Changed("limit") || cmd.Flags().Changed("max-depth") {
				opts = &scraper.CrawlOptions{Limit: limit, MaxDepth: maxDepth}
			}
			res, err := client.CrawlURL(cmd.Context(), args[0], cfg.ScrapeDefaults().Crawl(opts))
			if err != nil {
				return fmt.Errorf("crawl %s: %w", args[0], err)
			}
			if !res.Success {
				return providerFailure("crawl", res.Error)
			}
			return printJSON(cmd.OutOrStdout(), api.NewCrawlResponse(res))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum pages to crawl")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var flags scrapeFlags
	cmd := &cobra.Command{
		Use:   "batch URL...",
		Short: "Scrape several pages in one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			res, _, err := scraper.BatchScrape(cmd.Context(), client, args, cfg.ScrapeDefaults().Scrape(flags.options(cmd)))
			if err != nil {
				return err
			}
			if !res.Success {
				return providerFailure("batch scrape", res.Error)
			}
			return printJSON(cmd.OutOrStdout(), api.NewBatchResponse(res))
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var jobType string
	cmd := &cobra.Command{
		Use:   "status JOBID",
		Short: "Check a crawl or batch job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok, err := scraper.ParseJobKind(jobType)
			if err != nil {
				return err
			}
			if !ok {
				kind = scraper.JobKindCrawl
			}
			_, client, err := providerClient(cmd)
			if err != nil {
				return err
			}
			res, err := scraper.CheckStatus(cmd.Context(), client, args[0], kind)
			if err != nil {
				return err
			}
			if !res.Success {
				return providerFailure("status check", res.Error)
			}
			return printJSON(cmd.OutOrStdout(), scraper.NormalizeStatus(res))
		},
	}
	cmd.Flags().StringVar(&jobType, "type", "crawl", "job type: crawl or batch")
	return cmd
}

func providerClient(cmd *cobra.Command) (config.Config, scraper.Client, error) {
	rt, err := runtimeFrom(cmd.Context())
	if err != nil {
		return config.Config{}, nil, err
	}
	client, err := newProviderClient(rt.cfg, rt.logger)
	if err != nil {
		return config.Config{}, nil, err
	}
	return rt.cfg, client, nil
}

func providerFailure(op, msg string) error {
	if msg == "" {
		return fmt.Errorf("%s failed", op)
	}
	return errors.New(msg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
