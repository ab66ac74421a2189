// Package cmd defines and implements the firecrawl-demo command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/config"
	"github.com/JakeFAU/firecrawl-demo/internal/logging"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
	"github.com/JakeFAU/firecrawl-demo/internal/server"
)

// runtimeKeyType is the key for storing the loaded runtime in the context.
type runtimeKeyType struct{}

var runtimeKey = runtimeKeyType{}

type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// runner is the part of *server.App the serve command needs.
type runner interface {
	Run(ctx context.Context) error
}

// Factories are variables so tests can swap in fakes.
var (
	loadConfig = config.Load
	newLogger  = logging.New

	newProviderClient = func(cfg config.Config, logger *zap.Logger) (scraper.Client, error) {
		client, err := server.NewProviderClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	newServer = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (runner, error) {
		app, err := server.Build(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return app, nil
	}
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "firecrawl-demo",
		Short: "Demo server and CLI for the Firecrawl scraping API.",
		Long: `firecrawl-demo serves a small web UI and JSON API in front of Firecrawl.
The scrape, crawl, batch and status subcommands call the provider directly
and print the same JSON the HTTP routes return.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, &runtime{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := runtimeFrom(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newCrawlCmd(),
		newBatchCmd(),
		newStatusCmd(),
	)
	return cmd
}

func runtimeFrom(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		zap.L().Error("command execution failed", zap.Error(err))
		os.Exit(1)
	}
}
