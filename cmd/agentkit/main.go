// Command agentkit serves one capability agent over stdio. Each subcommand
// wires its handler into the shared request loop; stdout carries the wire
// protocol, so logs go to stderr.
package main

import (
	"context"
	"os"

	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"

	"github.com/prxs-ai/agentkit/agent"
	"github.com/prxs-ai/agentkit/agents/calc"
	"github.com/prxs-ai/agentkit/agents/defi"
	"github.com/prxs-ai/agentkit/agents/docsum"
	"github.com/prxs-ai/agentkit/agents/homeassistant"
	"github.com/prxs-ai/agentkit/agents/monitor"
	"github.com/prxs-ai/agentkit/agents/price"
	"github.com/prxs-ai/agentkit/agents/scraper"
	"github.com/prxs-ai/agentkit/agents/webhook"
	"github.com/prxs-ai/agentkit/config"
	"github.com/prxs-ai/agentkit/enrich"
	"github.com/prxs-ai/agentkit/pkg/aiclient"
	"github.com/prxs-ai/agentkit/store"
)

var logger = xlog.NewPackageLogger("github.com/prxs-ai/agentkit", "cli")

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "agentkit",
	Short: "agentkit - stdio capability agents",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
		if debug {
			xlog.SetGlobalLogLevel(xlog.DEBUG)
		} else {
			xlog.SetGlobalLogLevel(xlog.ERROR)
		}
	},
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Serve the Binance spot price agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			return price.New()
		})
	},
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Serve the sqrt/factorial math agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			return calc.New()
		})
	},
}

var defiCmd = &cobra.Command{
	Use:   "defi",
	Short: "Serve the DeFi APY lookup agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			h, err := defi.New()
			if err != nil {
				return nil, err
			}
			if c := openCache(ctx, cfg); c != nil {
				h = h.WithCache(c).WithCacheTTL(cfg.Redis.CacheTTL())
			}
			return h, nil
		})
	},
}

var haCmd = &cobra.Command{
	Use:   "homeassistant",
	Short: "Serve the Home Assistant entity agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			return homeassistant.New()
		})
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve the ping/http/tls check agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			return monitor.New()
		})
	},
}

var docsumCmd = &cobra.Command{
	Use:   "docsum",
	Short: "Serve the document summarizer agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			h, err := docsum.New()
			if err != nil {
				return nil, err
			}
			if ai := openAI(cfg); ai != nil {
				h = h.WithCompleter(ai)
			}
			return h, nil
		})
	},
}

var scraperCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Serve the web scraping agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			return scraper.New()
		})
	},
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Serve the HTTP webhook caller agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), func(ctx context.Context, cfg *config.Config) (agent.Handler, error) {
			return webhook.New()
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(priceCmd, calcCmd, defiCmd, haCmd, monitorCmd, docsumCmd, scraperCmd, webhookCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serve builds the handler, enriches its card, and runs the stdio loop
// until EOF.
func serve(ctx context.Context, build func(context.Context, *config.Config) (agent.Handler, error)) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	h, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	if ai := openAI(cfg); ai != nil {
		enrich.Card(ctx, ai, h.Describe())
	}
	return agent.Run(ctx, os.Stdin, os.Stdout, h)
}

// openAI returns a model client when a token is configured, nil otherwise.
func openAI(cfg *config.Config) *aiclient.Client {
	if cfg.OpenAI.Token == "" {
		return nil
	}
	opts := []aiclient.Option{}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, aiclient.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.Model != "" {
		opts = append(opts, aiclient.WithModel(cfg.OpenAI.Model))
	}
	if cfg.OpenAI.EmbeddingModel != "" {
		opts = append(opts, aiclient.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel))
	}
	return aiclient.New(cfg.OpenAI.Token, opts...)
}

// openCache returns the shared Redis cache when configured and reachable.
// The caller keeps its in-process cache otherwise.
func openCache(ctx context.Context, cfg *config.Config) store.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client, err := store.OpenRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "redis_unavailable", "addr", cfg.Redis.Addr, "err", err.Error())
		return nil
	}
	return store.NewRedisCache(client, cfg.Redis.Prefix)
}
