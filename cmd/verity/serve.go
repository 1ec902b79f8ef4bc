package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"mercator-hq/verity/pkg/cli"
	"mercator-hq/verity/pkg/config"
	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/history/recorder"
	"mercator-hq/verity/pkg/history/retention"
	"mercator-hq/verity/pkg/rules/source"
	"mercator-hq/verity/pkg/server"
	"mercator-hq/verity/pkg/telemetry/health"
	"mercator-hq/verity/pkg/telemetry/metrics"
)

type serveFlags struct {
	listenAddress string
	rules         string
	watch         bool
	dryRun        bool
}

func newServeCmd(g *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the validation server",
		Long: `Start the HTTP validation server with the specified configuration.

The server loads the configured rule sets, validates JSON documents posted
to /v1/validate/{ruleset}, records outcomes in validation history and
exposes health and Prometheus metrics endpoints.

Examples:
  # Start with default config
  verity serve

  # Start with custom config, reloading rules on change
  verity serve --config /etc/verity/config.yaml --watch

  # Override listen address
  verity serve --listen 0.0.0.0:8080

  # Validate config and rules without starting the server
  verity serve --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVarP(&flags.rules, "rules", "r", "", "override rule file or directory")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "reload rule sets when files change")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "validate config and rules without starting server")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, flags *serveFlags) error {
	cfg, logger, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if flags.listenAddress != "" {
		cfg.Server.ListenAddress = flags.listenAddress
	}
	if flags.rules != "" {
		cfg.Rules.Path = flags.rules
	}
	if cmd.Flags().Changed("watch") {
		cfg.Rules.Watch = flags.watch
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.MetricsConfig(), registry)

	eng, err := newEngine(cfg, logger, collector, collector)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	src := newRuleSource(cfg, "", logger)
	if err := source.Reload(ctx, src, eng); err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to load rule sets: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Rule sets loaded (%d from %s)\n", len(eng.RuleSets()), src.Path())
	if flags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	if cfg.Rules.Watch {
		watcher, err := source.NewWatcher(cfg.WatcherConfig(), logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer watcher.Stop()

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := watcher.Watch(ctx, func(ctx context.Context) error {
				err := source.Reload(ctx, src, eng)
				collector.RecordReload(err)
				return err
			})
			if err != nil {
				logger.Error("rule watcher stopped", "error", err)
			}
		}()
		fmt.Fprintf(out, "✓ Watching %s for changes\n", cfg.Rules.Path)
	}

	opts := []server.Option{server.WithLogger(logger)}

	checker := health.New(0)
	checker.Register("rule_sets", func(context.Context) error {
		if len(eng.RuleSets()) == 0 {
			return errors.New("no rule sets loaded")
		}
		return nil
	})

	if cfg.History.Enabled {
		store, err := openStorage(cfg)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer store.Close()

		pruner, err := startPruner(ctx, cfg, store, collector, logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer pruner.Stop()

		checker.Register("history", func(ctx context.Context) error {
			_, err := store.Count(ctx, &history.Query{})
			return err
		})
		opts = append(opts,
			server.WithRecorder(recorder.NewRecorder(store, cfg.RecorderConfig(), logger)),
			server.WithHistory(store),
			server.WithHistoryMetrics(collector),
		)
		fmt.Fprintf(out, "✓ History enabled (%s backend)\n", cfg.History.Backend)
	}

	opts = append(opts, server.WithHealth(checker))
	if cfg.Telemetry.Metrics.Enabled {
		opts = append(opts, server.WithMetricsHandler(cfg.Telemetry.Metrics.Path, collector.Handler()))
	}

	printBanner(out, cfg, eng)

	srv := server.NewServer(&cfg.Server, eng, opts...)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// startPruner starts scheduled retention pruning when a schedule is set.
func startPruner(ctx context.Context, cfg *config.Config, store history.Storage, m retention.Metrics, logger *slog.Logger) (*retention.Pruner, error) {
	pruner := retention.NewPruner(store, cfg.RetentionConfig(), logger).WithMetrics(m)
	if err := pruner.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start retention pruner: %w", err)
	}
	if next := pruner.NextPruning(); next != nil {
		logger.Info("history retention scheduled",
			"retention_days", cfg.History.Retention.Days,
			"max_records", cfg.History.Retention.MaxRecords,
			"next_run", next.String(),
		)
	}
	return pruner, nil
}

func printBanner(out io.Writer, cfg *config.Config, eng *engine.Engine) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Verity %s\n", Version)
	fmt.Fprintf(out, "  Listening on:  http://%s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "  Rule sets:     %d\n", len(eng.RuleSets()))
	fmt.Fprintf(out, "  Fail-safe:     %s\n", eng.Config().FailSafeMode)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "  Metrics:       http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out)
}
