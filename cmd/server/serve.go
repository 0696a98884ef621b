package main

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"personfinder/internal/platform/config"
	"personfinder/internal/platform/httpserver"
	"personfinder/internal/platform/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.Server.LogLevel)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.reindex(ctx); err != nil {
		log.WarnContext(ctx, "initial search reindex incomplete", "error", err)
	}

	scheduler, err := newScheduler(ctx, a)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, a.router())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting personfinder", "addr", cfg.Server.Addr, "domains", cfg.Server.Domains)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		return a.relay.Run(gctx)
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	err = g.Wait()
	log.Info("personfinder stopped")
	return err
}

// newScheduler registers the periodic sweep and, with Elasticsearch, the
// index rebuild. Jobs run against ctx so shutdown cancels them.
func newScheduler(ctx context.Context, a *app) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(a.cfg.Lifecycle.SweepSchedule, func() {
		if err := a.lifecycle.SweepAll(ctx, a.cfg.Lifecycle.Domains); err != nil {
			a.logger.ErrorContext(ctx, "scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	if a.elastic != nil {
		if _, err := c.AddFunc(a.cfg.Elasticsearch.ReindexSchedule, func() {
			_ = a.reindex(ctx)
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}
