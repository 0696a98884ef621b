package main

import (
	"github.com/spf13/cobra"

	"personfinder/internal/platform/config"
	"personfinder/internal/platform/logger"
)

func newSweepCmd() *cobra.Command {
	var domains []string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep and publish the resulting events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if len(domains) == 0 {
				domains = cfg.Lifecycle.Domains
			}
			log := logger.New(cfg.Server.LogLevel)

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			sweepErr := a.lifecycle.SweepAll(ctx, domains)
			published, err := a.relay.Flush(ctx)
			if err != nil {
				return err
			}
			log.InfoContext(ctx, "sweep finished", "domains", domains, "events_published", published)
			return sweepErr
		},
	}
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "domain to sweep (repeatable, defaults to PF_SWEEP_DOMAINS)")
	return cmd
}
