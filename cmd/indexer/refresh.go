package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/metrics"
	"poolScope/internal/schedule"
	"poolScope/internal/volume"
)

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRefresh(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.PgDSN, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New(metrics.NewRegistry())
	job := schedule.NewVolumeRefreshJob(volume.NewWindow(store, logger), store, cfg.RefreshStaleness, cfg.RefreshBatch, m, logger)
	scheduler := schedule.NewScheduler(schedule.SystemClock{}, cfg.RefreshInterval, store, logger, job)

	logger.Info("refresh start",
		zap.Duration("interval", cfg.RefreshInterval),
		zap.Duration("staleness", cfg.RefreshStaleness),
		zap.Int("batch", cfg.RefreshBatch),
		zap.Bool("once", cfg.Once),
	)

	if cfg.Once {
		return job.Run(ctx, "manual", schedule.SystemClock{}.Now())
	}

	if err := scheduler.Restore(ctx); err != nil {
		return err
	}
	if err := scheduler.Run(ctx, schedulerPoll); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
