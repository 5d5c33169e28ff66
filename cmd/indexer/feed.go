package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/oracle"
)

func runFeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFeed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("redis address is required")
	}
	if !common.IsHexAddress(cfg.ChainlinkFeed) {
		return fmt.Errorf("invalid chainlink feed address: %q", cfg.ChainlinkFeed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	feed := oracle.NewChainlinkFeed(chainClient, common.HexToAddress(cfg.ChainlinkFeed))
	samples := oracle.NewRedisSource(client, cfg.RedisKey, 0)
	feeder := oracle.NewFeeder(feed, samples, cfg.FeedInterval, cfg.FeedRetention, logger)

	logger.Info("feed start",
		zap.String("feed", cfg.ChainlinkFeed),
		zap.String("redis_key", cfg.RedisKey),
		zap.Duration("interval", cfg.FeedInterval),
	)

	if err := feeder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
