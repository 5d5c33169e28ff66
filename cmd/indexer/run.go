package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/dex"
	"poolScope/internal/engine"
	"poolScope/internal/indexer"
	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/oracle"
	"poolScope/internal/pricing"
	"poolScope/internal/schedule"
	"poolScope/internal/storage"
	"poolScope/internal/storage/memory"
	"poolScope/internal/storage/postgres"
	"poolScope/internal/volume"
)

// entityStore is what the run and refresh commands need from a backend.
type entityStore interface {
	storage.Store
	storage.StateStore
}

const schedulerPoll = 5 * time.Second

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
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

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	initializers, err := dex.ParseInitializers(cfg.Initializers)
	if err != nil {
		return err
	}
	if len(initializers) == 0 {
		logger.Warn("no initializers configured, launch Create logs will be skipped")
	}
	migrationProtocol, err := model.ParseProtocol(cfg.MigrationProtocol)
	if err != nil {
		return fmt.Errorf("migration protocol: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reader, err := chain.NewReader(chainClient)
	if err != nil {
		return err
	}

	registry, err := newRegistry(dex.AirlockConfig{Initializers: initializers, MigrationProtocol: migrationProtocol})
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.PgDSN, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	prices, closePrices, err := newPrices(cfg, logger)
	if err != nil {
		return err
	}
	defer closePrices()

	registryMetrics := metrics.NewRegistry()
	m := metrics.New(registryMetrics)

	eng, err := engine.New(store, reader, prices, m, logger, engine.Options{
		Numeraires:     append(append([]string{}, cfg.Numeraires...), cfg.Stablecoins...),
		TokenCacheSize: cfg.TokenCacheSize,
		TokenCacheTTL:  cfg.TokenCacheTTL,
	})
	if err != nil {
		return err
	}

	clock := &schedule.EventClock{}
	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         addresses,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, registry, eng, logger,
		indexer.WithLogSink(storage.NewJsonlSink(cfg.Out, cfg.Errors)),
		indexer.WithEventClock(clock),
		indexer.WithMetrics(m),
	)

	refresh := schedule.NewVolumeRefreshJob(volume.NewWindow(store, logger), store, cfg.RefreshStaleness, cfg.RefreshBatch, m, logger)
	scheduler := schedule.NewScheduler(clock, cfg.RefreshInterval, store, logger, refresh)
	if err := scheduler.Restore(ctx); err != nil {
		return err
	}

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("topics", len(registry.Topics())),
		zap.Int("initializers", len(initializers)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("postgres", cfg.PgDSN != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		if err := runner.Run(gctx); err != nil {
			return err
		}
		// Bounded replays still evict windows that went stale during the range.
		return scheduler.RunOnce(gctx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx, schedulerPoll)
	})
	if cfg.MetricsAddr != "" {
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(registryMetrics), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("indexer stopped", zap.Uint64("event_time", clock.Now()))
	return nil
}

func newRegistry(airlock dex.AirlockConfig) (*dex.Registry, error) {
	airlockDecoder, err := dex.NewAirlockDecoder(airlock)
	if err != nil {
		return nil, err
	}
	erc20, err := dex.NewERC20Decoder()
	if err != nil {
		return nil, err
	}
	pair, err := dex.NewV2PairDecoder()
	if err != nil {
		return nil, err
	}
	pool, err := dex.NewV3PoolDecoder()
	if err != nil {
		return nil, err
	}
	manager, err := dex.NewV4PoolManagerDecoder()
	if err != nil {
		return nil, err
	}
	hook, err := dex.NewHookDecoder()
	if err != nil {
		return nil, err
	}
	return dex.NewRegistry(airlockDecoder, erc20, pair, pool, manager, hook)
}

// openStore connects Postgres when a DSN is given and falls back to process memory.
func openStore(ctx context.Context, dsn string, logger *zap.Logger) (entityStore, func(), error) {
	if dsn == "" {
		logger.Warn("no pg dsn configured, entities are kept in memory")
		return memory.New(), func() {}, nil
	}
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

// newPrices pins stablecoins at one USD and reads every other numeraire from Redis.
func newPrices(cfg config.RunConfig, logger *zap.Logger) (*oracle.Router, func(), error) {
	closeFn := func() {}
	var fallback oracle.Source
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		fallback = oracle.NewRedisSource(client, cfg.RedisKey, cfg.OracleLookback)
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", zap.Error(err))
			}
		}
	} else {
		logger.Warn("no redis configured, non-stable numeraires have no USD price")
	}

	router := oracle.NewRouter(fallback)
	for _, token := range cfg.Stablecoins {
		if !common.IsHexAddress(token) {
			closeFn()
			return nil, nil, fmt.Errorf("invalid stablecoin address: %s", token)
		}
		router.Register(token, oracle.Fixed{Price: pricing.WAD})
	}
	return router, closeFn, nil
}
