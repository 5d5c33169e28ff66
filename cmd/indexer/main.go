package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Launch pool swap and liquidity metrics indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index pool events into entity metrics",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN, empty keeps state in memory")
	runCmd.Flags().String("redis-addr", "", "Redis address of the USD price samples")
	runCmd.Flags().String("redis-key", "oracle:usd", "Redis sorted set holding USD price samples")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("addresses", nil, "restrict logs to these emitters (comma-separated)")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().StringSlice("numeraires", nil, "quote tokens priced by the oracle (comma-separated)")
	runCmd.Flags().StringSlice("stablecoins", nil, "numeraires pinned at one USD (comma-separated)")
	runCmd.Flags().String("initializers", "", "initializer address to protocol mappings (comma-separated key=value)")
	runCmd.Flags().String("migration-protocol", "constant-product", "protocol of pools assets migrate into")
	runCmd.Flags().String("out", "", "optional raw logs JSONL archive")
	runCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("oracle-lookback", 15*time.Minute, "maximum age of a USD price sample")
	runCmd.Flags().Duration("refresh-interval", 10*time.Minute, "stale volume refresh interval")
	runCmd.Flags().Duration("refresh-staleness", time.Hour, "refresh windows untouched for this long")
	runCmd.Flags().Int("refresh-batch", 100, "windows refreshed per run")
	runCmd.Flags().String("metrics-addr", ":9090", "prometheus listen address, empty disables")
	runCmd.Flags().Duration("token-cache-ttl", 10*time.Minute, "token class cache TTL")
	runCmd.Flags().Int("token-cache-size", 4096, "token class cache size")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Evict expired volume checkpoints from stale pools",
		RunE:  runRefresh,
	}

	refreshCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	refreshCmd.Flags().Duration("refresh-interval", 10*time.Minute, "refresh interval")
	refreshCmd.Flags().Duration("refresh-staleness", time.Hour, "refresh windows untouched for this long")
	refreshCmd.Flags().Int("refresh-batch", 100, "windows refreshed per run")
	refreshCmd.Flags().Bool("once", false, "run a single refresh and exit")
	refreshCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(refreshCmd)

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Poll a Chainlink aggregator into the Redis price samples",
		RunE:  runFeed,
	}

	feedCmd.Flags().String("rpc", "", "RPC URL")
	feedCmd.Flags().String("redis-addr", "", "Redis address")
	feedCmd.Flags().String("redis-key", "oracle:usd", "Redis sorted set holding USD price samples")
	feedCmd.Flags().String("chainlink-feed", "", "AggregatorV3 address")
	feedCmd.Flags().Duration("feed-interval", time.Minute, "poll interval")
	feedCmd.Flags().Duration("feed-retention", 7*24*time.Hour, "drop samples older than this")
	feedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(feedCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
