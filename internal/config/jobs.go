package config

import (
	"time"

	"github.com/spf13/pflag"
)

// RefreshConfig holds configuration for the refresh command.
type RefreshConfig struct {
	PgDSN            string
	RefreshInterval  time.Duration
	RefreshStaleness time.Duration
	RefreshBatch     int
	Once             bool
	LogLevel         string
}

// LoadRefresh merges config file, environment variables, and flags into RefreshConfig.
func LoadRefresh(cfgFile string, flags *pflag.FlagSet) (RefreshConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"refresh-interval":  10 * time.Minute,
		"refresh-staleness": time.Hour,
		"refresh-batch":     100,
		"once":              false,
		"log-level":         "info",
	})
	if err != nil {
		return RefreshConfig{}, err
	}
	return RefreshConfig{
		PgDSN:            v.GetString("pg-dsn"),
		RefreshInterval:  v.GetDuration("refresh-interval"),
		RefreshStaleness: v.GetDuration("refresh-staleness"),
		RefreshBatch:     v.GetInt("refresh-batch"),
		Once:             v.GetBool("once"),
		LogLevel:         v.GetString("log-level"),
	}, nil
}

// FeedConfig holds configuration for the feed command.
type FeedConfig struct {
	RPCURL        string
	RedisAddr     string
	RedisKey      string
	ChainlinkFeed string
	FeedInterval  time.Duration
	FeedRetention time.Duration
	LogLevel      string
}

// LoadFeed merges config file, environment variables, and flags into FeedConfig.
func LoadFeed(cfgFile string, flags *pflag.FlagSet) (FeedConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"redis-key":      "oracle:usd",
		"feed-interval":  time.Minute,
		"feed-retention": 7 * 24 * time.Hour,
		"log-level":      "info",
	})
	if err != nil {
		return FeedConfig{}, err
	}
	return FeedConfig{
		RPCURL:        v.GetString("rpc"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisKey:      v.GetString("redis-key"),
		ChainlinkFeed: v.GetString("chainlink-feed"),
		FeedInterval:  v.GetDuration("feed-interval"),
		FeedRetention: v.GetDuration("feed-retention"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// MigrateConfig holds configuration for the migrate command.
type MigrateConfig struct {
	PgDSN    string
	LogLevel string
}

func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{"log-level": "info"})
	if err != nil {
		return MigrateConfig{}, err
	}
	return MigrateConfig{PgDSN: v.GetString("pg-dsn"), LogLevel: v.GetString("log-level")}, nil
}
