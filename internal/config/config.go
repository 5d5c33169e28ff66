package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds configuration for the run command.
type RunConfig struct {
	RPCURL            string
	PgDSN             string
	RedisAddr         string
	RedisKey          string
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []string
	BatchSize         uint64
	Numeraires        []string
	Stablecoins       []string
	Initializers      map[string]string
	MigrationProtocol string
	Out               string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	OracleLookback    time.Duration
	RefreshInterval   time.Duration
	RefreshStaleness  time.Duration
	RefreshBatch      int
	MetricsAddr       string
	TokenCacheTTL     time.Duration
	TokenCacheSize    int
	LogLevel          string
}

// LoadRun merges config file, environment variables, and flags into RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"redis-key":          "oracle:usd",
		"batch-size":         uint64(2000),
		"migration-protocol": "constant-product",
		"out":                "",
		"errors":             "./data/decode_errors.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"oracle-lookback":    15 * time.Minute,
		"refresh-interval":   10 * time.Minute,
		"refresh-staleness":  time.Hour,
		"refresh-batch":      100,
		"metrics-addr":       ":9090",
		"token-cache-ttl":    10 * time.Minute,
		"token-cache-size":   4096,
		"log-level":          "info",
	})
	if err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{
		RPCURL:            v.GetString("rpc"),
		PgDSN:             v.GetString("pg-dsn"),
		RedisAddr:         v.GetString("redis-addr"),
		RedisKey:          v.GetString("redis-key"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Addresses:         getStringSlice(v, "addresses"),
		BatchSize:         v.GetUint64("batch-size"),
		Numeraires:        getStringSlice(v, "numeraires"),
		Stablecoins:       getStringSlice(v, "stablecoins"),
		Initializers:      getStringMap(v, "initializers"),
		MigrationProtocol: v.GetString("migration-protocol"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		OracleLookback:    v.GetDuration("oracle-lookback"),
		RefreshInterval:   v.GetDuration("refresh-interval"),
		RefreshStaleness:  v.GetDuration("refresh-staleness"),
		RefreshBatch:      v.GetInt("refresh-batch"),
		MetricsAddr:       v.GetString("metrics-addr"),
		TokenCacheTTL:     v.GetDuration("token-cache-ttl"),
		TokenCacheSize:    v.GetInt("token-cache-size"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// load builds a viper instance with the INDEXER_ env prefix, the given defaults, bound
// flags and an optional config file.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// getStringMap accepts a config file table or a "key=value,key=value" string.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
