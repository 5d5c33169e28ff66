package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadRunDefaults(t *testing.T) {
	cfg, err := LoadRun("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 2000 {
		t.Fatalf("expected default batch size, got %d", cfg.BatchSize)
	}
	if cfg.RefreshStaleness != time.Hour {
		t.Fatalf("expected default staleness, got %s", cfg.RefreshStaleness)
	}
	if cfg.MigrationProtocol != "constant-product" {
		t.Fatalf("unexpected migration protocol %q", cfg.MigrationProtocol)
	}
	if len(cfg.Initializers) != 0 {
		t.Fatalf("expected no initializers, got %v", cfg.Initializers)
	}
}

func TestLoadRunFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
rpc: http://file
batch-size: 500
numeraires:
  - "0x4200000000000000000000000000000000000006"
initializers:
  "0x00000000000000000000000000000000000000a1": v3
  "0x00000000000000000000000000000000000000a2": hook
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INDEXER_PG_DSN", "postgres://env")
	t.Setenv("INDEXER_STABLECOINS", "0xaa, 0xbb,")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Uint64("batch-size", 2000, "")
	if err := flags.Parse([]string{"--rpc", "http://flag"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadRun(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://flag" {
		t.Fatalf("flag should win over file, got %q", cfg.RPCURL)
	}
	if cfg.BatchSize != 500 {
		t.Fatalf("file should win over an unset flag, got %d", cfg.BatchSize)
	}
	if cfg.PgDSN != "postgres://env" {
		t.Fatalf("unexpected dsn %q", cfg.PgDSN)
	}
	if len(cfg.Stablecoins) != 2 || cfg.Stablecoins[1] != "0xbb" {
		t.Fatalf("unexpected stablecoins %v", cfg.Stablecoins)
	}
	if len(cfg.Numeraires) != 1 {
		t.Fatalf("unexpected numeraires %v", cfg.Numeraires)
	}
	if cfg.Initializers["0x00000000000000000000000000000000000000a2"] != "hook" || len(cfg.Initializers) != 2 {
		t.Fatalf("unexpected initializers %v", cfg.Initializers)
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap("0xa1=v3, 0xa2 = hook ,broken,=v2,0xa3=")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	if got["0xa1"] != "v3" || got["0xa2"] != "hook" {
		t.Fatalf("unexpected map %v", got)
	}
}

func TestLoadFeedAndRefresh(t *testing.T) {
	t.Setenv("INDEXER_CHAINLINK_FEED", "0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70")
	t.Setenv("INDEXER_FEED_INTERVAL", "30s")
	feed, err := LoadFeed("", nil)
	if err != nil {
		t.Fatalf("load feed: %v", err)
	}
	if feed.FeedInterval != 30*time.Second || feed.RedisKey != "oracle:usd" {
		t.Fatalf("unexpected feed config %+v", feed)
	}

	t.Setenv("INDEXER_ONCE", "true")
	refresh, err := LoadRefresh("", nil)
	if err != nil {
		t.Fatalf("load refresh: %v", err)
	}
	if !refresh.Once || refresh.RefreshBatch != 100 {
		t.Fatalf("unexpected refresh config %+v", refresh)
	}
}
