package dex

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	v2, err := NewV2PairDecoder()
	if err != nil {
		t.Fatalf("v2: %v", err)
	}
	v3, err := NewV3PoolDecoder()
	if err != nil {
		t.Fatalf("v3: %v", err)
	}
	v4, err := NewV4PoolManagerDecoder()
	if err != nil {
		t.Fatalf("v4: %v", err)
	}
	hook, err := NewHookDecoder()
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	airlock, err := NewAirlockDecoder(AirlockConfig{})
	if err != nil {
		t.Fatalf("airlock: %v", err)
	}
	erc20, err := NewERC20Decoder()
	if err != nil {
		t.Fatalf("erc20: %v", err)
	}
	registry, err := NewRegistry(v2, v3, v4, hook, airlock, erc20)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

func TestRegistryTopicsAreDistinct(t *testing.T) {
	registry := newTestRegistry(t)
	topics := registry.Topics()
	// v2 Swap+Sync, v3 Swap+Mint+Burn, v4 x3, hook Swap, airlock x2, Transfer.
	if len(topics) != 12 {
		t.Fatalf("expected 12 topics, got %d", len(topics))
	}
	for i := 1; i < len(topics); i++ {
		if topics[i-1].Hex() >= topics[i].Hex() {
			t.Fatalf("topics not sorted at %d", i)
		}
	}
}

func TestRegistryRejectsDuplicateTopic(t *testing.T) {
	first, err := NewERC20Decoder()
	if err != nil {
		t.Fatalf("erc20: %v", err)
	}
	second, err := NewERC20Decoder()
	if err != nil {
		t.Fatalf("erc20: %v", err)
	}
	if _, err := NewRegistry(first, second); err == nil {
		t.Fatalf("expected duplicate topic error")
	}
}

func TestRegistryUnknownTopic(t *testing.T) {
	registry := newTestRegistry(t)
	log := buildLogRecord(common.HexToAddress("0x01"), common.HexToHash("0x1234"), nil, nil)
	if _, err := registry.Decode(log); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
	if _, err := registry.Decode(model.LogRecord{}); err == nil {
		t.Fatalf("expected error for missing topics")
	}
}

func TestRegistryRoutesByTopic(t *testing.T) {
	registry := newTestRegistry(t)
	hookABI, err := HookABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, ok := registry.Lookup(hookABI.Events["Swap"].ID.Hex())
	if !ok || decoder.Name() != "hook" {
		t.Fatalf("expected hook decoder for hook Swap topic")
	}
}
