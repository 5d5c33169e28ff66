package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// AirlockConfig maps launch initializer contracts to the mechanics of the pools they create.
type AirlockConfig struct {
	Initializers map[string]model.Protocol
	// MigrationProtocol is the mechanics of the venue assets migrate into.
	MigrationProtocol model.Protocol
}

// ParseInitializers converts an address -> protocol name map from configuration.
func ParseInitializers(raw map[string]string) (map[string]model.Protocol, error) {
	out := make(map[string]model.Protocol, len(raw))
	for address, name := range raw {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid initializer address: %s", address)
		}
		protocol, err := model.ParseProtocol(name)
		if err != nil {
			return nil, fmt.Errorf("initializer %s: %w", address, err)
		}
		out[normalizeAddress(address)] = protocol
	}
	return out, nil
}

// AirlockDecoder decodes the launch factory Create and Migrate logs.
type AirlockDecoder struct {
	airlockABI  abi.ABI
	topicToName map[string]string
	cfg         AirlockConfig
}

func NewAirlockDecoder(cfg AirlockConfig) (*AirlockDecoder, error) {
	airlockABI, err := AirlockABI()
	if err != nil {
		return nil, err
	}
	initializers := make(map[string]model.Protocol, len(cfg.Initializers))
	for address, protocol := range cfg.Initializers {
		initializers[strings.ToLower(address)] = protocol
	}
	cfg.Initializers = initializers
	if cfg.MigrationProtocol == model.ProtocolUnknown {
		cfg.MigrationProtocol = model.ProtocolConstantProduct
	}
	return &AirlockDecoder{
		airlockABI:  airlockABI,
		topicToName: topicNames(airlockABI, "Create", "Migrate"),
		cfg:         cfg,
	}, nil
}

func (d *AirlockDecoder) Name() string { return "airlock" }

func (d *AirlockDecoder) Topics() []common.Hash { return topicHashes(d.airlockABI, "Create", "Migrate") }

func (d *AirlockDecoder) Decode(log model.LogRecord) (model.Event, error) {
	name, err := eventName(d.topicToName, log)
	if err != nil {
		return nil, err
	}
	event := d.airlockABI.Events[name]

	switch name {
	case "Create":
		var indexed struct {
			Numeraire common.Address
		}
		if err := parseIndexed(event, log.Topics, &indexed); err != nil {
			return nil, err
		}
		values, err := unpackNonIndexed(event, log.Data, 3)
		if err != nil {
			return nil, err
		}
		asset, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		initializer, err := asAddress(values[1])
		if err != nil {
			return nil, err
		}
		poolOrHook, err := asAddress(values[2])
		if err != nil {
			return nil, err
		}
		protocol, ok := d.cfg.Initializers[addressString(initializer)]
		if !ok {
			return nil, fmt.Errorf("unknown initializer %s", initializer.Hex())
		}
		created := model.PoolCreated{
			EventMeta:   log.EventMeta(),
			Protocol:    protocol,
			Pool:        addressString(poolOrHook),
			BaseToken:   addressString(asset),
			QuoteToken:  addressString(indexed.Numeraire),
			Initializer: addressString(initializer),
		}
		if protocol == model.ProtocolHookBased {
			created.Hook = created.Pool
		}
		return created, nil
	case "Migrate":
		var indexed struct {
			Asset common.Address
			Pool  common.Address
		}
		if err := parseIndexed(event, log.Topics, &indexed); err != nil {
			return nil, err
		}
		return model.Migrated{
			EventMeta: log.EventMeta(),
			Asset:     addressString(indexed.Asset),
			Pool:      addressString(indexed.Pool),
			Protocol:  d.cfg.MigrationProtocol,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}
