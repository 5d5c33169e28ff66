package dex

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// HookDecoder decodes the cumulative Swap log emitted by bonding-curve hooks.
type HookDecoder struct {
	hookABI     abi.ABI
	topicToName map[string]string
}

func NewHookDecoder() (*HookDecoder, error) {
	hookABI, err := HookABI()
	if err != nil {
		return nil, err
	}
	return &HookDecoder{hookABI: hookABI, topicToName: topicNames(hookABI, "Swap")}, nil
}

func (d *HookDecoder) Name() string { return "hook" }

func (d *HookDecoder) Topics() []common.Hash { return topicHashes(d.hookABI, "Swap") }

func (d *HookDecoder) Decode(log model.LogRecord) (model.Event, error) {
	if _, err := eventName(d.topicToName, log); err != nil {
		return nil, err
	}
	event := d.hookABI.Events["Swap"]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return nil, err
	}
	tick, err := asInt24(values[0])
	if err != nil {
		return nil, err
	}
	totals, err := bigs(values[1], values[2])
	if err != nil {
		return nil, err
	}
	return model.HookSwap{
		EventMeta:       log.EventMeta(),
		Hook:            normalizeAddress(log.Address),
		CurrentTick:     tick,
		TotalProceeds:   totals[0],
		TotalTokensSold: totals[1],
	}, nil
}
