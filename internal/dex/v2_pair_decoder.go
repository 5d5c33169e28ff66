package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// V2PairDecoder decodes constant-product pair Swap and Sync logs.
type V2PairDecoder struct {
	pairABI     abi.ABI
	topicToName map[string]string
}

func NewV2PairDecoder() (*V2PairDecoder, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, err
	}
	return &V2PairDecoder{pairABI: pairABI, topicToName: topicNames(pairABI, "Swap", "Sync")}, nil
}

func (d *V2PairDecoder) Name() string { return "v2-pair" }

func (d *V2PairDecoder) Topics() []common.Hash { return topicHashes(d.pairABI, "Swap", "Sync") }

func (d *V2PairDecoder) Decode(log model.LogRecord) (model.Event, error) {
	name, err := eventName(d.topicToName, log)
	if err != nil {
		return nil, err
	}
	event := d.pairABI.Events[name]

	switch name {
	case "Swap":
		var indexed struct {
			Sender common.Address
			To     common.Address
		}
		if err := parseIndexed(event, log.Topics, &indexed); err != nil {
			return nil, err
		}
		values, err := unpackNonIndexed(event, log.Data, 4)
		if err != nil {
			return nil, err
		}
		amounts, err := bigs(values...)
		if err != nil {
			return nil, err
		}
		return model.ConstantProductSwap{
			EventMeta:  log.EventMeta(),
			Pool:       normalizeAddress(log.Address),
			Sender:     addressString(indexed.Sender),
			Recipient:  addressString(indexed.To),
			Amount0In:  amounts[0],
			Amount1In:  amounts[1],
			Amount0Out: amounts[2],
			Amount1Out: amounts[3],
		}, nil
	case "Sync":
		if len(log.Topics) != 1 {
			return nil, fmt.Errorf("expected 1 topic, got %d", len(log.Topics))
		}
		values, err := unpackNonIndexed(event, log.Data, 2)
		if err != nil {
			return nil, err
		}
		reserves, err := bigs(values...)
		if err != nil {
			return nil, err
		}
		return model.Sync{
			EventMeta: log.EventMeta(),
			Pool:      normalizeAddress(log.Address),
			Reserve0:  reserves[0],
			Reserve1:  reserves[1],
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}
