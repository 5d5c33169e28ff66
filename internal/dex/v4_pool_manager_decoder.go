package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolScope/internal/model"
)

// V4PoolManagerDecoder decodes singleton PoolManager logs. Pools are identified by their bytes32 id.
type V4PoolManagerDecoder struct {
	managerABI  abi.ABI
	topicToName map[string]string
}

func NewV4PoolManagerDecoder() (*V4PoolManagerDecoder, error) {
	managerABI, err := V4PoolManagerABI()
	if err != nil {
		return nil, err
	}
	return &V4PoolManagerDecoder{
		managerABI:  managerABI,
		topicToName: topicNames(managerABI, "Initialize", "ModifyLiquidity", "Swap"),
	}, nil
}

func (d *V4PoolManagerDecoder) Name() string { return "v4-pool-manager" }

func (d *V4PoolManagerDecoder) Topics() []common.Hash {
	return topicHashes(d.managerABI, "Initialize", "ModifyLiquidity", "Swap")
}

func (d *V4PoolManagerDecoder) Decode(log model.LogRecord) (model.Event, error) {
	name, err := eventName(d.topicToName, log)
	if err != nil {
		return nil, err
	}
	switch name {
	case "Initialize":
		return d.decodeInitialize(log)
	case "ModifyLiquidity":
		return d.decodeModifyLiquidity(log)
	case "Swap":
		return d.decodeSwap(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *V4PoolManagerDecoder) decodeInitialize(log model.LogRecord) (model.Event, error) {
	event := d.managerABI.Events["Initialize"]
	var indexed struct {
		Id        [32]byte
		Currency0 common.Address
		Currency1 common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 5)
	if err != nil {
		return nil, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	tickSpacing, err := asInt24(values[1])
	if err != nil {
		return nil, err
	}
	hooks, err := asAddress(values[2])
	if err != nil {
		return nil, err
	}
	sqrtPrice, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}
	tick, err := asInt24(values[4])
	if err != nil {
		return nil, err
	}
	return model.PoolInitialized{
		EventMeta:    log.EventMeta(),
		PoolID:       poolIDString(indexed.Id),
		Currency0:    addressString(indexed.Currency0),
		Currency1:    addressString(indexed.Currency1),
		Fee:          uint32(fee.Uint64()),
		TickSpacing:  tickSpacing,
		Hooks:        addressString(hooks),
		SqrtPriceX96: sqrtPrice,
		Tick:         tick,
	}, nil
}

func (d *V4PoolManagerDecoder) decodeModifyLiquidity(log model.LogRecord) (model.Event, error) {
	event := d.managerABI.Events["ModifyLiquidity"]
	var indexed struct {
		Id     [32]byte
		Sender common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 4)
	if err != nil {
		return nil, err
	}
	tickLower, err := asInt24(values[0])
	if err != nil {
		return nil, err
	}
	tickUpper, err := asInt24(values[1])
	if err != nil {
		return nil, err
	}
	delta, err := asBigInt(values[2])
	if err != nil {
		return nil, err
	}
	return model.LiquidityChanged{
		EventMeta:      log.EventMeta(),
		Protocol:       model.ProtocolConcentratedV4,
		Pool:           poolIDString(indexed.Id),
		Owner:          addressString(indexed.Sender),
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		LiquidityDelta: delta,
	}, nil
}

func (d *V4PoolManagerDecoder) decodeSwap(log model.LogRecord) (model.Event, error) {
	event := d.managerABI.Events["Swap"]
	var indexed struct {
		Id     [32]byte
		Sender common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 6)
	if err != nil {
		return nil, err
	}
	amounts, err := bigs(values[0], values[1], values[2], values[3])
	if err != nil {
		return nil, err
	}
	tick, err := asInt24(values[4])
	if err != nil {
		return nil, err
	}
	fee, err := asBigInt(values[5])
	if err != nil {
		return nil, err
	}
	return model.ConcentratedSwap{
		EventMeta:    log.EventMeta(),
		Protocol:     model.ProtocolConcentratedV4,
		Pool:         poolIDString(indexed.Id),
		Sender:       addressString(indexed.Sender),
		Amount0:      amounts[0],
		Amount1:      amounts[1],
		SqrtPriceX96: amounts[2],
		Liquidity:    amounts[3],
		Tick:         tick,
		Fee:          uint32(fee.Uint64()),
	}, nil
}

func poolIDString(id [32]byte) string {
	return strings.ToLower(hexutil.Encode(id[:]))
}
