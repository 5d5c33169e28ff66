package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// V3PoolDecoder decodes Uniswap V3 style pool Swap, Mint and Burn logs.
type V3PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

func NewV3PoolDecoder() (*V3PoolDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	return &V3PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicNames(poolABI, "Swap", "Mint", "Burn"),
	}, nil
}

func (d *V3PoolDecoder) Name() string { return "v3-pool" }

func (d *V3PoolDecoder) Topics() []common.Hash {
	return topicHashes(d.poolABI, "Swap", "Mint", "Burn")
}

func (d *V3PoolDecoder) Decode(log model.LogRecord) (model.Event, error) {
	name, err := eventName(d.topicToName, log)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}

	switch name {
	case "Swap":
		return d.decodeSwap(log)
	case "Mint":
		return d.decodeLiquidity(log, "Mint", 4, 1, false)
	case "Burn":
		return d.decodeLiquidity(log, "Burn", 3, 0, true)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *V3PoolDecoder) decodeSwap(log model.LogRecord) (model.Event, error) {
	event := d.poolABI.Events["Swap"]
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data, 5)
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

	return model.ConcentratedSwap{
		EventMeta:    log.EventMeta(),
		Protocol:     model.ProtocolConcentratedV3,
		Pool:         normalizeAddress(log.Address),
		Sender:       addressString(indexed.Sender),
		Recipient:    addressString(indexed.Recipient),
		Amount0:      amounts[0],
		Amount1:      amounts[1],
		SqrtPriceX96: amounts[2],
		Liquidity:    amounts[3],
		Tick:         tick,
	}, nil
}

// decodeLiquidity handles Mint and Burn, which differ in the position of the amount field.
func (d *V3PoolDecoder) decodeLiquidity(log model.LogRecord, name string, want, amountIdx int, negate bool) (model.Event, error) {
	event := d.poolABI.Events[name]
	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data, want)
	if err != nil {
		return nil, err
	}
	amount, err := asBigInt(values[amountIdx])
	if err != nil {
		return nil, err
	}
	if negate {
		amount.Neg(amount)
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return nil, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return nil, err
	}

	return model.LiquidityChanged{
		EventMeta:      log.EventMeta(),
		Protocol:       model.ProtocolConcentratedV3,
		Pool:           normalizeAddress(log.Address),
		Owner:          addressString(indexed.Owner),
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		LiquidityDelta: amount,
	}, nil
}

func normalizeAddress(address string) string {
	return addressString(common.HexToAddress(address))
}
