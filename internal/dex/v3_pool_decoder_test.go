package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolScope/internal/model"
)

func TestV3PoolDecoderSwap(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder, err := NewV3PoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-1000),
		big.NewInt(2000),
		big.NewInt(123456789),
		big.NewInt(987654321),
		big.NewInt(-15),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	logRecord := buildLogRecord(pool, poolABI.Events["Swap"].ID, data, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(recipient),
	})

	event, err := decoder.Decode(logRecord)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}

	swap, ok := event.(model.ConcentratedSwap)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", event)
	}
	if swap.Protocol != model.ProtocolConcentratedV3 {
		t.Fatalf("protocol mismatch: %s", swap.Protocol)
	}
	if swap.Amount0.Int64() != -1000 || swap.Amount1.Int64() != 2000 {
		t.Fatalf("amounts mismatch: %+v", swap)
	}
	if swap.SqrtPriceX96.Int64() != 123456789 || swap.Liquidity.Int64() != 987654321 {
		t.Fatalf("state mismatch: %+v", swap)
	}
	if swap.Tick != -15 {
		t.Fatalf("tick mismatch: %d", swap.Tick)
	}
	if swap.Pool != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("pool mismatch: %s", swap.Pool)
	}
	if swap.Sender != addressString(sender) || swap.Recipient != addressString(recipient) {
		t.Fatalf("address mismatch")
	}
	if swap.Cursor() != (model.Cursor{Block: 12345, LogIndex: 1}) {
		t.Fatalf("cursor mismatch: %+v", swap.Cursor())
	}
}

func TestV3PoolDecoderMintBurn(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	decoder, err := NewV3PoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	sender := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	mintData, err := poolABI.Events["Mint"].Inputs.NonIndexed().Pack(
		sender,
		big.NewInt(5000),
		big.NewInt(100),
		big.NewInt(200),
	)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}

	mintLog := buildLogRecord(pool, poolABI.Events["Mint"].ID, mintData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-120),
		topicFromInt24(120),
	})

	mintEvent, err := decoder.Decode(mintLog)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}

	mint, ok := mintEvent.(model.LiquidityChanged)
	if !ok {
		t.Fatalf("mint type mismatch: %T", mintEvent)
	}
	if mint.TickLower != -120 || mint.TickUpper != 120 {
		t.Fatalf("mint tick mismatch: %+v", mint)
	}
	if mint.LiquidityDelta.Int64() != 5000 || mint.Name() != "Mint" {
		t.Fatalf("mint amount mismatch: %+v", mint)
	}
	if mint.Owner != addressString(owner) {
		t.Fatalf("mint owner mismatch: %s", mint.Owner)
	}

	burnData, err := poolABI.Events["Burn"].Inputs.NonIndexed().Pack(
		big.NewInt(7000),
		big.NewInt(300),
		big.NewInt(400),
	)
	if err != nil {
		t.Fatalf("pack burn: %v", err)
	}

	burnLog := buildLogRecord(pool, poolABI.Events["Burn"].ID, burnData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-60),
		topicFromInt24(60),
	})

	burnEvent, err := decoder.Decode(burnLog)
	if err != nil {
		t.Fatalf("decode burn: %v", err)
	}

	burn, ok := burnEvent.(model.LiquidityChanged)
	if !ok {
		t.Fatalf("burn type mismatch: %T", burnEvent)
	}
	if burn.LiquidityDelta.Int64() != -7000 || burn.Name() != "Burn" {
		t.Fatalf("burn amount mismatch: %+v", burn)
	}
	if burn.TickLower != -60 || burn.TickUpper != 60 {
		t.Fatalf("burn tick mismatch: %+v", burn)
	}
}

func TestV3PoolDecoderRejectsTopicCount(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewV3PoolDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	logRecord := buildLogRecord(pool, poolABI.Events["Swap"].ID, nil, []common.Hash{
		topicFromAddress(pool),
	})
	if _, err := decoder.Decode(logRecord); err == nil {
		t.Fatalf("expected error for missing topics")
	}
}

func buildLogRecord(address common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     56,
		BlockNumber: 12345,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    1,
		Address:     address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromInt24(value int32) common.Hash {
	bigVal := big.NewInt(int64(value))
	if value < 0 {
		bigVal = new(big.Int).Add(bigVal, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(bigVal)
}
