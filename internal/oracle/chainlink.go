package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const aggregatorABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "latestRoundData", "outputs": [
    {"name": "roundId", "type": "uint80"},
    {"name": "answer", "type": "int256"},
    {"name": "startedAt", "type": "uint256"},
    {"name": "updatedAt", "type": "uint256"},
    {"name": "answeredInRound", "type": "uint80"}
  ], "stateMutability": "view", "type": "function"}
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

func aggregatorABIInstance() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// ContractCaller is satisfied by chain.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainlinkFeed reads an AggregatorV3 price feed.
type ChainlinkFeed struct {
	caller   ContractCaller
	address  common.Address
	mu       sync.Mutex
	decimals *uint8
}

func NewChainlinkFeed(caller ContractCaller, address common.Address) *ChainlinkFeed {
	return &ChainlinkFeed{caller: caller, address: address}
}

// Latest returns the answer scaled to WAD and its updatedAt time.
func (f *ChainlinkFeed) Latest(ctx context.Context) (*big.Int, uint64, error) {
	decimals, err := f.loadDecimals(ctx)
	if err != nil {
		return nil, 0, err
	}
	values, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return nil, 0, err
	}
	if len(values) != 5 {
		return nil, 0, fmt.Errorf("unexpected latestRoundData values: %d", len(values))
	}
	answer, ok := values[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return nil, 0, fmt.Errorf("invalid feed answer %v", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("invalid feed updatedAt %v", values[3])
	}
	return ScaleToWAD(answer, decimals), updatedAt.Uint64(), nil
}

func (f *ChainlinkFeed) loadDecimals(ctx context.Context) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decimals != nil {
		return *f.decimals, nil
	}
	values, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", values[0])
	}
	f.decimals = &decimals
	return decimals, nil
}

func (f *ChainlinkFeed) call(ctx context.Context, method string) ([]interface{}, error) {
	parsed, err := aggregatorABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// ScaleToWAD rescales a fixed-point value with the given decimals to 18 decimals.
func ScaleToWAD(value *big.Int, decimals uint8) *big.Int {
	out := new(big.Int).Set(value)
	switch {
	case decimals < 18:
		return out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil))
	case decimals > 18:
		return out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-18)), nil))
	default:
		return out
	}
}
