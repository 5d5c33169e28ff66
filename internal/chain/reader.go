package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/dex"
	"poolScope/internal/model"
)

// BatchCaller sends a set of eth_calls as one round trip.
type BatchCaller interface {
	BatchCall(ctx context.Context, calls []Call) ([]CallResult, error)
}

// Reader answers the contract state queries of the metrics engine.
// Every method issues one batch per dependent round and fails as a whole.
type Reader struct {
	caller      BatchCaller
	erc20       abi.ABI
	pair        abi.ABI
	pool        abi.ABI
	hook        abi.ABI
	initializer abi.ABI
}

func NewReader(caller BatchCaller) (*Reader, error) {
	r := &Reader{caller: caller}
	var err error
	if r.erc20, err = dex.ERC20ABI(); err != nil {
		return nil, err
	}
	if r.pair, err = dex.V2PairABI(); err != nil {
		return nil, err
	}
	if r.pool, err = dex.V3PoolABI(); err != nil {
		return nil, err
	}
	if r.hook, err = dex.HookABI(); err != nil {
		return nil, err
	}
	if r.initializer, err = dex.InitializerABI(); err != nil {
		return nil, err
	}
	return r, nil
}

type methodCall struct {
	contract abi.ABI
	method   string
	to       common.Address
	args     []interface{}
}

func (r *Reader) run(ctx context.Context, op string, block *big.Int, methods []methodCall) ([][]interface{}, error) {
	calls := make([]Call, len(methods))
	for i, m := range methods {
		data, err := m.contract.Pack(m.method, m.args...)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", m.method, err)
		}
		calls[i] = Call{To: m.to, Data: data, Block: block}
	}

	results, err := r.caller.BatchCall(ctx, calls)
	if err != nil {
		return nil, &ReadError{Op: op, Err: err}
	}
	if len(results) != len(calls) {
		return nil, &ReadError{Op: op, Err: fmt.Errorf("expected %d results, got %d", len(calls), len(results))}
	}

	out := make([][]interface{}, len(results))
	for i, result := range results {
		m := methods[i]
		if result.Err != nil {
			return nil, &ReadError{Op: op, Err: fmt.Errorf("%s on %s: %w", m.method, m.to.Hex(), result.Err)}
		}
		values, err := m.contract.Unpack(m.method, result.Data)
		if err != nil {
			return nil, &ReadError{Op: op, Err: fmt.Errorf("unpack %s on %s: %w", m.method, m.to.Hex(), err)}
		}
		out[i] = values
	}
	return out, nil
}

// Tokens reads decimals and total supply for every token. Keys are lower-case addresses.
func (r *Reader) Tokens(ctx context.Context, block *big.Int, tokens []string) (map[string]model.TokenInfo, error) {
	methods := make([]methodCall, 0, 2*len(tokens))
	for _, token := range tokens {
		to := common.HexToAddress(token)
		methods = append(methods,
			methodCall{contract: r.erc20, method: "decimals", to: to},
			methodCall{contract: r.erc20, method: "totalSupply", to: to},
		)
	}
	values, err := r.run(ctx, "tokens", block, methods)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.TokenInfo, len(tokens))
	for i, token := range tokens {
		decimals, ok := values[2*i][0].(uint8)
		if !ok {
			return nil, &ReadError{Op: "tokens", Err: fmt.Errorf("decimals of %s: unexpected %T", token, values[2*i][0])}
		}
		supply, err := toBig(values[2*i+1][0])
		if err != nil {
			return nil, &ReadError{Op: "tokens", Err: fmt.Errorf("totalSupply of %s: %w", token, err)}
		}
		key := strings.ToLower(token)
		out[key] = model.TokenInfo{Address: key, Decimals: decimals, TotalSupply: supply}
	}
	return out, nil
}

// TotalSupply reads the supply of one token.
func (r *Reader) TotalSupply(ctx context.Context, block *big.Int, token string) (*big.Int, error) {
	values, err := r.run(ctx, "totalSupply", block, []methodCall{
		{contract: r.erc20, method: "totalSupply", to: common.HexToAddress(token)},
	})
	if err != nil {
		return nil, err
	}
	return toBig(values[0][0])
}

// Balances reads token balances of several holders.
func (r *Reader) Balances(ctx context.Context, block *big.Int, token string, holders []string) (map[string]*big.Int, error) {
	to := common.HexToAddress(token)
	methods := make([]methodCall, len(holders))
	for i, holder := range holders {
		methods[i] = methodCall{contract: r.erc20, method: "balanceOf", to: to, args: []interface{}{common.HexToAddress(holder)}}
	}
	values, err := r.run(ctx, "balances", block, methods)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*big.Int, len(holders))
	for i, holder := range holders {
		balance, err := toBig(values[i][0])
		if err != nil {
			return nil, &ReadError{Op: "balances", Err: err}
		}
		out[strings.ToLower(holder)] = balance
	}
	return out, nil
}

// Slot0 reads the price state and active liquidity of a concentrated pool.
func (r *Reader) Slot0(ctx context.Context, block *big.Int, pool string) (model.Slot0, error) {
	to := common.HexToAddress(pool)
	values, err := r.run(ctx, "slot0", block, []methodCall{
		{contract: r.pool, method: "slot0", to: to},
		{contract: r.pool, method: "liquidity", to: to},
	})
	if err != nil {
		return model.Slot0{}, err
	}
	sqrtPrice, err := toBig(values[0][0])
	if err != nil {
		return model.Slot0{}, &ReadError{Op: "slot0", Err: err}
	}
	tick, err := toInt24(values[0][1])
	if err != nil {
		return model.Slot0{}, &ReadError{Op: "slot0", Err: err}
	}
	liquidity, err := toBig(values[1][0])
	if err != nil {
		return model.Slot0{}, &ReadError{Op: "slot0", Err: err}
	}
	return model.Slot0{SqrtPriceX96: sqrtPrice, Tick: tick, Liquidity: liquidity}, nil
}

// PairReserves reads constant-product reserves.
func (r *Reader) PairReserves(ctx context.Context, block *big.Int, pair string) (*big.Int, *big.Int, error) {
	values, err := r.run(ctx, "getReserves", block, []methodCall{
		{contract: r.pair, method: "getReserves", to: common.HexToAddress(pair)},
	})
	if err != nil {
		return nil, nil, err
	}
	reserves, err := toBigs(values[0][0], values[0][1])
	if err != nil {
		return nil, nil, &ReadError{Op: "getReserves", Err: err}
	}
	return reserves[0], reserves[1], nil
}

// HookState reads the curve configuration, cumulative totals and positions of a hook.
// Position salts run from 1 (lower slug) through 2 + numPDSlugs.
func (r *Reader) HookState(ctx context.Context, block *big.Int, hook string) (model.HookState, error) {
	to := common.HexToAddress(hook)
	values, err := r.run(ctx, "hookState", block, []methodCall{
		{contract: r.hook, method: "state", to: to},
		{contract: r.hook, method: "startingTick", to: to},
		{contract: r.hook, method: "endingTick", to: to},
		{contract: r.hook, method: "maximumProceeds", to: to},
		{contract: r.hook, method: "numTokensToSell", to: to},
		{contract: r.hook, method: "numPDSlugs", to: to},
	})
	if err != nil {
		return model.HookState{}, err
	}

	var state model.HookState
	totals, err := toBigs(values[0][2], values[0][3])
	if err != nil {
		return model.HookState{}, &ReadError{Op: "hookState", Err: err}
	}
	state.TotalTokensSold, state.TotalProceeds = totals[0], totals[1]
	if state.StartingTick, err = toInt24(values[1][0]); err != nil {
		return model.HookState{}, &ReadError{Op: "hookState", Err: err}
	}
	if state.EndingTick, err = toInt24(values[2][0]); err != nil {
		return model.HookState{}, &ReadError{Op: "hookState", Err: err}
	}
	config, err := toBigs(values[3][0], values[4][0], values[5][0])
	if err != nil {
		return model.HookState{}, &ReadError{Op: "hookState", Err: err}
	}
	state.MaximumProceeds, state.NumTokensToSell = config[0], config[1]
	if !config[2].IsUint64() || config[2].Uint64() > 255 {
		return model.HookState{}, &ReadError{Op: "hookState", Err: fmt.Errorf("numPDSlugs out of range: %s", config[2])}
	}

	slugs := 2 + int(config[2].Uint64())
	methods := make([]methodCall, slugs)
	for i := 0; i < slugs; i++ {
		var salt [32]byte
		salt[31] = byte(i + 1)
		methods[i] = methodCall{contract: r.hook, method: "getPositions", to: to, args: []interface{}{salt}}
	}
	positions, err := r.run(ctx, "hookPositions", block, methods)
	if err != nil {
		return model.HookState{}, err
	}
	for _, values := range positions {
		lower, err := toInt24(values[0])
		if err != nil {
			return model.HookState{}, &ReadError{Op: "hookPositions", Err: err}
		}
		upper, err := toInt24(values[1])
		if err != nil {
			return model.HookState{}, &ReadError{Op: "hookPositions", Err: err}
		}
		liquidity, err := toBig(values[2])
		if err != nil {
			return model.HookState{}, &ReadError{Op: "hookPositions", Err: err}
		}
		if liquidity.Sign() == 0 {
			continue
		}
		state.Positions = append(state.Positions, model.RangeLiquidity{TickLower: lower, TickUpper: upper, Liquidity: liquidity})
	}
	return state, nil
}

// CurveState reads what an initializer recorded for one of its pools.
func (r *Reader) CurveState(ctx context.Context, block *big.Int, initializer, pool string) (model.CurveState, error) {
	values, err := r.run(ctx, "getState", block, []methodCall{
		{contract: r.initializer, method: "getState", to: common.HexToAddress(initializer), args: []interface{}{common.HexToAddress(pool)}},
	})
	if err != nil {
		return model.CurveState{}, err
	}
	row := values[0]
	numeraire, ok := row[0].(common.Address)
	if !ok {
		return model.CurveState{}, &ReadError{Op: "getState", Err: fmt.Errorf("numeraire: unexpected %T", row[0])}
	}
	lower, err := toInt24(row[1])
	if err != nil {
		return model.CurveState{}, &ReadError{Op: "getState", Err: err}
	}
	upper, err := toInt24(row[2])
	if err != nil {
		return model.CurveState{}, &ReadError{Op: "getState", Err: err}
	}
	onCurve, err := toBig(row[7])
	if err != nil {
		return model.CurveState{}, &ReadError{Op: "getState", Err: err}
	}
	return model.CurveState{
		Numeraire:     strings.ToLower(numeraire.Hex()),
		TickLower:     lower,
		TickUpper:     upper,
		TokensOnCurve: onCurve,
	}, nil
}

func toBig(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func toBigs(values ...interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, value := range values {
		v, err := toBig(value)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toInt24(value interface{}) (int32, error) {
	v, err := toBig(value)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() || v.Int64() < -(1<<23) || v.Int64() >= 1<<23 {
		return 0, fmt.Errorf("int24 overflow: %s", v)
	}
	return int32(v.Int64()), nil
}
