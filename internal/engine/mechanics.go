package engine

import (
	"context"
	"fmt"
	"math/big"

	"poolScope/internal/model"
	"poolScope/internal/reserves"
	"poolScope/internal/tickmath"
)

// Legs are the signed changes of the pool's base and quote balances caused by a swap.
// Positive means the token entered the pool.
type Legs struct {
	Base  *big.Int
	Quote *big.Int
}

// Buy reports whether the swapper received base.
func (l Legs) Buy() bool { return l.Base.Sign() < 0 }

// Snapshot is the pool state right after an event.
type Snapshot struct {
	// SqrtPriceX96 is nil for constant-product pools, which are priced from reserves.
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
	BaseReserve  *big.Int
	QuoteReserve *big.Int
	// Cumulative totals, hook-based pools only.
	TotalProceeds   *big.Int
	TotalTokensSold *big.Int
}

// Mechanics is the per-protocol part of swap processing.
type Mechanics interface {
	Protocol() model.Protocol
	// Legs derives pool-side deltas from the raw swap fields.
	Legs(pool *model.Pool, event model.Event) (Legs, error)
	// State produces the post-swap snapshot, reading positions or chain state as needed.
	State(ctx context.Context, src stateSource, pool *model.Pool, event model.Event) (Snapshot, error)
}

// stateSource is what mechanics may read while building a snapshot.
type stateSource struct {
	chain     ChainState
	positions func(ctx context.Context, pool model.PoolKey) ([]reserves.Range, error)
}

// MechanicsFor returns the implementation for a protocol.
func MechanicsFor(protocol model.Protocol) (Mechanics, error) {
	switch protocol {
	case model.ProtocolConstantProduct:
		return constantProduct{}, nil
	case model.ProtocolConcentratedV3:
		return concentrated{protocol: model.ProtocolConcentratedV3}, nil
	case model.ProtocolConcentratedV4:
		return concentrated{protocol: model.ProtocolConcentratedV4, swapperSide: true}, nil
	case model.ProtocolHookBased:
		return hookBased{}, nil
	default:
		return nil, fmt.Errorf("no mechanics for protocol %s", protocol)
	}
}

func orient(amount0, amount1 *big.Int, isBaseToken0 bool) Legs {
	if isBaseToken0 {
		return Legs{Base: amount0, Quote: amount1}
	}
	return Legs{Base: amount1, Quote: amount0}
}

type constantProduct struct{}

func (constantProduct) Protocol() model.Protocol { return model.ProtocolConstantProduct }

func (constantProduct) Legs(pool *model.Pool, event model.Event) (Legs, error) {
	swap, ok := event.(model.ConstantProductSwap)
	if !ok {
		return Legs{}, fmt.Errorf("constant-product pool got %T", event)
	}
	amount0 := new(big.Int).Sub(model.BigOrZero(swap.Amount0In), model.BigOrZero(swap.Amount0Out))
	amount1 := new(big.Int).Sub(model.BigOrZero(swap.Amount1In), model.BigOrZero(swap.Amount1Out))
	return orient(amount0, amount1, pool.IsBaseToken0), nil
}

// State uses the reserves of the preceding Sync, reading the pair only when none was seen.
func (constantProduct) State(ctx context.Context, src stateSource, pool *model.Pool, event model.Event) (Snapshot, error) {
	base, quote := pool.BaseReserve, pool.QuoteReserve
	if base == nil || quote == nil || base.Sign() == 0 {
		reserve0, reserve1, err := src.chain.PairReserves(ctx, blockNumber(event.Meta()), pool.Key.ID)
		if err != nil {
			return Snapshot{}, err
		}
		oriented := reserves.Orient(reserve0, reserve1, pool.IsBaseToken0)
		base, quote = oriented.Base, oriented.Quote
	}
	return Snapshot{
		BaseReserve:  new(big.Int).Set(base),
		QuoteReserve: new(big.Int).Set(quote),
		Liquidity:    new(big.Int).Sqrt(new(big.Int).Mul(base, quote)),
	}, nil
}

// concentrated covers both V3 pools and V4 PoolManager pools. V4 reports swapper-side deltas.
type concentrated struct {
	protocol    model.Protocol
	swapperSide bool
}

func (c concentrated) Protocol() model.Protocol { return c.protocol }

func (c concentrated) Legs(pool *model.Pool, event model.Event) (Legs, error) {
	swap, ok := event.(model.ConcentratedSwap)
	if !ok {
		return Legs{}, fmt.Errorf("%s pool got %T", c.protocol, event)
	}
	amount0 := new(big.Int).Set(model.BigOrZero(swap.Amount0))
	amount1 := new(big.Int).Set(model.BigOrZero(swap.Amount1))
	if c.swapperSide {
		amount0.Neg(amount0)
		amount1.Neg(amount1)
	}
	return orient(amount0, amount1, pool.IsBaseToken0), nil
}

func (c concentrated) State(ctx context.Context, src stateSource, pool *model.Pool, event model.Event) (Snapshot, error) {
	swap, ok := event.(model.ConcentratedSwap)
	if !ok {
		return Snapshot{}, fmt.Errorf("%s pool got %T", c.protocol, event)
	}
	ranges, err := src.positions(ctx, pool.Key)
	if err != nil {
		return Snapshot{}, err
	}
	agg, err := reserves.Aggregate(swap.Tick, ranges, pool.IsBaseToken0, false)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		SqrtPriceX96: model.CopyBig(swap.SqrtPriceX96),
		Tick:         swap.Tick,
		Liquidity:    model.BigOrZero(swap.Liquidity),
		BaseReserve:  agg.Base,
		QuoteReserve: agg.Quote,
	}, nil
}

// hookBased pools report cumulative totals; legs are differences from the stored totals.
type hookBased struct{}

func (hookBased) Protocol() model.Protocol { return model.ProtocolHookBased }

func (hookBased) Legs(pool *model.Pool, event model.Event) (Legs, error) {
	swap, ok := event.(model.HookSwap)
	if !ok {
		return Legs{}, fmt.Errorf("hook-based pool got %T", event)
	}
	sold := new(big.Int).Sub(model.BigOrZero(swap.TotalTokensSold), model.BigOrZero(pool.TotalTokensSold))
	proceeds := new(big.Int).Sub(model.BigOrZero(swap.TotalProceeds), model.BigOrZero(pool.TotalProceeds))
	return Legs{Base: sold.Neg(sold), Quote: proceeds}, nil
}

func (hookBased) State(ctx context.Context, src stateSource, pool *model.Pool, event model.Event) (Snapshot, error) {
	swap, ok := event.(model.HookSwap)
	if !ok {
		return Snapshot{}, fmt.Errorf("hook-based pool got %T", event)
	}
	tick := tickmath.ClampTick(swap.CurrentTick)
	sqrtPrice, err := tickmath.SqrtRatioAtTick(tick)
	if err != nil {
		return Snapshot{}, err
	}
	state, err := src.chain.HookState(ctx, blockNumber(event.Meta()), pool.Hook)
	if err != nil {
		return Snapshot{}, err
	}
	ranges := rangesFromHook(state.Positions)
	agg, err := reserves.Aggregate(tick, ranges, pool.IsBaseToken0, false)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		SqrtPriceX96:    sqrtPrice,
		Tick:            tick,
		Liquidity:       reserves.ActiveLiquidity(tick, ranges),
		BaseReserve:     agg.Base,
		QuoteReserve:    agg.Quote,
		TotalProceeds:   model.BigOrZero(swap.TotalProceeds),
		TotalTokensSold: model.BigOrZero(swap.TotalTokensSold),
	}, nil
}

func rangesFromHook(positions []model.RangeLiquidity) []reserves.Range {
	out := make([]reserves.Range, 0, len(positions))
	for _, p := range positions {
		if p.TickLower >= p.TickUpper {
			continue
		}
		out = append(out, reserves.Range{TickLower: p.TickLower, TickUpper: p.TickUpper, Liquidity: model.BigOrZero(p.Liquidity)})
	}
	return out
}
