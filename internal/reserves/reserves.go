// Package reserves integrates per-range liquidity into token reserves at the current tick.
package reserves

import (
	"fmt"
	"math/big"

	"poolScope/internal/model"
	"poolScope/internal/tickmath"
)

// DefaultNearBoundMargin is the tick distance from the global bounds treated as full range.
const DefaultNearBoundMargin int32 = 1000

// Range is liquidity deployed across [TickLower, TickUpper).
type Range struct {
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
}

// FromPositions lifts stored positions into ranges.
func FromPositions(positions []model.Position) []Range {
	out := make([]Range, 0, len(positions))
	for _, p := range positions {
		out = append(out, Range{TickLower: p.Key.TickLower, TickUpper: p.Key.TickUpper, Liquidity: model.BigOrZero(p.Liquidity)})
	}
	return out
}

// NearBound reports whether the range should be excluded from graduation deltas.
func (r Range) NearBound(margin int32) bool {
	return tickmath.IsNearBound(r.TickLower, r.TickUpper, margin)
}

// Contains reports whether tick is inside the active interval of the range.
func (r Range) Contains(tick int32) bool {
	return tick >= r.TickLower && tick < r.TickUpper
}

// Reserves is the result of an aggregation, in both token and base/quote orientation.
type Reserves struct {
	Token0 *big.Int
	Token1 *big.Int
	Base   *big.Int
	Quote  *big.Int
}

// Amounts returns the token0 and token1 held by one range at currentTick.
func Amounts(currentTick int32, r Range, roundUp bool) (*big.Int, *big.Int, error) {
	if r.TickLower >= r.TickUpper {
		return nil, nil, fmt.Errorf("invalid range [%d, %d)", r.TickLower, r.TickUpper)
	}
	liquidity := model.BigOrZero(r.Liquidity)
	if liquidity.Sign() < 0 {
		return nil, nil, fmt.Errorf("negative liquidity in range [%d, %d)", r.TickLower, r.TickUpper)
	}
	sqrtLower, err := tickmath.SqrtRatioAtTick(r.TickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := tickmath.SqrtRatioAtTick(r.TickUpper)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case currentTick < r.TickLower:
		return tickmath.Amount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp), new(big.Int), nil
	case currentTick >= r.TickUpper:
		return new(big.Int), tickmath.Amount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp), nil
	default:
		sqrtCurrent, err := tickmath.SqrtRatioAtTick(currentTick)
		if err != nil {
			return nil, nil, err
		}
		amount0 := tickmath.Amount0Delta(sqrtCurrent, sqrtUpper, liquidity, roundUp)
		amount1 := tickmath.Amount1Delta(sqrtLower, sqrtCurrent, liquidity, roundUp)
		return amount0, amount1, nil
	}
}

// Aggregate sums the reserves of every range and orients them to base/quote.
func Aggregate(currentTick int32, ranges []Range, isBaseToken0 bool, roundUp bool) (Reserves, error) {
	total0, total1 := new(big.Int), new(big.Int)
	for _, r := range ranges {
		amount0, amount1, err := Amounts(currentTick, r, roundUp)
		if err != nil {
			return Reserves{}, err
		}
		total0.Add(total0, amount0)
		total1.Add(total1, amount1)
	}
	return Orient(total0, total1, isBaseToken0), nil
}

// Orient maps token0/token1 amounts onto base/quote.
func Orient(amount0, amount1 *big.Int, isBaseToken0 bool) Reserves {
	out := Reserves{Token0: amount0, Token1: amount1}
	if isBaseToken0 {
		out.Base, out.Quote = amount0, amount1
	} else {
		out.Base, out.Quote = amount1, amount0
	}
	return out
}

// ActiveLiquidity sums the liquidity of ranges containing currentTick.
func ActiveLiquidity(currentTick int32, ranges []Range) *big.Int {
	total := new(big.Int)
	for _, r := range ranges {
		if r.Contains(currentTick) && r.Liquidity != nil {
			total.Add(total, r.Liquidity)
		}
	}
	return total
}
