// Package pricing converts square-root prices and reserves into WAD scaled quote-per-base prices
// and derives the USD figures built on them.
package pricing

import (
	"math/big"

	"poolScope/internal/model"
	"poolScope/internal/tickmath"
)

var (
	// WAD is the 1e18 fixed-point scale used by prices and USD amounts.
	WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// SentinelPrice is the unscaled ratio observed for a pool pinned at MaxTick. Treated as an
	// opaque value; SentinelFor scales it to a base token's decimals.
	SentinelPrice, _ = new(big.Int).SetString("340256786836388094050805785052946541084", 10)
)

// FromSqrtPrice returns the price of one whole base token in raw quote units.
// baseDecimals scales the result so that an 18 decimal base yields a WAD price.
func FromSqrtPrice(sqrtPriceX96 *big.Int, isBaseToken0 bool, baseDecimals uint8) *big.Int {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return new(big.Int)
	}
	ratio := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	scale := model.Pow10(baseDecimals)
	if isBaseToken0 {
		return tickmath.MulDiv(ratio, scale, tickmath.Q192)
	}
	return tickmath.MulDiv(tickmath.Q192, scale, ratio)
}

// FromReserves returns quoteReserve * 10^baseDecimals / baseReserve, zero for an empty pool.
func FromReserves(baseReserve, quoteReserve *big.Int, baseDecimals uint8) *big.Int {
	if baseReserve == nil || quoteReserve == nil || baseReserve.Sign() <= 0 {
		return new(big.Int)
	}
	return tickmath.MulDiv(quoteReserve, model.Pow10(baseDecimals), baseReserve)
}

// FromTick prices a pool that reports a tick rather than a square-root price.
func FromTick(tick int32, isBaseToken0 bool, baseDecimals uint8) (*big.Int, error) {
	sqrt, err := tickmath.SqrtRatioAtTick(tick)
	if err != nil {
		return nil, err
	}
	return FromSqrtPrice(sqrt, isBaseToken0, baseDecimals), nil
}

// SqrtPriceFromPrice inverts FromSqrtPrice up to integer rounding.
func SqrtPriceFromPrice(price *big.Int, isBaseToken0 bool, baseDecimals uint8) *big.Int {
	if price == nil || price.Sign() <= 0 {
		return new(big.Int)
	}
	scale := model.Pow10(baseDecimals)
	var ratio *big.Int
	if isBaseToken0 {
		ratio = tickmath.MulDiv(price, tickmath.Q192, scale)
	} else {
		ratio = tickmath.MulDiv(tickmath.Q192, scale, price)
	}
	return new(big.Int).Sqrt(ratio)
}

// SentinelFor returns SentinelPrice at the scale FromSqrtPrice uses for baseDecimals.
func SentinelFor(baseDecimals uint8) *big.Int {
	return new(big.Int).Mul(SentinelPrice, model.Pow10(baseDecimals))
}

// IsSentinel reports whether price is the MaxTick sentinel for a base with baseDecimals.
// Square-root prices on the bound itself are caught by AtBound.
func IsSentinel(price *big.Int, baseDecimals uint8) bool {
	return price != nil && price.Cmp(SentinelFor(baseDecimals)) == 0
}

// AtBound reports whether a square-root price sits on either global bound. A zero price is unset.
func AtBound(sqrtPriceX96 *big.Int) bool {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return false
	}
	return sqrtPriceX96.Cmp(tickmath.MinSqrtRatio) <= 0 || sqrtPriceX96.Cmp(tickmath.MaxSqrtRatio) >= 0
}
