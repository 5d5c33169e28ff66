package model

import "math/big"

// Slot0 is the live price state of a concentrated pool.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// RangeLiquidity is liquidity deployed by a contract over one tick range.
type RangeLiquidity struct {
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
}

// HookState is the bonding-curve state a hook exposes.
type HookState struct {
	Positions       []RangeLiquidity
	StartingTick    int32
	EndingTick      int32
	MaximumProceeds *big.Int
	NumTokensToSell *big.Int
	TotalProceeds   *big.Int
	TotalTokensSold *big.Int
}

// CurveState is what a liquidity-delta initializer records for one launch pool.
type CurveState struct {
	Numeraire     string
	TickLower     int32
	TickUpper     int32
	TokensOnCurve *big.Int
}
