// Package graduation tracks how much quote a launch pool has raised against its threshold.
package graduation

import (
	"fmt"
	"math/big"

	"poolScope/internal/tickmath"
)

// Tracker holds the graduation balance of one pool. Balance never goes below zero.
type Tracker struct {
	balance   *big.Int
	threshold *big.Int
	margin    int32
}

// New restores a tracker from persisted values. A nil balance or threshold is zero.
func New(balance, threshold *big.Int, margin int32) *Tracker {
	t := &Tracker{balance: new(big.Int), threshold: new(big.Int), margin: margin}
	if balance != nil && balance.Sign() > 0 {
		t.balance.Set(balance)
	}
	if threshold != nil {
		t.threshold.Set(threshold)
	}
	return t
}

// OnLiquidityChange folds a mint (positive delta) or burn (negative delta) into the balance.
// It returns false when the range is near the global bounds and was skipped.
func (t *Tracker) OnLiquidityChange(tickLower, tickUpper int32, delta *big.Int, isBaseToken0 bool) (bool, error) {
	if delta == nil || delta.Sign() == 0 {
		return true, nil
	}
	if tickmath.IsNearBound(tickLower, tickUpper, t.margin) {
		return false, nil
	}
	amount, err := quoteAcross(tickLower, tickUpper, new(big.Int).Abs(delta), isBaseToken0)
	if err != nil {
		return false, err
	}
	if delta.Sign() > 0 {
		t.balance.Add(t.balance, amount)
	} else {
		t.balance.Sub(t.balance, amount)
		if t.balance.Sign() < 0 {
			t.balance.SetInt64(0)
		}
	}
	return true, nil
}

// OnProceedsObserved replaces the balance with a cumulative proceeds total.
func (t *Tracker) OnProceedsObserved(cumulative *big.Int) {
	if cumulative == nil || cumulative.Sign() < 0 {
		t.balance.SetInt64(0)
		return
	}
	t.balance.Set(cumulative)
}

func (t *Tracker) Balance() *big.Int   { return new(big.Int).Set(t.balance) }
func (t *Tracker) Threshold() *big.Int { return new(big.Int).Set(t.threshold) }

// Percentage is balance/threshold as a fraction, unclamped. Zero when there is no threshold.
func (t *Tracker) Percentage() float64 {
	if t.threshold.Sign() <= 0 {
		return 0
	}
	ratio := new(big.Rat).SetFrac(t.balance, t.threshold)
	value, _ := ratio.Float64()
	return value
}

// Complete reports whether the balance has reached the threshold.
func (t *Tracker) Complete() bool {
	return t.threshold.Sign() > 0 && t.balance.Cmp(t.threshold) >= 0
}

// ThresholdForCurve returns the quote raised by selling tokensOnCurve across [tickLower, tickUpper].
func ThresholdForCurve(tickLower, tickUpper int32, tokensOnCurve *big.Int, isBaseToken0 bool) (*big.Int, error) {
	if tokensOnCurve == nil || tokensOnCurve.Sign() <= 0 {
		return new(big.Int), nil
	}
	sqrtLower, sqrtUpper, err := rangeSqrt(tickLower, tickUpper)
	if err != nil {
		return nil, err
	}
	var liquidity *big.Int
	if isBaseToken0 {
		liquidity = tickmath.LiquidityForAmount0(sqrtLower, sqrtUpper, tokensOnCurve)
	} else {
		liquidity = tickmath.LiquidityForAmount1(sqrtLower, sqrtUpper, tokensOnCurve)
	}
	return quoteAcross(tickLower, tickUpper, liquidity, isBaseToken0)
}

func quoteAcross(tickLower, tickUpper int32, liquidity *big.Int, isBaseToken0 bool) (*big.Int, error) {
	sqrtLower, sqrtUpper, err := rangeSqrt(tickLower, tickUpper)
	if err != nil {
		return nil, err
	}
	if isBaseToken0 {
		return tickmath.Amount1Delta(sqrtLower, sqrtUpper, liquidity, true), nil
	}
	return tickmath.Amount0Delta(sqrtLower, sqrtUpper, liquidity, true), nil
}

func rangeSqrt(tickLower, tickUpper int32) (*big.Int, *big.Int, error) {
	if tickLower >= tickUpper {
		return nil, nil, fmt.Errorf("invalid range [%d, %d)", tickLower, tickUpper)
	}
	sqrtLower, err := tickmath.SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := tickmath.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	return sqrtLower, sqrtUpper, nil
}
