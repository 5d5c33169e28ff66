package tickmath

import "math/big"

// Amount0Delta returns liquidity * (1/sqrt(a) - 1/sqrt(b)) in token0 units.
func Amount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Sign() <= 0 || liquidity.Sign() == 0 {
		return new(big.Int)
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		return divRoundingUp(mulDivRoundingUp(numerator1, numerator2, sqrtB), sqrtA)
	}
	return new(big.Int).Quo(mulDiv(numerator1, numerator2, sqrtB), sqrtA)
}

// Amount1Delta returns liquidity * (sqrt(b) - sqrt(a)) in token1 units.
func Amount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if liquidity.Sign() == 0 {
		return new(big.Int)
	}

	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}

// LiquidityForAmount0 returns the liquidity that holds amount0 across [sqrtA, sqrtB].
func LiquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if diff.Sign() == 0 {
		return new(big.Int)
	}
	intermediate := mulDiv(sqrtA, sqrtB, Q96)
	return mulDiv(amount0, intermediate, diff)
}

// LiquidityForAmount1 returns the liquidity that holds amount1 across [sqrtA, sqrtB].
func LiquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if diff.Sign() == 0 {
		return new(big.Int)
	}
	return mulDiv(amount1, Q96, diff)
}

func mulDiv(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denominator)
}

func mulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	quo, rem := new(big.Int).QuoRem(product, denominator, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

func divRoundingUp(a, denominator *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(a, denominator, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

// MulDiv computes floor(a*b/denominator) for non-negative inputs.
func MulDiv(a, b, denominator *big.Int) *big.Int {
	return mulDiv(a, b, denominator)
}

// MulDivRoundingUp computes ceil(a*b/denominator) for non-negative inputs.
func MulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	return mulDivRoundingUp(a, b, denominator)
}
