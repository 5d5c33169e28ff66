package pricing

import (
	"math/big"

	"poolScope/internal/model"
)

// QuoteToUSD converts a raw quote amount into WAD USD given the WAD USD price of one quote token.
func QuoteToUSD(amount *big.Int, quoteDecimals uint8, quoteUSD *big.Int) *big.Int {
	if amount == nil || quoteUSD == nil {
		return new(big.Int)
	}
	out := new(big.Int).Abs(amount)
	out.Mul(out, quoteUSD)
	return out.Quo(out, model.Pow10(quoteDecimals))
}

// BaseToQuote converts a raw base amount into raw quote units at price.
func BaseToQuote(amount, price *big.Int, baseDecimals uint8) *big.Int {
	if amount == nil || price == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, price)
	return out.Quo(out, model.Pow10(baseDecimals))
}

// DollarLiquidity values both reserve legs in USD.
func DollarLiquidity(baseReserve, quoteReserve, price *big.Int, baseDecimals, quoteDecimals uint8, quoteUSD *big.Int) *big.Int {
	quoteEquivalent := BaseToQuote(baseReserve, price, baseDecimals)
	if quoteReserve != nil {
		quoteEquivalent.Add(quoteEquivalent, quoteReserve)
	}
	return QuoteToUSD(quoteEquivalent, quoteDecimals, quoteUSD)
}

// MarketCap values the full base supply in USD.
func MarketCap(totalSupply, price *big.Int, baseDecimals, quoteDecimals uint8, quoteUSD *big.Int) *big.Int {
	return QuoteToUSD(BaseToQuote(totalSupply, price, baseDecimals), quoteDecimals, quoteUSD)
}
