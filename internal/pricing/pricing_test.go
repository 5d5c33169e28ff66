package pricing

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"poolScope/internal/tickmath"
)

func TestFromSqrtPriceAtTickZero(t *testing.T) {
	price := FromSqrtPrice(tickmath.Q96, true, 18)
	require.Equal(t, 0, price.Cmp(WAD))

	price = FromSqrtPrice(tickmath.Q96, false, 18)
	require.Equal(t, 0, price.Cmp(WAD))
}

func TestFromSqrtPriceOrientation(t *testing.T) {
	// sqrt = 2 * Q96 means token1/token0 = 4.
	sqrt := new(big.Int).Lsh(tickmath.Q96, 1)
	base0 := FromSqrtPrice(sqrt, true, 18)
	require.Equal(t, 0, base0.Cmp(new(big.Int).Mul(big.NewInt(4), WAD)))

	base1 := FromSqrtPrice(sqrt, false, 18)
	require.Equal(t, 0, base1.Cmp(new(big.Int).Quo(WAD, big.NewInt(4))))
}

func TestFromSqrtPriceZero(t *testing.T) {
	require.Zero(t, FromSqrtPrice(big.NewInt(0), true, 18).Sign())
	require.Zero(t, FromSqrtPrice(nil, false, 18).Sign())
}

func TestFromReserves(t *testing.T) {
	base := new(big.Int).Mul(big.NewInt(1000), WAD)
	quote := new(big.Int).Mul(big.NewInt(5), WAD)
	price := FromReserves(base, quote, 18)
	require.Equal(t, "5000000000000000", price.String())

	require.Zero(t, FromReserves(new(big.Int), quote, 18).Sign())
}

func TestSqrtPriceInvertibility(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		tick := int32(rng.Intn(400001) - 200000)
		sqrt := tickmath.MustSqrtRatioAtTick(tick)
		for _, base0 := range []bool{true, false} {
			price := FromSqrtPrice(sqrt, base0, 18)
			back := SqrtPriceFromPrice(price, base0, 18)

			diff := new(big.Int).Sub(back, sqrt)
			diff.Abs(diff)
			tolerance := new(big.Int).Quo(sqrt, big.NewInt(1_000_000))
			require.LessOrEqualf(t, diff.Cmp(tolerance), 0, "tick %d base0 %v: sqrt %s back %s", tick, base0, sqrt, back)
		}
	}
}

func TestFromTickMatchesSqrt(t *testing.T) {
	price, err := FromTick(0, true, 18)
	require.NoError(t, err)
	require.Equal(t, 0, price.Cmp(WAD))

	_, err = FromTick(tickmath.MaxTick+1, true, 18)
	require.Error(t, err)
}

func TestSentinelAndBounds(t *testing.T) {
	require.True(t, IsSentinel(new(big.Int).Set(SentinelPrice), 0))
	require.False(t, IsSentinel(WAD, 0))
	require.False(t, IsSentinel(new(big.Int).Set(SentinelPrice), 18))
	require.True(t, IsSentinel(new(big.Int).Mul(SentinelPrice, WAD), 18))
	require.True(t, IsSentinel(SentinelFor(6), 6))
	require.True(t, AtBound(tickmath.MaxSqrtRatio))
	require.True(t, AtBound(tickmath.MinSqrtRatio))
	require.False(t, AtBound(tickmath.Q96))
	require.False(t, AtBound(new(big.Int)))
}

func TestUSDDerivations(t *testing.T) {
	usd := new(big.Int).Mul(big.NewInt(2000), WAD) // one quote token = $2000
	price := new(big.Int).Quo(WAD, big.NewInt(1000)) // one base = 0.001 quote

	base := new(big.Int).Mul(big.NewInt(1_000_000), WAD)
	quote := new(big.Int).Mul(big.NewInt(10), WAD)

	// base leg: 1000 quote, plus 10 quote = 1010 quote = $2,020,000
	liq := DollarLiquidity(base, quote, price, 18, 18, usd)
	require.Equal(t, 0, liq.Cmp(new(big.Int).Mul(big.NewInt(2_020_000), WAD)))

	mcap := MarketCap(base, price, 18, 18, usd)
	require.Equal(t, 0, mcap.Cmp(new(big.Int).Mul(big.NewInt(2_000_000), WAD)))

	// six decimal quote: 2.5 units at $1
	swap := QuoteToUSD(big.NewInt(-2_500_000), 6, WAD)
	require.Equal(t, "2500000000000000000", swap.String())
}
