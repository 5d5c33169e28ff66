package engine

import (
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"poolScope/internal/chain"
	"poolScope/internal/graduation"
	"poolScope/internal/model"
	"poolScope/internal/pricing"
	"poolScope/internal/reserves"
	"poolScope/internal/tickmath"
)

func mint(block, logIndex, ts uint64, lower, upper int32, delta *big.Int) model.LiquidityChanged {
	return model.LiquidityChanged{
		EventMeta:      meta(block, logIndex, ts),
		Protocol:       model.ProtocolConcentratedV3,
		Pool:           launchPool,
		Owner:          holderA,
		TickLower:      lower,
		TickUpper:      upper,
		LiquidityDelta: delta,
	}
}

func v3Swap(block, logIndex, ts uint64, amount0, amount1, sqrtPrice, liquidity *big.Int, tick int32) model.ConcentratedSwap {
	return model.ConcentratedSwap{
		EventMeta:    meta(block, logIndex, ts),
		Protocol:     model.ProtocolConcentratedV3,
		Pool:         launchPool,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         tick,
	}
}

func TestPoolCreatedInsertsPoolAssetAndTokens(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	h.createV3Launch(100)

	pool := h.pool(launchPool)
	require.NotNil(t, pool)
	require.Equal(t, model.ProtocolConcentratedV3, pool.Protocol)
	require.True(t, pool.IsBaseToken0)
	require.Equal(t, 0, pool.Price.Cmp(wad))
	require.Equal(t, uint64(100), pool.CreatedBlock)

	threshold, err := graduation.ThresholdForCurve(-20000, 0, ether(1_000_000), true)
	require.NoError(t, err)
	require.Equal(t, 0, pool.GraduationThreshold.Cmp(threshold))
	require.Positive(t, threshold.Sign())

	// supply * price / 1e18 * 2000
	expectedCap := new(big.Int).Mul(supply, big.NewInt(2000))
	require.Equal(t, 0, pool.MarketCapUSD.Cmp(expectedCap))

	asset := h.asset(baseToken)
	require.NotNil(t, asset)
	require.Equal(t, launchPool, asset.Pool)
	require.Equal(t, quoteToken, asset.Numeraire)

	base := h.token(baseToken)
	require.Equal(t, launchPool, base.Pool)
	require.Equal(t, uint8(18), base.Decimals)
	require.False(t, base.IsNumeraire)
	require.True(t, h.token(quoteToken).IsNumeraire)

	// Redelivery is a no-op.
	h.createV3Launch(100)
	require.Equal(t, float64(2), testutil.ToFloat64(h.metrics.EventsProcessed.WithLabelValues("PoolCreated", "concentrated-v3")))
}

func TestMintUpdatesPositionGraduationAndReserves(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	h.createV3Launch(100)
	before := h.pool(launchPool)

	h.handle(mint(101, 0, startTS+12, -600, 600, ether(1000)))

	position, err := h.store.FindPosition(h.ctx, model.PositionKey{Pool: before.Key, TickLower: -600, TickUpper: 600})
	require.NoError(t, err)
	require.Equal(t, 0, position.Liquidity.Cmp(ether(1000)))
	require.Equal(t, holderA, position.Owner)

	tracker := graduation.New(nil, before.GraduationThreshold, reserves.DefaultNearBoundMargin)
	_, err = tracker.OnLiquidityChange(-600, 600, ether(1000), true)
	require.NoError(t, err)

	expected, err := reserves.Aggregate(0, []reserves.Range{{TickLower: -600, TickUpper: 600, Liquidity: ether(1000)}}, true, false)
	require.NoError(t, err)

	pool := h.pool(launchPool)
	require.Equal(t, 0, pool.GraduationBalance.Cmp(tracker.Balance()))
	require.InDelta(t, tracker.Percentage(), pool.GraduationPercent, 1e-12)
	require.Equal(t, 0, pool.BaseReserve.Cmp(expected.Base))
	require.Equal(t, 0, pool.QuoteReserve.Cmp(expected.Quote))
	require.Equal(t, 0, pool.Liquidity.Cmp(ether(1000)))
	dollars := pricing.DollarLiquidity(expected.Base, expected.Quote, wad, 18, 18, usd2000)
	require.Equal(t, 0, pool.DollarLiquidity.Cmp(dollars))
	require.Equal(t, model.Cursor{Block: 101, LogIndex: 0}, pool.Cursor)

	// Burning all of it brings the balance back to zero, never below.
	h.handle(mint(102, 0, startTS+24, -600, 600, new(big.Int).Neg(ether(1000))))
	h.handle(mint(103, 0, startTS+36, -600, 600, new(big.Int).Neg(ether(5))))
	pool = h.pool(launchPool)
	require.Zero(t, pool.GraduationBalance.Sign())
	position, err = h.store.FindPosition(h.ctx, model.PositionKey{Pool: before.Key, TickLower: -600, TickUpper: 600})
	require.NoError(t, err)
	require.Zero(t, position.Liquidity.Sign())
}

func TestNearBoundMintSkipsGraduation(t *testing.T) {
	h := newHarness(t)
	h.createV3Launch(100)

	h.handle(mint(101, 0, startTS, -887000, 887000, ether(1)))

	pool := h.pool(launchPool)
	require.Zero(t, pool.GraduationBalance.Sign())
	require.Positive(t, pool.BaseReserve.Sign())
	require.Positive(t, pool.QuoteReserve.Sign())
}

func TestConcentratedSwapFanOut(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	h.createV3Launch(100)
	h.handle(mint(101, 0, startTS+12, -600, 600, ether(1000)))
	afterMint := h.pool(launchPool)

	swap := v3Swap(102, 3, startTS+24, new(big.Int).Neg(ether(1)), ether(1), q96, ether(1000), 0)
	h.handle(swap)

	pool := h.pool(launchPool)
	require.Equal(t, uint64(1), pool.SwapCount)
	require.Equal(t, startTS+24, pool.LastSwapTimestamp)
	require.Equal(t, 0, pool.Price.Cmp(wad))
	require.Equal(t, 0, pool.FeesQuote.Cmp(big.NewInt(3_000_000_000_000_000)))
	require.Zero(t, pool.FeesBase.Sign())
	require.Equal(t, 0, pool.DollarLiquidity.Cmp(afterMint.DollarLiquidity))
	require.Equal(t, 0, pool.MarketCapUSD.Cmp(new(big.Int).Mul(supply, big.NewInt(2000))))

	swapUSD := ether(2000)
	dv := h.dailyVolume(launchPool)
	require.NotNil(t, dv)
	require.Equal(t, 0, dv.VolumeUSD.Cmp(swapUSD))
	require.Equal(t, 0, h.asset(baseToken).DayVolumeUSD.Cmp(swapUSD))
	require.Equal(t, 0, h.token(baseToken).VolumeUSD.Cmp(swapUSD))

	bucket, err := h.store.FindHourBucket(h.ctx, model.HourKey{Pool: pool.Key, HourStart: model.HourStart(startTS + 24)})
	require.NoError(t, err)
	require.NotNil(t, bucket)
	require.Equal(t, uint64(1), bucket.Count)
	require.Equal(t, 0, bucket.Open.Cmp(wad))
	require.Equal(t, 0, bucket.VolumeUSD.Cmp(swapUSD))

	// Redelivery of the same log changes nothing.
	h.handle(swap)
	require.Equal(t, uint64(1), h.pool(launchPool).SwapCount)
	require.Equal(t, 0, h.dailyVolume(launchPool).VolumeUSD.Cmp(swapUSD))

	// A second swap in the same hour folds into the bucket.
	higher := new(big.Int).Div(new(big.Int).Mul(q96, big.NewInt(11)), big.NewInt(10))
	h.handle(v3Swap(103, 0, startTS+36, new(big.Int).Neg(ether(1)), ether(1), higher, ether(1000), 1906))
	bucket, err = h.store.FindHourBucket(h.ctx, model.HourKey{Pool: pool.Key, HourStart: model.HourStart(startTS + 24)})
	require.NoError(t, err)
	require.Equal(t, uint64(2), bucket.Count)
	require.Equal(t, 0, bucket.Low.Cmp(wad))
	require.Equal(t, 1, bucket.High.Cmp(wad))
	require.Equal(t, 0, bucket.VolumeUSD.Cmp(ether(4000)))
	require.Equal(t, 0, h.dailyVolume(launchPool).VolumeUSD.Cmp(ether(4000)))
}

func TestSwapWithoutOraclePriceKeepsUSDFields(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	h.createV3Launch(100)
	h.handle(mint(101, 0, startTS+12, -600, 600, ether(1000)))
	prior := h.pool(launchPool)
	require.Positive(t, prior.DollarLiquidity.Sign())
	require.Positive(t, prior.MarketCapUSD.Sign())

	// An hour past the only sample: outside the lookback.
	sqrtPrice := new(big.Int).Div(new(big.Int).Mul(q96, big.NewInt(11)), big.NewInt(10))
	h.handle(v3Swap(102, 0, startTS+3600, new(big.Int).Neg(ether(1)), ether(1), sqrtPrice, big.NewInt(777), 1906))

	pool := h.pool(launchPool)
	require.Equal(t, 0, pool.Price.Cmp(pricing.FromSqrtPrice(sqrtPrice, true, 18)))
	require.NotEqual(t, 0, pool.Price.Cmp(prior.Price))
	require.Equal(t, 0, pool.Liquidity.Cmp(big.NewInt(777)))
	require.Equal(t, int32(1906), pool.Tick)
	require.Equal(t, 0, pool.DollarLiquidity.Cmp(prior.DollarLiquidity))
	require.Equal(t, 0, pool.MarketCapUSD.Cmp(prior.MarketCapUSD))
	require.Equal(t, uint64(1), pool.SwapCount)

	require.Nil(t, h.dailyVolume(launchPool))
	require.Zero(t, h.asset(baseToken).DayVolumeUSD.Sign())
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.OracleMisses))
}

func TestHookSwapTracksCumulativeProceeds(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	positions := []model.RangeLiquidity{
		{TickLower: -1200, TickUpper: 0, Liquidity: ether(1000)},
		{TickLower: 0, TickUpper: 1200, Liquidity: ether(1000)},
	}
	h.chain.hooks[hookPool] = model.HookState{
		Positions:       positions,
		StartingTick:    0,
		EndingTick:      1200,
		MaximumProceeds: ether(100),
		NumTokensToSell: ether(1_000_000),
		TotalProceeds:   new(big.Int),
		TotalTokensSold: new(big.Int),
	}
	h.handle(model.PoolCreated{
		EventMeta:   meta(100, 0, startTS),
		Protocol:    model.ProtocolHookBased,
		Pool:        hookPool,
		Hook:        hookPool,
		BaseToken:   baseToken,
		QuoteToken:  quoteToken,
		Initializer: initAddr,
	})
	created := h.pool(hookPool)
	require.Equal(t, 0, created.GraduationThreshold.Cmp(ether(100)))
	require.Equal(t, 0, created.Price.Cmp(wad))

	h.handle(model.HookSwap{
		EventMeta:       meta(101, 1, startTS+10),
		Hook:            hookPool,
		CurrentTick:     600,
		TotalProceeds:   ether(25),
		TotalTokensSold: ether(30),
	})
	pool := h.pool(hookPool)
	require.Equal(t, 0, pool.GraduationBalance.Cmp(ether(25)))
	require.InDelta(t, 0.25, pool.GraduationPercent, 1e-12)
	require.Equal(t, 0, pool.TotalTokensSold.Cmp(ether(30)))
	require.Equal(t, int32(600), pool.Tick)
	require.Equal(t, 0, pool.Price.Cmp(pricing.FromSqrtPrice(tickmath.MustSqrtRatioAtTick(600), true, 18)))
	require.Equal(t, 0, pool.Liquidity.Cmp(ether(1000)))
	require.Equal(t, 0, h.dailyVolume(hookPool).VolumeUSD.Cmp(ether(50_000)))

	// A sell lowers the cumulative totals; the volume counts the quote that left.
	h.handle(model.HookSwap{
		EventMeta:       meta(102, 1, startTS+20),
		Hook:            hookPool,
		CurrentTick:     300,
		TotalProceeds:   ether(20),
		TotalTokensSold: ether(25),
	})
	pool = h.pool(hookPool)
	require.Equal(t, 0, pool.GraduationBalance.Cmp(ether(20)))
	require.InDelta(t, 0.2, pool.GraduationPercent, 1e-12)
	require.Equal(t, 0, h.dailyVolume(hookPool).VolumeUSD.Cmp(ether(60_000)))

	poolID := "0x00000000000000000000000000000000000000000000000000000000000000ab"
	h.handle(model.PoolInitialized{
		EventMeta:    meta(103, 0, startTS+30),
		PoolID:       poolID,
		Currency0:    baseToken,
		Currency1:    quoteToken,
		Fee:          10000,
		TickSpacing:  8,
		Hooks:        hookPool,
		SqrtPriceX96: tickmath.MustSqrtRatioAtTick(300),
		Tick:         300,
	})
	pool = h.pool(hookPool)
	require.Equal(t, poolID, pool.PoolID)
	require.Equal(t, uint32(10000), pool.Fee)

	// PoolManager events for hook pools are keyed by id and not tracked separately.
	h.handle(model.ConcentratedSwap{
		EventMeta:    meta(104, 0, startTS+40),
		Protocol:     model.ProtocolConcentratedV4,
		Pool:         poolID,
		Amount0:      ether(1),
		Amount1:      new(big.Int).Neg(ether(1)),
		SqrtPriceX96: q96,
		Liquidity:    ether(1),
	})
	require.Nil(t, h.pool(poolID))
}

func TestConstantProductSyncAndSwap(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	h.chain.pairs[pairPool] = [2]*big.Int{ether(1000), ether(10)}
	h.handle(model.PoolCreated{
		EventMeta:  meta(100, 0, startTS),
		Protocol:   model.ProtocolConstantProduct,
		Pool:       pairPool,
		BaseToken:  baseToken,
		QuoteToken: quoteToken,
	})
	pool := h.pool(pairPool)
	require.Equal(t, ConstantProductFee, pool.Fee)
	require.Equal(t, 0, pool.Price.Cmp(big.NewInt(10_000_000_000_000_000)))

	h.handle(model.Sync{EventMeta: meta(101, 0, startTS+12), Pool: pairPool, Reserve0: ether(900), Reserve1: ether(12)})
	h.handle(model.ConstantProductSwap{
		EventMeta:  meta(101, 1, startTS+12),
		Pool:       pairPool,
		Amount0In:  new(big.Int),
		Amount1In:  ether(2),
		Amount0Out: ether(100),
		Amount1Out: new(big.Int),
	})

	pool = h.pool(pairPool)
	require.Equal(t, 0, pool.BaseReserve.Cmp(ether(900)))
	require.Equal(t, 0, pool.QuoteReserve.Cmp(ether(12)))
	require.Equal(t, 0, pool.Price.Cmp(pricing.FromReserves(ether(900), ether(12), 18)))
	require.Equal(t, 0, pool.FeesQuote.Cmp(big.NewInt(6_000_000_000_000_000)))
	require.Equal(t, 0, h.dailyVolume(pairPool).VolumeUSD.Cmp(ether(4000)))
	require.Equal(t, 1, h.chain.calls["getReserves"])
}

func TestMigrationRepointsPool(t *testing.T) {
	h := newHarness(t)
	h.prices.Add(startTS, usd2000)
	h.createV3Launch(100)
	h.handle(mint(101, 0, startTS+12, -600, 600, ether(1000)))
	h.handle(v3Swap(102, 0, startTS+24, new(big.Int).Neg(ether(1)), ether(1), q96, ether(1000), 0))
	launch := h.pool(launchPool)

	h.chain.pairs[pairPool] = [2]*big.Int{ether(500), ether(600)}
	migrate := model.Migrated{
		EventMeta: meta(200, 0, startTS+100),
		Asset:     baseToken,
		Pool:      pairPool,
		Protocol:  model.ProtocolConstantProduct,
	}
	h.handle(migrate)

	require.Nil(t, h.pool(launchPool))
	require.Nil(t, h.dailyVolume(launchPool))
	positions, err := h.store.PositionsByPool(h.ctx, launch.Key)
	require.NoError(t, err)
	require.Empty(t, positions)

	next := h.pool(pairPool)
	require.NotNil(t, next)
	require.True(t, next.Migrated)
	require.Equal(t, model.ProtocolConstantProduct, next.Protocol)
	require.Equal(t, launch.SwapCount, next.SwapCount)
	require.Equal(t, 0, next.GraduationBalance.Cmp(launch.GraduationBalance))
	require.Equal(t, 0, next.MarketCapUSD.Cmp(launch.MarketCapUSD))
	require.Equal(t, 0, next.Price.Cmp(big.NewInt(1_200_000_000_000_000_000)))
	require.Equal(t, 0, h.dailyVolume(pairPool).VolumeUSD.Cmp(ether(2000)))

	asset := h.asset(baseToken)
	require.Equal(t, pairPool, asset.Pool)
	require.True(t, asset.Migrated)
	require.Equal(t, pairPool, asset.MigrationPool)
	require.Equal(t, model.ProtocolConstantProduct, asset.Protocol)
	require.Equal(t, pairPool, h.token(baseToken).Pool)

	h.handle(migrate)
	require.NotNil(t, h.pool(pairPool))
}

func TestTransferTracksHoldersAndSupply(t *testing.T) {
	h := newHarness(t)
	h.createV3Launch(100)

	h.chain.balances[baseToken] = map[string]*big.Int{holderA: big.NewInt(100)}
	first := model.Transfer{EventMeta: meta(101, 0, startTS), Token: baseToken, From: model.ZeroAddress, To: holderA, Value: big.NewInt(100)}
	h.handle(first)
	token := h.token(baseToken)
	require.Equal(t, int64(1), token.HolderCount)
	require.Equal(t, 0, token.TotalSupply.Cmp(new(big.Int).Add(supply, big.NewInt(100))))

	h.chain.balances[baseToken] = map[string]*big.Int{holderA: big.NewInt(60), holderB: big.NewInt(40)}
	h.handle(model.Transfer{EventMeta: meta(101, 1, startTS), Token: baseToken, From: holderA, To: holderB, Value: big.NewInt(40)})
	require.Equal(t, int64(2), h.token(baseToken).HolderCount)

	h.chain.balances[baseToken] = map[string]*big.Int{holderA: big.NewInt(60), holderB: big.NewInt(0)}
	h.handle(model.Transfer{EventMeta: meta(101, 2, startTS), Token: baseToken, From: holderB, To: model.ZeroAddress, Value: big.NewInt(40)})
	token = h.token(baseToken)
	require.Equal(t, int64(1), token.HolderCount)
	require.Equal(t, 0, token.TotalSupply.Cmp(new(big.Int).Add(supply, big.NewInt(60))))

	h.handle(first)
	require.Equal(t, int64(1), h.token(baseToken).HolderCount)

	untracked := "0x0000000000000000000000000000000000000099"
	h.handle(model.Transfer{EventMeta: meta(102, 0, startTS), Token: untracked, From: holderA, To: holderB, Value: big.NewInt(1)})
	require.Nil(t, h.token(untracked))
}

func TestChainReadFailureAbortsEvent(t *testing.T) {
	h := newHarness(t)
	h.chain.failing["slot0"] = true

	err := h.engine.Handle(h.ctx, model.PoolCreated{
		EventMeta:   meta(100, 0, startTS),
		Protocol:    model.ProtocolConcentratedV3,
		Pool:        launchPool,
		BaseToken:   baseToken,
		QuoteToken:  quoteToken,
		Initializer: initAddr,
	})
	require.Error(t, err)
	var readErr *chain.ReadError
	require.True(t, errors.As(err, &readErr))
	require.Equal(t, "slot0", readErr.Op)
	require.Nil(t, h.pool(launchPool))
	require.Nil(t, h.asset(baseToken))
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.ChainReadErrors.WithLabelValues("slot0")))

	h.chain.failing["slot0"] = false
	h.createV3Launch(100)
	require.NotNil(t, h.pool(launchPool))
}

func TestPoolInitializedTracksV4AssetPool(t *testing.T) {
	h := newHarness(t)
	h.createV3Launch(100)

	poolID := "0x00000000000000000000000000000000000000000000000000000000000000cd"
	h.handle(model.PoolInitialized{
		EventMeta:    meta(101, 0, startTS),
		PoolID:       poolID,
		Currency0:    baseToken,
		Currency1:    quoteToken,
		Fee:          3000,
		TickSpacing:  60,
		Hooks:        model.ZeroAddress,
		SqrtPriceX96: q96,
	})
	pool := h.pool(poolID)
	require.NotNil(t, pool)
	require.Equal(t, model.ProtocolConcentratedV4, pool.Protocol)
	require.Equal(t, 0, pool.Price.Cmp(wad))

	// Swapper paid one base and received quote: a sell, fee charged on the base leg.
	h.handle(model.ConcentratedSwap{
		EventMeta:    meta(102, 0, startTS),
		Protocol:     model.ProtocolConcentratedV4,
		Pool:         poolID,
		Amount0:      new(big.Int).Neg(ether(1)),
		Amount1:      big.NewInt(900_000_000_000_000_000),
		SqrtPriceX96: q96,
		Liquidity:    ether(1),
		Fee:          3000,
	})
	pool = h.pool(poolID)
	require.Equal(t, 0, pool.FeesBase.Cmp(big.NewInt(3_000_000_000_000_000)))
	require.Zero(t, pool.FeesQuote.Sign())
}

func TestMechanicsLegs(t *testing.T) {
	pool := &model.Pool{IsBaseToken0: true, TotalProceeds: ether(10), TotalTokensSold: ether(100)}
	cases := []struct {
		name     string
		protocol model.Protocol
		event    model.Event
		base     *big.Int
		quote    *big.Int
		buy      bool
	}{
		{
			name:     "v3 pool side",
			protocol: model.ProtocolConcentratedV3,
			event:    model.ConcentratedSwap{Protocol: model.ProtocolConcentratedV3, Amount0: big.NewInt(-5), Amount1: big.NewInt(7)},
			base:     big.NewInt(-5), quote: big.NewInt(7), buy: true,
		},
		{
			name:     "v4 swapper side",
			protocol: model.ProtocolConcentratedV4,
			event:    model.ConcentratedSwap{Protocol: model.ProtocolConcentratedV4, Amount0: big.NewInt(-5), Amount1: big.NewInt(7)},
			base:     big.NewInt(5), quote: big.NewInt(-7), buy: false,
		},
		{
			name:     "constant product in minus out",
			protocol: model.ProtocolConstantProduct,
			event:    model.ConstantProductSwap{Amount0In: big.NewInt(0), Amount1In: big.NewInt(3), Amount0Out: big.NewInt(9), Amount1Out: big.NewInt(0)},
			base:     big.NewInt(-9), quote: big.NewInt(3), buy: true,
		},
		{
			name:     "hook cumulative difference",
			protocol: model.ProtocolHookBased,
			event:    model.HookSwap{TotalProceeds: ether(12), TotalTokensSold: ether(120)},
			base:     new(big.Int).Neg(ether(20)), quote: ether(2), buy: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mech, err := MechanicsFor(tc.protocol)
			require.NoError(t, err)
			require.Equal(t, tc.protocol, mech.Protocol())
			legs, err := mech.Legs(pool, tc.event)
			require.NoError(t, err)
			require.Equal(t, 0, legs.Base.Cmp(tc.base))
			require.Equal(t, 0, legs.Quote.Cmp(tc.quote))
			require.Equal(t, tc.buy, legs.Buy())
		})
	}

	_, err := MechanicsFor(model.ProtocolUnknown)
	require.Error(t, err)
}

func TestAddFee(t *testing.T) {
	require.Equal(t, 0, addFee(nil, big.NewInt(1_000_000), 3000).Cmp(big.NewInt(3000)))
	require.Equal(t, 0, addFee(big.NewInt(5), big.NewInt(-1_000_000), 3000).Cmp(big.NewInt(5)))
	require.Equal(t, 0, addFee(big.NewInt(5), big.NewInt(1_000_000), 0).Cmp(big.NewInt(5)))
}
