package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/graduation"
	"poolScope/internal/model"
	"poolScope/internal/pricing"
	"poolScope/internal/reserves"
)

var errProtocolMismatch = errors.New("event does not match pool protocol")

// swapMetrics is everything derived from one swap before any write is issued.
type swapMetrics struct {
	snapshot Snapshot
	legs     Legs
	price    *big.Int
	sentinel bool

	// USD fields stay nil when the oracle had no price.
	dollarLiquidity *big.Int
	marketCap       *big.Int
	swapUSD         *big.Int

	feesBase  *big.Int
	feesQuote *big.Int

	graduationBalance *big.Int
	graduationPercent *float64
}

func (e *Engine) handleSwap(ctx context.Context, key model.PoolKey, event model.Event) error {
	meta := event.Meta()
	pool, err := e.store.FindPool(ctx, key)
	if err != nil {
		return fmt.Errorf("find pool %s: %w", key, err)
	}
	if pool == nil {
		e.logger.Debug("swap on untracked pool", zap.String("pool", key.ID), zap.Uint64("block_number", meta.BlockNumber))
		return nil
	}
	if pool.Applied(meta.Cursor()) {
		e.logger.Debug("swap already applied", zap.String("pool", key.ID), zap.Uint64("block_number", meta.BlockNumber), zap.Uint64("log_index", meta.LogIndex))
		return nil
	}

	mech, err := MechanicsFor(pool.Protocol)
	if err != nil {
		return err
	}
	if !matchesProtocol(pool.Protocol, event) {
		e.logger.Warn("swap ignored", zap.String("pool", key.ID), zap.String("protocol", pool.Protocol.String()), zap.Error(errProtocolMismatch))
		return nil
	}
	legs, err := mech.Legs(pool, event)
	if err != nil {
		return err
	}

	// Independent reads: post-swap state, USD reference price, token records.
	var (
		snapshot    Snapshot
		usd         *big.Int
		base, quote *model.Token
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = mech.State(gctx, e.stateSource(), pool, event)
		return err
	})
	g.Go(func() error {
		usd = e.usdPrice(gctx, pool.QuoteToken, meta.Timestamp)
		return nil
	})
	g.Go(func() error {
		var err error
		base, quote, err = e.poolTokens(gctx, pool, meta.BlockNumber)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	derived := e.derive(pool, base, quote, legs, snapshot, usd)

	var dayVolume *big.Int
	if derived.swapUSD != nil {
		dv, err := e.window.Accumulate(ctx, key, meta.Cursor(), meta.Timestamp, derived.swapUSD)
		if err != nil {
			return err
		}
		dayVolume = dv.VolumeUSD
	}

	return e.fanOutSwap(ctx, pool, base, meta, derived, dayVolume)
}

func matchesProtocol(protocol model.Protocol, event model.Event) bool {
	switch ev := event.(type) {
	case model.ConstantProductSwap:
		return protocol == model.ProtocolConstantProduct
	case model.ConcentratedSwap:
		return protocol == ev.Protocol
	case model.HookSwap:
		return protocol == model.ProtocolHookBased
	default:
		return false
	}
}

func (e *Engine) stateSource() stateSource {
	return stateSource{chain: e.chain, positions: e.ranges}
}

func (e *Engine) ranges(ctx context.Context, pool model.PoolKey) ([]reserves.Range, error) {
	positions, err := e.store.PositionsByPool(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("positions of %s: %w", pool, err)
	}
	return reserves.FromPositions(positions), nil
}

// derive computes price, USD metrics, fees and graduation for a swap. It performs no I/O.
func (e *Engine) derive(pool *model.Pool, base, quote *model.Token, legs Legs, snapshot Snapshot, usd *big.Int) swapMetrics {
	out := swapMetrics{snapshot: snapshot, legs: legs}

	if snapshot.SqrtPriceX96 != nil {
		out.price = pricing.FromSqrtPrice(snapshot.SqrtPriceX96, pool.IsBaseToken0, base.Decimals)
		out.sentinel = pricing.AtBound(snapshot.SqrtPriceX96)
	} else {
		out.price = pricing.FromReserves(snapshot.BaseReserve, snapshot.QuoteReserve, base.Decimals)
	}
	out.sentinel = out.sentinel || pricing.IsSentinel(out.price, base.Decimals)

	if usd != nil {
		out.dollarLiquidity = pricing.DollarLiquidity(snapshot.BaseReserve, snapshot.QuoteReserve, out.price, base.Decimals, quote.Decimals, usd)
		if out.sentinel {
			out.marketCap = model.CopyBig(model.BigOrZero(pool.MarketCapUSD))
		} else {
			out.marketCap = pricing.MarketCap(base.TotalSupply, out.price, base.Decimals, quote.Decimals, usd)
		}
		out.swapUSD = pricing.QuoteToUSD(legs.Quote, quote.Decimals, usd)
	}

	fee := pool.Fee
	if fee == 0 && pool.Protocol == model.ProtocolConstantProduct {
		fee = ConstantProductFee
	}
	out.feesBase = addFee(pool.FeesBase, legs.Base, fee)
	out.feesQuote = addFee(pool.FeesQuote, legs.Quote, fee)

	if pool.Protocol.ReportsProceeds() {
		tracker := graduation.New(pool.GraduationBalance, pool.GraduationThreshold, e.margin)
		tracker.OnProceedsObserved(snapshot.TotalProceeds)
		out.graduationBalance = tracker.Balance()
		percent := tracker.Percentage()
		out.graduationPercent = &percent
	}
	return out
}

// addFee charges fee (hundredths of a bip) on the leg when it entered the pool.
func addFee(cumulative, leg *big.Int, fee uint32) *big.Int {
	out := new(big.Int).Set(model.BigOrZero(cumulative))
	if leg == nil || leg.Sign() <= 0 || fee == 0 {
		return out
	}
	charged := new(big.Int).Mul(leg, big.NewInt(int64(fee)))
	charged.Quo(charged, big.NewInt(1_000_000))
	return out.Add(out, charged)
}

// fanOutSwap issues the asset, token and hour bucket writes concurrently, then commits the
// pool with the event cursor. Each write before the pool skips itself on redelivery.
func (e *Engine) fanOutSwap(ctx context.Context, pool *model.Pool, base *model.Token, meta model.EventMeta, d swapMetrics, dayVolume *big.Int) error {
	started := time.Now()
	defer e.metrics.ObserveFanOut(started)

	cursor := meta.Cursor()
	g, gctx := errgroup.WithContext(ctx)

	if d.swapUSD != nil {
		g.Go(func() error {
			assetKey := model.NewTokenKey(pool.Key.ChainID, pool.BaseToken)
			update := model.AssetUpdate{
				LiquidityUSD: d.dollarLiquidity,
				MarketCapUSD: d.marketCap,
				DayVolumeUSD: dayVolume,
			}
			if _, err := e.store.UpdateAsset(gctx, assetKey, update); err != nil {
				return fmt.Errorf("update asset %s: %w", assetKey, err)
			}
			return nil
		})
	}

	if cursor.After(base.Cursor) {
		g.Go(func() error {
			update := model.TokenUpdate{Cursor: &cursor}
			if d.swapUSD != nil {
				update.VolumeUSD = new(big.Int).Add(model.BigOrZero(base.VolumeUSD), d.swapUSD)
				update.MarketCapUSD = d.marketCap
			}
			if _, err := e.store.UpdateToken(gctx, base.Key, update); err != nil {
				return fmt.Errorf("update token %s: %w", base.Key, err)
			}
			return nil
		})
	}

	if !d.sentinel && d.price.Sign() > 0 {
		g.Go(func() error {
			return e.recordHour(gctx, pool.Key, cursor, meta.Timestamp, d.price, d.swapUSD)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	swapCount := pool.SwapCount + 1
	ts := meta.Timestamp
	tick := d.snapshot.Tick
	update := model.PoolUpdate{
		SqrtPriceX96:      d.snapshot.SqrtPriceX96,
		Price:             d.price,
		BaseReserve:       d.snapshot.BaseReserve,
		QuoteReserve:      d.snapshot.QuoteReserve,
		Liquidity:         d.snapshot.Liquidity,
		FeesBase:          d.feesBase,
		FeesQuote:         d.feesQuote,
		DollarLiquidity:   d.dollarLiquidity,
		MarketCapUSD:      d.marketCap,
		GraduationBalance: d.graduationBalance,
		GraduationPercent: d.graduationPercent,
		TotalProceeds:     d.snapshot.TotalProceeds,
		TotalTokensSold:   d.snapshot.TotalTokensSold,
		SwapCount:         &swapCount,
		LastSwapTimestamp: &ts,
		Cursor:            &cursor,
	}
	if d.snapshot.SqrtPriceX96 != nil {
		update.Tick = &tick
	}
	if _, err := e.store.UpdatePool(ctx, pool.Key, update); err != nil {
		return fmt.Errorf("update pool %s: %w", pool.Key, err)
	}
	return nil
}

// recordHour folds a price sample into the pool's bucket for the hour of ts.
func (e *Engine) recordHour(ctx context.Context, pool model.PoolKey, cursor model.Cursor, ts uint64, price, usd *big.Int) error {
	key := model.HourKey{Pool: pool, HourStart: model.HourStart(ts)}
	bucket, err := e.store.FindHourBucket(ctx, key)
	if err != nil {
		return fmt.Errorf("find hour bucket %s@%d: %w", pool, key.HourStart, err)
	}
	volumeUSD := model.BigOrZero(model.CopyBig(usd))
	if bucket == nil {
		_, err := e.store.InsertHourBucket(ctx, model.HourBucket{
			Key:       key,
			Open:      new(big.Int).Set(price),
			Close:     new(big.Int).Set(price),
			Low:       new(big.Int).Set(price),
			High:      new(big.Int).Set(price),
			Average:   new(big.Int).Set(price),
			Count:     1,
			VolumeUSD: volumeUSD,
			Cursor:    cursor,
		})
		if err != nil {
			return fmt.Errorf("insert hour bucket %s@%d: %w", pool, key.HourStart, err)
		}
		return nil
	}
	if bucket.Applied(cursor) {
		return nil
	}

	count := bucket.Count + 1
	update := model.HourBucketUpdate{
		Close:     price,
		Count:     &count,
		VolumeUSD: volumeUSD.Add(volumeUSD, model.BigOrZero(bucket.VolumeUSD)),
		Cursor:    &cursor,
	}
	if bucket.Low == nil || price.Cmp(bucket.Low) < 0 {
		update.Low = price
	}
	if bucket.High == nil || price.Cmp(bucket.High) > 0 {
		update.High = price
	}
	average := new(big.Int).Mul(model.BigOrZero(bucket.Average), new(big.Int).SetUint64(bucket.Count))
	average.Add(average, price)
	update.Average = average.Quo(average, new(big.Int).SetUint64(count))

	if _, err := e.store.UpdateHourBucket(ctx, key, update); err != nil {
		return fmt.Errorf("update hour bucket %s@%d: %w", pool, key.HourStart, err)
	}
	return nil
}
