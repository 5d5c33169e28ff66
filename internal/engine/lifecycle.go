package engine

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/graduation"
	"poolScope/internal/model"
	"poolScope/internal/pricing"
	"poolScope/internal/reserves"
	"poolScope/internal/tickmath"
)

// handlePoolCreated inserts the pool, its asset and both token records.
func (e *Engine) handlePoolCreated(ctx context.Context, ev model.PoolCreated) error {
	key := model.NewPoolKey(ev.ChainID, ev.Pool)
	existing, err := e.store.FindPool(ctx, key)
	if err != nil {
		return fmt.Errorf("find pool %s: %w", key, err)
	}
	if existing != nil {
		return nil
	}

	baseToken := strings.ToLower(ev.BaseToken)
	quoteToken := strings.ToLower(ev.QuoteToken)
	pool := model.Pool{
		Key:          key,
		Protocol:     ev.Protocol,
		BaseToken:    baseToken,
		QuoteToken:   quoteToken,
		IsBaseToken0: isBaseToken0(baseToken, quoteToken),
		Initializer:  strings.ToLower(ev.Initializer),
		Hook:         strings.ToLower(ev.Hook),
		Fee:          ev.Fee,
		TickSpacing:  ev.TickSpacing,
		Tick:         ev.Tick,
		SqrtPriceX96: model.CopyBig(ev.SqrtPriceX96),
		CreatedBlock: ev.BlockNumber,
		Cursor:       ev.Cursor(),
	}
	if pool.Protocol == model.ProtocolConstantProduct && pool.Fee == 0 {
		pool.Fee = ConstantProductFee
	}

	var (
		tokens [2]*model.Token
		usd    *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tokens, err = e.ensureTokens(gctx, ev.ChainID, ev.BlockNumber, key.ID, baseToken, quoteToken)
		return err
	})
	g.Go(func() error {
		return e.initialState(gctx, &pool, blockNumber(ev.EventMeta))
	})
	g.Go(func() error {
		usd = e.usdPrice(gctx, quoteToken, ev.Timestamp)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	base, quote := tokens[0], tokens[1]

	e.price(&pool, base.Decimals)
	if usd != nil {
		pool.DollarLiquidity = pricing.DollarLiquidity(pool.BaseReserve, pool.QuoteReserve, pool.Price, base.Decimals, quote.Decimals, usd)
		if !pricing.AtBound(pool.SqrtPriceX96) && !pricing.IsSentinel(pool.Price, base.Decimals) {
			pool.MarketCapUSD = pricing.MarketCap(base.TotalSupply, pool.Price, base.Decimals, quote.Decimals, usd)
		}
	}
	fillZero(&pool)

	// The pool row goes in last: its presence marks the creation as complete.
	assetKey := base.Key
	if _, err := e.store.InsertAsset(ctx, model.Asset{
		Key:          assetKey,
		Pool:         key.ID,
		Numeraire:    quoteToken,
		Protocol:     ev.Protocol,
		LiquidityUSD: model.BigOrZero(model.CopyBig(pool.DollarLiquidity)),
		MarketCapUSD: model.BigOrZero(model.CopyBig(pool.MarketCapUSD)),
		DayVolumeUSD: new(big.Int),
		CreatedBlock: ev.BlockNumber,
	}); err != nil {
		return fmt.Errorf("insert asset %s: %w", assetKey, err)
	}
	if base.Pool != key.ID {
		poolID := key.ID
		if _, err := e.store.UpdateToken(ctx, base.Key, model.TokenUpdate{Pool: &poolID}); err != nil {
			return fmt.Errorf("update token %s: %w", base.Key, err)
		}
	}
	if _, err := e.store.InsertPool(ctx, pool); err != nil {
		return fmt.Errorf("insert pool %s: %w", key, err)
	}
	e.classes.Invalidate(base.Key)
	e.classes.Invalidate(quote.Key)

	e.logger.Info("pool created",
		zap.String("pool", key.ID),
		zap.String("protocol", pool.Protocol.String()),
		zap.String("base_token", baseToken),
		zap.String("quote_token", quoteToken),
		zap.Uint64("block_number", ev.BlockNumber),
	)
	return nil
}

// initialState reads the creation-time price, reserves and graduation threshold.
func (e *Engine) initialState(ctx context.Context, pool *model.Pool, block *big.Int) error {
	switch pool.Protocol {
	case model.ProtocolConstantProduct:
		reserve0, reserve1, err := e.chain.PairReserves(ctx, block, pool.Key.ID)
		if err != nil {
			return err
		}
		oriented := reserves.Orient(reserve0, reserve1, pool.IsBaseToken0)
		pool.BaseReserve, pool.QuoteReserve = oriented.Base, oriented.Quote
		pool.Liquidity = new(big.Int).Sqrt(new(big.Int).Mul(oriented.Base, oriented.Quote))
	case model.ProtocolConcentratedV3:
		slot0, err := e.chain.Slot0(ctx, block, pool.Key.ID)
		if err != nil {
			return err
		}
		pool.SqrtPriceX96, pool.Tick, pool.Liquidity = slot0.SqrtPriceX96, slot0.Tick, slot0.Liquidity
		if pool.Initializer == "" {
			return nil
		}
		curve, err := e.chain.CurveState(ctx, block, pool.Initializer, pool.Key.ID)
		if err != nil {
			return err
		}
		threshold, err := graduation.ThresholdForCurve(curve.TickLower, curve.TickUpper, curve.TokensOnCurve, pool.IsBaseToken0)
		if err != nil {
			return fmt.Errorf("graduation threshold: %w", err)
		}
		pool.GraduationThreshold = threshold
	case model.ProtocolHookBased:
		state, err := e.chain.HookState(ctx, block, pool.Hook)
		if err != nil {
			return err
		}
		pool.Tick = tickmath.ClampTick(state.StartingTick)
		sqrtPrice, err := tickmath.SqrtRatioAtTick(pool.Tick)
		if err != nil {
			return err
		}
		pool.SqrtPriceX96 = sqrtPrice
		ranges := rangesFromHook(state.Positions)
		agg, err := reserves.Aggregate(pool.Tick, ranges, pool.IsBaseToken0, false)
		if err != nil {
			return err
		}
		pool.BaseReserve, pool.QuoteReserve = agg.Base, agg.Quote
		pool.Liquidity = reserves.ActiveLiquidity(pool.Tick, ranges)
		pool.GraduationThreshold = model.CopyBig(state.MaximumProceeds)
		pool.TotalProceeds = model.CopyBig(state.TotalProceeds)
		pool.TotalTokensSold = model.CopyBig(state.TotalTokensSold)

		tracker := graduation.New(nil, pool.GraduationThreshold, e.margin)
		tracker.OnProceedsObserved(pool.TotalProceeds)
		pool.GraduationBalance = tracker.Balance()
		pool.GraduationPercent = tracker.Percentage()
	case model.ProtocolConcentratedV4:
		// Price arrives with the PoolManager Initialize log.
	default:
		return fmt.Errorf("no mechanics for protocol %s", pool.Protocol)
	}
	return nil
}

// price sets Pool.Price from the square-root price or, for pairs, the reserves.
func (e *Engine) price(pool *model.Pool, baseDecimals uint8) {
	if pool.SqrtPriceX96 != nil && pool.SqrtPriceX96.Sign() > 0 {
		pool.Price = pricing.FromSqrtPrice(pool.SqrtPriceX96, pool.IsBaseToken0, baseDecimals)
		return
	}
	pool.Price = pricing.FromReserves(pool.BaseReserve, pool.QuoteReserve, baseDecimals)
}

func fillZero(pool *model.Pool) {
	for _, field := range []**big.Int{
		&pool.SqrtPriceX96, &pool.Price, &pool.BaseReserve, &pool.QuoteReserve, &pool.Liquidity,
		&pool.FeesBase, &pool.FeesQuote, &pool.DollarLiquidity, &pool.MarketCapUSD,
		&pool.GraduationBalance, &pool.GraduationThreshold, &pool.TotalProceeds, &pool.TotalTokensSold,
	} {
		if *field == nil {
			*field = new(big.Int)
		}
	}
}

// handlePoolInitialized attaches a PoolManager pool id to a hook pool, or starts tracking a
// plain V4 pool that trades a known asset.
func (e *Engine) handlePoolInitialized(ctx context.Context, ev model.PoolInitialized) error {
	cursor := ev.Cursor()
	if !model.IsZeroAddress(ev.Hooks) {
		hookKey := model.NewPoolKey(ev.ChainID, ev.Hooks)
		pool, err := e.store.FindPool(ctx, hookKey)
		if err != nil {
			return fmt.Errorf("find pool %s: %w", hookKey, err)
		}
		if pool != nil && pool.Protocol == model.ProtocolHookBased {
			if pool.Applied(cursor) {
				return nil
			}
			base, _, err := e.poolTokens(ctx, pool, ev.BlockNumber)
			if err != nil {
				return err
			}
			poolID := strings.ToLower(ev.PoolID)
			tick := ev.Tick
			update := model.PoolUpdate{
				PoolID:       &poolID,
				Fee:          &ev.Fee,
				TickSpacing:  &ev.TickSpacing,
				Tick:         &tick,
				SqrtPriceX96: ev.SqrtPriceX96,
				Cursor:       &cursor,
			}
			if ev.SqrtPriceX96 != nil && ev.SqrtPriceX96.Sign() > 0 {
				update.Price = pricing.FromSqrtPrice(ev.SqrtPriceX96, pool.IsBaseToken0, base.Decimals)
			}
			if _, err := e.store.UpdatePool(ctx, hookKey, update); err != nil {
				return fmt.Errorf("update pool %s: %w", hookKey, err)
			}
			return nil
		}
	}

	var asset *model.Asset
	for _, currency := range []string{ev.Currency0, ev.Currency1} {
		if model.IsZeroAddress(currency) {
			continue
		}
		found, err := e.store.FindAsset(ctx, model.NewTokenKey(ev.ChainID, currency))
		if err != nil {
			return fmt.Errorf("find asset %s: %w", currency, err)
		}
		if found != nil {
			asset = found
			break
		}
	}
	if asset == nil {
		return nil
	}

	key := model.NewPoolKey(ev.ChainID, ev.PoolID)
	existing, err := e.store.FindPool(ctx, key)
	if err != nil {
		return fmt.Errorf("find pool %s: %w", key, err)
	}
	if existing != nil {
		return nil
	}

	baseToken := asset.Key.Address
	quoteToken := strings.ToLower(ev.Currency1)
	if strings.EqualFold(ev.Currency1, baseToken) {
		quoteToken = strings.ToLower(ev.Currency0)
	}
	pool := model.Pool{
		Key:          key,
		Protocol:     model.ProtocolConcentratedV4,
		BaseToken:    baseToken,
		QuoteToken:   quoteToken,
		IsBaseToken0: strings.EqualFold(ev.Currency0, baseToken),
		PoolID:       key.ID,
		Fee:          ev.Fee,
		TickSpacing:  ev.TickSpacing,
		Tick:         ev.Tick,
		SqrtPriceX96: model.CopyBig(ev.SqrtPriceX96),
		CreatedBlock: ev.BlockNumber,
		Cursor:       cursor,
	}
	if !model.IsZeroAddress(ev.Hooks) {
		pool.Hook = strings.ToLower(ev.Hooks)
	}

	tokens, err := e.ensureTokens(ctx, ev.ChainID, ev.BlockNumber, key.ID, baseToken, quoteToken)
	if err != nil {
		return err
	}
	e.price(&pool, tokens[0].Decimals)
	fillZero(&pool)
	if _, err := e.store.InsertPool(ctx, pool); err != nil {
		return fmt.Errorf("insert pool %s: %w", key, err)
	}
	e.logger.Info("v4 pool tracked", zap.String("pool", key.ID), zap.String("base_token", baseToken), zap.Uint64("block_number", ev.BlockNumber))
	return nil
}

// handleMigrated re-points an asset to its post-graduation pool. Price, USD and graduation
// fields carry over, the volume window is merged, and the launch pool record is removed.
func (e *Engine) handleMigrated(ctx context.Context, ev model.Migrated) error {
	assetKey := model.NewTokenKey(ev.ChainID, ev.Asset)
	asset, err := e.store.FindAsset(ctx, assetKey)
	if err != nil {
		return fmt.Errorf("find asset %s: %w", assetKey, err)
	}
	if asset == nil {
		return nil
	}
	newKey := model.NewPoolKey(ev.ChainID, ev.Pool)
	if asset.Migrated && asset.MigrationPool == newKey.ID {
		return nil
	}
	oldKey := model.NewPoolKey(ev.ChainID, asset.Pool)
	old, err := e.store.FindPool(ctx, oldKey)
	if err != nil {
		return fmt.Errorf("find pool %s: %w", oldKey, err)
	}

	next := model.Pool{
		Key:          newKey,
		Protocol:     ev.Protocol,
		BaseToken:    asset.Key.Address,
		QuoteToken:   strings.ToLower(asset.Numeraire),
		IsBaseToken0: isBaseToken0(asset.Key.Address, asset.Numeraire),
		Migrated:     true,
		CreatedBlock: ev.BlockNumber,
		Cursor:       ev.Cursor(),
	}
	if ev.Protocol == model.ProtocolConstantProduct {
		next.Fee = ConstantProductFee
	}
	if old != nil {
		carried := old.Clone()
		next.Price = carried.Price
		next.DollarLiquidity = carried.DollarLiquidity
		next.MarketCapUSD = carried.MarketCapUSD
		next.GraduationBalance = carried.GraduationBalance
		next.GraduationThreshold = carried.GraduationThreshold
		next.GraduationPercent = carried.GraduationPercent
		next.TotalProceeds = carried.TotalProceeds
		next.TotalTokensSold = carried.TotalTokensSold
		next.SwapCount = carried.SwapCount
		next.LastSwapTimestamp = carried.LastSwapTimestamp
		next.LastRefreshTimestamp = carried.LastRefreshTimestamp
		if ev.Protocol != model.ProtocolConstantProduct {
			next.SqrtPriceX96 = carried.SqrtPriceX96
			next.Tick = carried.Tick
		}
	}

	if ev.Protocol == model.ProtocolConstantProduct {
		base, _, err := e.poolTokens(ctx, &next, ev.BlockNumber)
		if err != nil {
			return err
		}
		reserve0, reserve1, err := e.chain.PairReserves(ctx, blockNumber(ev.EventMeta), newKey.ID)
		if err != nil {
			return err
		}
		oriented := reserves.Orient(reserve0, reserve1, next.IsBaseToken0)
		next.BaseReserve, next.QuoteReserve = oriented.Base, oriented.Quote
		next.Liquidity = new(big.Int).Sqrt(new(big.Int).Mul(oriented.Base, oriented.Quote))
		if oriented.Base.Sign() > 0 {
			next.Price = pricing.FromReserves(oriented.Base, oriented.Quote, base.Decimals)
		}
	}
	fillZero(&next)

	if _, err := e.store.InsertPool(ctx, next); err != nil {
		return fmt.Errorf("insert pool %s: %w", newKey, err)
	}
	if old != nil {
		oldVolume, err := e.store.FindDailyVolume(ctx, oldKey)
		if err != nil {
			return fmt.Errorf("find daily volume %s: %w", oldKey, err)
		}
		if oldVolume != nil {
			if _, err := e.window.Merge(ctx, newKey, ev.Cursor(), *oldVolume); err != nil {
				return fmt.Errorf("carry daily volume %s: %w", newKey, err)
			}
		}
		if oldKey != newKey {
			if err := e.store.DeletePool(ctx, oldKey); err != nil {
				return fmt.Errorf("delete pool %s: %w", oldKey, err)
			}
		}
	}

	poolID := newKey.ID
	if _, err := e.store.UpdateToken(ctx, assetKey, model.TokenUpdate{Pool: &poolID}); err != nil {
		return fmt.Errorf("update token %s: %w", assetKey, err)
	}
	// The migrated flag is the redelivery guard, so it is written last.
	migrated := true
	protocol := ev.Protocol
	if _, err := e.store.UpdateAsset(ctx, assetKey, model.AssetUpdate{
		Pool:          &poolID,
		Protocol:      &protocol,
		Migrated:      &migrated,
		MigrationPool: &poolID,
	}); err != nil {
		return fmt.Errorf("update asset %s: %w", assetKey, err)
	}
	e.classes.Invalidate(assetKey)
	e.classes.Invalidate(model.NewTokenKey(ev.ChainID, asset.Numeraire))

	e.logger.Info("asset migrated",
		zap.String("asset", assetKey.Address),
		zap.String("from_pool", oldKey.ID),
		zap.String("to_pool", newKey.ID),
		zap.Uint64("block_number", ev.BlockNumber),
	)
	return nil
}
