package engine

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/graduation"
	"poolScope/internal/model"
	"poolScope/internal/pricing"
	"poolScope/internal/reserves"
)

// handleLiquidity applies a mint or burn: position, graduation delta and a reserve refresh.
func (e *Engine) handleLiquidity(ctx context.Context, ev model.LiquidityChanged) error {
	key := model.NewPoolKey(ev.ChainID, ev.Pool)
	pool, err := e.store.FindPool(ctx, key)
	if err != nil {
		return fmt.Errorf("find pool %s: %w", key, err)
	}
	if pool == nil {
		return nil
	}
	cursor := ev.Cursor()
	if pool.Applied(cursor) {
		return nil
	}
	delta := model.BigOrZero(ev.LiquidityDelta)

	positionKey := model.PositionKey{Pool: key, TickLower: ev.TickLower, TickUpper: ev.TickUpper}
	position, err := e.store.FindPosition(ctx, positionKey)
	if err != nil {
		return fmt.Errorf("find position: %w", err)
	}
	current := new(big.Int)
	if position != nil {
		current.Set(model.BigOrZero(position.Liquidity))
	}
	// A redelivery after the position write restores the liquidity the event started from.
	written := position != nil && position.Applied(cursor)
	if written {
		current.Sub(current, model.BigOrZero(position.LastChange))
	}
	next := new(big.Int).Add(current, delta)
	if next.Sign() < 0 {
		e.logger.Warn("burn exceeds position liquidity",
			zap.String("pool", key.ID),
			zap.Int32("tick_lower", ev.TickLower),
			zap.Int32("tick_upper", ev.TickUpper),
			zap.String("liquidity", current.String()),
			zap.String("delta", delta.String()),
			zap.String("tx_hash", ev.TxHash),
		)
		next.SetInt64(0)
	}
	// The graduation delta is what actually left or entered the position.
	applied := new(big.Int).Sub(next, current)

	update := model.PoolUpdate{Cursor: &cursor}
	if pool.Protocol.TracksLiquidityDeltas() && applied.Sign() != 0 {
		tracker := graduation.New(pool.GraduationBalance, pool.GraduationThreshold, e.margin)
		counted, err := tracker.OnLiquidityChange(ev.TickLower, ev.TickUpper, applied, pool.IsBaseToken0)
		if err != nil {
			return fmt.Errorf("graduation delta: %w", err)
		}
		if !counted {
			e.logger.Debug("near-bound range skipped for graduation", zap.String("pool", key.ID), zap.Int32("tick_lower", ev.TickLower), zap.Int32("tick_upper", ev.TickUpper))
		}
		percent := tracker.Percentage()
		update.GraduationBalance = tracker.Balance()
		update.GraduationPercent = &percent
	}

	ranges, err := e.ranges(ctx, key)
	if err != nil {
		return err
	}
	ranges = replaceRange(ranges, reserves.Range{TickLower: ev.TickLower, TickUpper: ev.TickUpper, Liquidity: next})
	agg, err := reserves.Aggregate(pool.Tick, ranges, pool.IsBaseToken0, false)
	if err != nil {
		return err
	}
	update.BaseReserve = agg.Base
	update.QuoteReserve = agg.Quote
	update.Liquidity = reserves.ActiveLiquidity(pool.Tick, ranges)

	if pool.Price != nil && pool.Price.Sign() > 0 {
		if usd := e.usdPrice(ctx, pool.QuoteToken, ev.Timestamp); usd != nil {
			base, quote, err := e.poolTokens(ctx, pool, ev.BlockNumber)
			if err != nil {
				return err
			}
			update.DollarLiquidity = pricing.DollarLiquidity(agg.Base, agg.Quote, pool.Price, base.Decimals, quote.Decimals, usd)
		}
	}

	if !written {
		if err := e.writePosition(ctx, position, positionKey, next, applied, ev.Owner, cursor); err != nil {
			return err
		}
	}
	if _, err := e.store.UpdatePool(ctx, key, update); err != nil {
		return fmt.Errorf("update pool %s: %w", key, err)
	}
	return nil
}

func (e *Engine) writePosition(ctx context.Context, position *model.Position, key model.PositionKey, liquidity, change *big.Int, owner string, cursor model.Cursor) error {
	if position == nil {
		_, err := e.store.InsertPosition(ctx, model.Position{
			Key:        key,
			Liquidity:  liquidity,
			Owner:      owner,
			LastChange: change,
			Cursor:     cursor,
		})
		if err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
		return nil
	}
	update := model.PositionUpdate{Liquidity: liquidity, Owner: &owner, LastChange: change, Cursor: &cursor}
	if _, err := e.store.UpdatePosition(ctx, key, update); err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return nil
}

func replaceRange(ranges []reserves.Range, r reserves.Range) []reserves.Range {
	for i := range ranges {
		if ranges[i].TickLower == r.TickLower && ranges[i].TickUpper == r.TickUpper {
			ranges[i] = r
			return ranges
		}
	}
	return append(ranges, r)
}

// handleSync stores constant-product reserves. It precedes the Swap of the same trade.
func (e *Engine) handleSync(ctx context.Context, ev model.Sync) error {
	key := model.NewPoolKey(ev.ChainID, ev.Pool)
	pool, err := e.store.FindPool(ctx, key)
	if err != nil {
		return fmt.Errorf("find pool %s: %w", key, err)
	}
	if pool == nil || pool.Protocol != model.ProtocolConstantProduct {
		return nil
	}
	cursor := ev.Cursor()
	if pool.Applied(cursor) {
		return nil
	}

	oriented := reserves.Orient(model.BigOrZero(ev.Reserve0), model.BigOrZero(ev.Reserve1), pool.IsBaseToken0)

	var (
		usd         *big.Int
		base, quote *model.Token
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		usd = e.usdPrice(gctx, pool.QuoteToken, ev.Timestamp)
		return nil
	})
	g.Go(func() error {
		var err error
		base, quote, err = e.poolTokens(gctx, pool, ev.BlockNumber)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	price := pricing.FromReserves(oriented.Base, oriented.Quote, base.Decimals)
	update := model.PoolUpdate{
		BaseReserve:  oriented.Base,
		QuoteReserve: oriented.Quote,
		Price:        price,
		Liquidity:    new(big.Int).Sqrt(new(big.Int).Mul(oriented.Base, oriented.Quote)),
		Cursor:       &cursor,
	}
	if usd != nil {
		update.DollarLiquidity = pricing.DollarLiquidity(oriented.Base, oriented.Quote, price, base.Decimals, quote.Decimals, usd)
	}
	if _, err := e.store.UpdatePool(ctx, key, update); err != nil {
		return fmt.Errorf("update pool %s: %w", key, err)
	}
	return nil
}
