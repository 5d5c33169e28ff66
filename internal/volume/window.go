// Package volume maintains the rolling 24h USD volume of each pool.
package volume

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"poolScope/internal/model"
)

// Period is the width of the rolling window in seconds.
const Period uint64 = 86400

// Store is the slice of storage.Store the window needs.
type Store interface {
	ModifyDailyVolume(ctx context.Context, pool model.PoolKey, fn func(*model.DailyVolume) error) (*model.DailyVolume, error)
	StaleDailyVolumes(ctx context.Context, before uint64, limit int) ([]model.DailyVolume, error)
}

// Window applies checkpoint writes and evictions through the store's atomic modify.
type Window struct {
	store  Store
	logger *zap.Logger
}

func NewWindow(store Store, logger *zap.Logger) *Window {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Window{store: store, logger: logger}
}

// Record overwrites the checkpoint at ts with usd.
func (w *Window) Record(ctx context.Context, pool model.PoolKey, ts uint64, usd *big.Int) (*model.DailyVolume, error) {
	return w.modify(ctx, pool, func(dv *model.DailyVolume) {
		Put(dv, ts, usd, false)
	})
}

// Accumulate adds usd to the checkpoint at ts, creating it when absent. The event at
// cursor is counted once: a redelivery returns the stored window unchanged.
func (w *Window) Accumulate(ctx context.Context, pool model.PoolKey, cursor model.Cursor, ts uint64, usd *big.Int) (*model.DailyVolume, error) {
	return w.modify(ctx, pool, func(dv *model.DailyVolume) {
		if dv.Applied(cursor) {
			return
		}
		Put(dv, ts, usd, true)
		dv.Cursor = cursor
	})
}

// Merge carries the checkpoints of src into the window of pool once per cursor.
func (w *Window) Merge(ctx context.Context, pool model.PoolKey, cursor model.Cursor, src model.DailyVolume) (*model.DailyVolume, error) {
	return w.modify(ctx, pool, func(dv *model.DailyVolume) {
		if dv.Applied(cursor) {
			return
		}
		Carry(dv, src)
		dv.Cursor = cursor
	})
}

// RefreshStale evicts expired checkpoints as of now without adding one.
func (w *Window) RefreshStale(ctx context.Context, pool model.PoolKey, now uint64) (*model.DailyVolume, error) {
	return w.modify(ctx, pool, func(dv *model.DailyVolume) {
		Evict(dv, now)
	})
}

// RefreshStaleBatch refreshes up to limit windows not updated within staleness seconds of now.
func (w *Window) RefreshStaleBatch(ctx context.Context, now, staleness uint64, limit int) ([]model.DailyVolume, error) {
	before := uint64(0)
	if now > staleness {
		before = now - staleness
	}
	stale, err := w.store.StaleDailyVolumes(ctx, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale volumes: %w", err)
	}

	refreshed := make([]model.DailyVolume, 0, len(stale))
	for _, dv := range stale {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		updated, err := w.RefreshStale(ctx, dv.Pool, now)
		if err != nil {
			return refreshed, err
		}
		refreshed = append(refreshed, *updated)
	}
	w.logger.Debug("stale volumes refreshed", zap.Int("pools", len(refreshed)), zap.Uint64("before", before))
	return refreshed, nil
}

func (w *Window) modify(ctx context.Context, pool model.PoolKey, fn func(*model.DailyVolume)) (*model.DailyVolume, error) {
	dv, err := w.store.ModifyDailyVolume(ctx, pool, func(dv *model.DailyVolume) error {
		fn(dv)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("modify daily volume %s: %w", pool, err)
	}
	return dv, nil
}

// Put writes a checkpoint and evicts everything older than the window.
func Put(dv *model.DailyVolume, ts uint64, usd *big.Int, add bool) {
	if dv.Checkpoints == nil {
		dv.Checkpoints = make(map[uint64]*big.Int)
	}
	amount := model.CopyBig(model.BigOrZero(usd))
	if existing, ok := dv.Checkpoints[ts]; ok && add {
		amount.Add(amount, existing)
	}
	dv.Checkpoints[ts] = amount
	Evict(dv, ts)
}

// Evict drops checkpoints older than Period before max(now, LastUpdated) and recomputes the total.
func Evict(dv *model.DailyVolume, now uint64) {
	if dv.LastUpdated > now {
		now = dv.LastUpdated
	}
	cutoff := uint64(0)
	if now > Period {
		cutoff = now - Period
	}
	total := new(big.Int)
	for ts, amount := range dv.Checkpoints {
		if ts < cutoff {
			delete(dv.Checkpoints, ts)
			continue
		}
		total.Add(total, amount)
	}
	dv.VolumeUSD = total
	dv.LastUpdated = now
}

// Carry merges the checkpoints of src into dst, used when a pool record is re-pointed.
func Carry(dst *model.DailyVolume, src model.DailyVolume) {
	if dst.Checkpoints == nil {
		dst.Checkpoints = make(map[uint64]*big.Int)
	}
	for ts, amount := range src.Checkpoints {
		if existing, ok := dst.Checkpoints[ts]; ok {
			dst.Checkpoints[ts] = new(big.Int).Add(existing, amount)
			continue
		}
		dst.Checkpoints[ts] = model.CopyBig(amount)
	}
	Evict(dst, src.LastUpdated)
}
