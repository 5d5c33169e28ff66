package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/storage"
	"poolScope/internal/volume"
)

// VolumeRefreshJob evicts expired checkpoints from windows no swap has touched recently
// and pushes the new totals onto the pool and asset records.
type VolumeRefreshJob struct {
	window    *volume.Window
	store     storage.Store
	staleness uint64
	batch     int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewVolumeRefreshJob(window *volume.Window, store storage.Store, staleness time.Duration, batch int, m *metrics.Metrics, logger *zap.Logger) *VolumeRefreshJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batch <= 0 {
		batch = 100
	}
	return &VolumeRefreshJob{
		window:    window,
		store:     store,
		staleness: uint64(staleness / time.Second),
		batch:     batch,
		metrics:   m,
		logger:    logger,
	}
}

func (j *VolumeRefreshJob) Name() string { return "volume-refresh" }

func (j *VolumeRefreshJob) Run(ctx context.Context, runID string, now uint64) error {
	refreshed, err := j.window.RefreshStaleBatch(ctx, now, j.staleness, j.batch)
	j.metrics.Refreshed(len(refreshed), err)
	if err != nil {
		return err
	}
	for _, dv := range refreshed {
		if err := j.publish(ctx, dv, now); err != nil {
			return err
		}
	}
	j.logger.Debug("volume refresh pass", zap.String("run_id", runID), zap.Int("pools", len(refreshed)))
	return nil
}

func (j *VolumeRefreshJob) publish(ctx context.Context, dv model.DailyVolume, now uint64) error {
	pool, err := j.store.UpdatePool(ctx, dv.Pool, model.PoolUpdate{LastRefreshTimestamp: &now})
	if err != nil {
		return fmt.Errorf("update pool %s: %w", dv.Pool, err)
	}
	if pool == nil {
		return nil
	}
	// A swap may have landed since the refresh; publish the window as stored now.
	current, err := j.store.FindDailyVolume(ctx, dv.Pool)
	if err != nil {
		return fmt.Errorf("find daily volume %s: %w", dv.Pool, err)
	}
	if current == nil {
		current = &dv
	}
	assetKey := model.NewTokenKey(pool.Key.ChainID, pool.BaseToken)
	if _, err := j.store.UpdateAsset(ctx, assetKey, model.AssetUpdate{DayVolumeUSD: current.VolumeUSD}); err != nil {
		return fmt.Errorf("update asset %s: %w", assetKey, err)
	}
	return nil
}
