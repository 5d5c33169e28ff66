package schedule

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
	"poolScope/internal/storage/memory"
	"poolScope/internal/volume"
)

type countingJob struct {
	runs []uint64
	err  error
}

func (j *countingJob) Name() string { return "count" }

func (j *countingJob) Run(_ context.Context, runID string, now uint64) error {
	if runID == "" {
		return errors.New("missing run id")
	}
	if j.err != nil {
		return j.err
	}
	j.runs = append(j.runs, now)
	return nil
}

func TestSchedulerRunsWhenDue(t *testing.T) {
	ctx := context.Background()
	clock := NewFixedClock(1000)
	job := &countingJob{}
	s := NewScheduler(clock, time.Minute, nil, nil, job)

	require.NoError(t, s.RunOnce(ctx))
	clock.Set(1030)
	require.NoError(t, s.RunOnce(ctx))
	clock.Set(1060)
	require.NoError(t, s.RunOnce(ctx))

	require.Equal(t, []uint64{1000, 1060}, job.runs)
	last, ok := s.State().LastRun("count")
	require.True(t, ok)
	require.Equal(t, uint64(1060), last)
}

func TestSchedulerSkipsBeforeFirstObservation(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(&EventClock{}, time.Minute, nil, nil, job)
	require.NoError(t, s.RunOnce(context.Background()))
	require.Empty(t, job.runs)
}

func TestSchedulerFailedRunStaysDue(t *testing.T) {
	ctx := context.Background()
	clock := NewFixedClock(500)
	job := &countingJob{err: errors.New("db down")}
	s := NewScheduler(clock, time.Minute, nil, nil, job)

	require.Error(t, s.RunOnce(ctx))
	require.True(t, s.State().Due("count", 500, 60))
}

func TestSchedulerPersistsState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := NewFixedClock(2000)
	job := &countingJob{}

	s := NewScheduler(clock, time.Minute, store, nil, job)
	require.NoError(t, s.RunOnce(ctx))

	restored := NewScheduler(clock, time.Minute, store, nil, job)
	require.NoError(t, restored.Restore(ctx))
	require.False(t, restored.State().Due("count", 2030, 60))
}

func TestEventClockMonotonic(t *testing.T) {
	var c EventClock
	c.Advance(100)
	c.Advance(50)
	require.Equal(t, uint64(100), c.Now())
}

func TestVolumeRefreshJobPublishesTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	window := volume.NewWindow(store, nil)
	poolKey := model.NewPoolKey(1, "0xpool")
	assetKey := model.NewTokenKey(1, "0xasset")

	_, err := store.InsertPool(ctx, model.Pool{Key: poolKey, BaseToken: "0xasset"})
	require.NoError(t, err)
	_, err = store.InsertAsset(ctx, model.Asset{Key: assetKey, DayVolumeUSD: big.NewInt(10)})
	require.NoError(t, err)
	_, err = window.Record(ctx, poolKey, 1000, big.NewInt(10))
	require.NoError(t, err)

	clock := NewFixedClock(1000 + volume.Period + 1)
	job := NewVolumeRefreshJob(window, store, time.Hour, 10, nil, nil)
	s := NewScheduler(clock, time.Minute, store, nil, job)
	require.NoError(t, s.RunOnce(ctx))

	asset, err := store.FindAsset(ctx, assetKey)
	require.NoError(t, err)
	require.Zero(t, asset.DayVolumeUSD.Sign())

	pool, err := store.FindPool(ctx, poolKey)
	require.NoError(t, err)
	require.Equal(t, clock.Now(), pool.LastRefreshTimestamp)
}

// swapDuringPublish accumulates a swap into the window the first time the pool is updated.
type swapDuringPublish struct {
	*memory.Store
	window *volume.Window
	swap   func(ctx context.Context) error
}

func (s *swapDuringPublish) UpdatePool(ctx context.Context, key model.PoolKey, update model.PoolUpdate) (*model.Pool, error) {
	if s.swap != nil {
		swap := s.swap
		s.swap = nil
		if err := swap(ctx); err != nil {
			return nil, err
		}
	}
	return s.Store.UpdatePool(ctx, key, update)
}

func TestVolumeRefreshJobPublishesLatestTotal(t *testing.T) {
	ctx := context.Background()
	store := &swapDuringPublish{Store: memory.New()}
	window := volume.NewWindow(store, nil)
	poolKey := model.NewPoolKey(1, "0xpool")
	assetKey := model.NewTokenKey(1, "0xasset")
	now := uint64(1000) + volume.Period + 1

	_, err := store.InsertPool(ctx, model.Pool{Key: poolKey, BaseToken: "0xasset"})
	require.NoError(t, err)
	_, err = store.InsertAsset(ctx, model.Asset{Key: assetKey, DayVolumeUSD: big.NewInt(10)})
	require.NoError(t, err)
	_, err = window.Record(ctx, poolKey, 1000, big.NewInt(10))
	require.NoError(t, err)
	store.swap = func(ctx context.Context) error {
		_, err := window.Accumulate(ctx, poolKey, model.Cursor{Block: 7}, now, big.NewInt(25))
		return err
	}

	job := NewVolumeRefreshJob(window, store, time.Hour, 10, nil, nil)
	require.NoError(t, job.Run(ctx, "run", now))

	asset, err := store.FindAsset(ctx, assetKey)
	require.NoError(t, err)
	require.Equal(t, int64(25), asset.DayVolumeUSD.Int64())
}
