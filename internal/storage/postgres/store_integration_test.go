//go:build integration

package postgres

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"poolScope/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("poolscope"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	// Applying twice is a no-op.
	require.NoError(t, store.Migrate(ctx))
	return store
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func TestPoolRoundTripAndPartialUpdate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	key := model.NewPoolKey(8453, "0x00000000000000000000000000000000000000cc")

	pool := model.Pool{
		Key:                 key,
		Protocol:            model.ProtocolHookBased,
		BaseToken:           "0x00000000000000000000000000000000000000aa",
		QuoteToken:          "0x00000000000000000000000000000000000000bb",
		IsBaseToken0:        true,
		Hook:                key.ID,
		Fee:                 3000,
		Tick:                -887272,
		SqrtPriceX96:        wei("4295128739"),
		Price:               wei("1000000000000000000000000000000"),
		GraduationThreshold: wei("100000000000000000000"),
		GraduationPercent:   0.25,
		Cursor:              model.Cursor{Block: 10, LogIndex: 2},
	}
	stored, err := store.InsertPool(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, 0, stored.Price.Cmp(pool.Price))
	require.Equal(t, model.ProtocolHookBased, stored.Protocol)
	require.Nil(t, stored.DollarLiquidity)

	// Insert is insert-if-absent.
	pool.Fee = 10000
	stored, err = store.InsertPool(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, uint32(3000), stored.Fee)

	poolID := "0xabc"
	swaps := uint64(7)
	updated, err := store.UpdatePool(ctx, key, model.PoolUpdate{
		PoolID:          &poolID,
		SwapCount:       &swaps,
		DollarLiquidity: wei("123456789012345678901234567890"),
		Cursor:          &model.Cursor{Block: 11},
	})
	require.NoError(t, err)
	require.Equal(t, poolID, updated.PoolID)
	require.Equal(t, uint64(7), updated.SwapCount)

	found, err := store.FindPool(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 0, found.DollarLiquidity.Cmp(wei("123456789012345678901234567890")))
	require.Equal(t, 0, found.GraduationThreshold.Cmp(pool.GraduationThreshold))
	require.Equal(t, int32(-887272), found.Tick)
	require.InDelta(t, 0.25, found.GraduationPercent, 1e-12)
	require.Equal(t, model.Cursor{Block: 11}, found.Cursor)

	missing, err := store.UpdatePool(ctx, model.NewPoolKey(8453, "0xdead"), model.PoolUpdate{SwapCount: &swaps})
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestModifyDailyVolumeSerializesWriters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	key := model.NewPoolKey(8453, "0x00000000000000000000000000000000000000cc")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(ts uint64) {
			defer wg.Done()
			_, err := store.ModifyDailyVolume(ctx, key, func(dv *model.DailyVolume) error {
				dv.Checkpoints[ts] = big.NewInt(10)
				total := new(big.Int)
				for _, v := range dv.Checkpoints {
					total.Add(total, v)
				}
				dv.VolumeUSD = total
				dv.LastUpdated = ts
				if c := (model.Cursor{Block: ts}); c.After(dv.Cursor) {
					dv.Cursor = c
				}
				return nil
			})
			errs <- err
		}(uint64(1000 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	dv, err := store.FindDailyVolume(ctx, key)
	require.NoError(t, err)
	require.Len(t, dv.Checkpoints, 8)
	require.Equal(t, 0, dv.VolumeUSD.Cmp(big.NewInt(80)))
	require.Equal(t, model.Cursor{Block: 1007}, dv.Cursor)

	stale, err := store.StaleDailyVolumes(ctx, 2000, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, store.DeletePool(ctx, key))
	dv, err = store.FindDailyVolume(ctx, key)
	require.NoError(t, err)
	require.Nil(t, dv)
}

func TestPositionsAndHourBuckets(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	pool := model.NewPoolKey(8453, "0x00000000000000000000000000000000000000cc")

	for _, ticks := range [][2]int32{{60, 120}, {-120, 0}, {-120, -60}} {
		_, err := store.InsertPosition(ctx, model.Position{
			Key:       model.PositionKey{Pool: pool, TickLower: ticks[0], TickUpper: ticks[1]},
			Liquidity: big.NewInt(1000),
			Owner:     "0xowner",
		})
		require.NoError(t, err)
	}
	cursor := model.Cursor{Block: 12, LogIndex: 4}
	updated, err := store.UpdatePosition(ctx, model.PositionKey{Pool: pool, TickLower: 60, TickUpper: 120}, model.PositionUpdate{
		Liquidity:  big.NewInt(5),
		LastChange: big.NewInt(-995),
		Cursor:     &cursor,
	})
	require.NoError(t, err)
	require.Equal(t, "0xowner", updated.Owner)
	require.Equal(t, 0, updated.Liquidity.Cmp(big.NewInt(5)))
	require.Equal(t, 0, updated.LastChange.Cmp(big.NewInt(-995)))
	require.Equal(t, cursor, updated.Cursor)

	positions, err := store.PositionsByPool(ctx, pool)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	require.Equal(t, int32(-120), positions[0].Key.TickLower)
	require.Equal(t, int32(-60), positions[0].Key.TickUpper)
	require.Equal(t, int32(60), positions[2].Key.TickLower)

	key := model.HourKey{Pool: pool, HourStart: 3600}
	price := wei("1000000000000000000")
	_, err = store.InsertHourBucket(ctx, model.HourBucket{
		Key: key, Open: price, Close: price, Low: price, High: price, Average: price, Count: 1, VolumeUSD: big.NewInt(0),
	})
	require.NoError(t, err)
	count := uint64(2)
	bucketCursor := model.Cursor{Block: 13, LogIndex: 0}
	bucket, err := store.UpdateHourBucket(ctx, key, model.HourBucketUpdate{High: wei("2000000000000000000"), Count: &count, Cursor: &bucketCursor})
	require.NoError(t, err)
	require.Equal(t, uint64(2), bucket.Count)
	require.True(t, bucket.Applied(bucketCursor))
	require.Equal(t, 0, bucket.Open.Cmp(price))
	require.Equal(t, 0, bucket.High.Cmp(wei("2000000000000000000")))
}

func TestSchedulerState(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadState(ctx, "refresh")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveState(ctx, "refresh", 1_700_000_000))
	ts, ok, err := store.LoadState(ctx, "refresh")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1_700_000_000), ts)
}
