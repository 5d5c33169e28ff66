package storage

import (
	"context"

	"poolScope/internal/model"
)

// LogSink archives raw log records and decode failures.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
	PutDecodeErrors(errs []model.DecodeError) error
}

// Store persists the entities maintained by the metrics engine.
//
// Find* returns (nil, nil) when the record is absent. Insert* is insert-if-absent and
// returns the stored record, which is the pre-existing one on conflict. Update* applies a
// partial update and returns the result, or (nil, nil) when the record is absent.
type Store interface {
	FindPool(ctx context.Context, key model.PoolKey) (*model.Pool, error)
	InsertPool(ctx context.Context, pool model.Pool) (*model.Pool, error)
	UpdatePool(ctx context.Context, key model.PoolKey, update model.PoolUpdate) (*model.Pool, error)
	// DeletePool removes the pool with its positions and daily volume.
	DeletePool(ctx context.Context, key model.PoolKey) error

	FindToken(ctx context.Context, key model.TokenKey) (*model.Token, error)
	InsertToken(ctx context.Context, token model.Token) (*model.Token, error)
	UpdateToken(ctx context.Context, key model.TokenKey, update model.TokenUpdate) (*model.Token, error)

	FindAsset(ctx context.Context, key model.TokenKey) (*model.Asset, error)
	InsertAsset(ctx context.Context, asset model.Asset) (*model.Asset, error)
	UpdateAsset(ctx context.Context, key model.TokenKey, update model.AssetUpdate) (*model.Asset, error)

	FindHourBucket(ctx context.Context, key model.HourKey) (*model.HourBucket, error)
	InsertHourBucket(ctx context.Context, bucket model.HourBucket) (*model.HourBucket, error)
	UpdateHourBucket(ctx context.Context, key model.HourKey, update model.HourBucketUpdate) (*model.HourBucket, error)

	FindPosition(ctx context.Context, key model.PositionKey) (*model.Position, error)
	InsertPosition(ctx context.Context, position model.Position) (*model.Position, error)
	UpdatePosition(ctx context.Context, key model.PositionKey, update model.PositionUpdate) (*model.Position, error)
	PositionsByPool(ctx context.Context, pool model.PoolKey) ([]model.Position, error)

	FindDailyVolume(ctx context.Context, pool model.PoolKey) (*model.DailyVolume, error)
	// ModifyDailyVolume runs fn on the current window (empty when absent) and persists the
	// result atomically with respect to other calls on the same pool.
	ModifyDailyVolume(ctx context.Context, pool model.PoolKey, fn func(*model.DailyVolume) error) (*model.DailyVolume, error)
	// StaleDailyVolumes lists windows last updated before the given time, oldest first.
	StaleDailyVolumes(ctx context.Context, before uint64, limit int) ([]model.DailyVolume, error)
}

// StateStore persists named unix-second markers such as scheduler runs.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, ts uint64) error
}
