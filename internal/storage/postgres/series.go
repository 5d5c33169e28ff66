package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"poolScope/internal/model"
)

var hourBucketsTable = table{
	name:    "hour_buckets",
	columns: []string{"chain_id", "pool", "hour_start", "open", "close", "low", "high", "average", "count", "volume_usd", "cursor_block", "cursor_log_index"},
	keys:    3,
}

func scanHourBucket(row pgx.Row) (*model.HourBucket, error) {
	var (
		b    model.HourBucket
		nums = newNumerics(6)
	)
	err := row.Scan(
		&b.Key.Pool.ChainID, &b.Key.Pool.ID, &b.Key.HourStart,
		&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &b.Count, &nums[5],
		&b.Cursor.Block, &b.Cursor.LogIndex,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	nums.assign(&b.Open, &b.Close, &b.Low, &b.High, &b.Average, &b.VolumeUSD)
	return &b, nil
}

func hourBucketArgs(b *model.HourBucket) []any {
	return []any{
		b.Key.Pool.ChainID, b.Key.Pool.ID, b.Key.HourStart,
		toNumeric(b.Open), toNumeric(b.Close), toNumeric(b.Low), toNumeric(b.High), toNumeric(b.Average),
		b.Count, toNumeric(model.BigOrZero(b.VolumeUSD)), b.Cursor.Block, b.Cursor.LogIndex,
	}
}

func hourKeyArgs(key model.HourKey) []any {
	return []any{key.Pool.ChainID, key.Pool.ID, key.HourStart}
}

func (s *Store) FindHourBucket(ctx context.Context, key model.HourKey) (*model.HourBucket, error) {
	return findRow(ctx, s.pool, hourBucketsTable, hourKeyArgs(key), scanHourBucket)
}

func (s *Store) InsertHourBucket(ctx context.Context, bucket model.HourBucket) (*model.HourBucket, error) {
	return insertRow(ctx, s.pool, hourBucketsTable, hourKeyArgs(bucket.Key), scanHourBucket, hourBucketArgs(&bucket))
}

func (s *Store) UpdateHourBucket(ctx context.Context, key model.HourKey, update model.HourBucketUpdate) (*model.HourBucket, error) {
	return updateRow(ctx, s.pool, hourBucketsTable, hourKeyArgs(key), scanHourBucket, func(b *model.HourBucket) { update.Apply(b) }, hourBucketArgs)
}

var positionsTable = table{
	name:    "positions",
	columns: []string{"chain_id", "pool", "tick_lower", "tick_upper", "liquidity", "owner", "last_change", "cursor_block", "cursor_log_index"},
	keys:    4,
}

func scanPosition(row pgx.Row) (*model.Position, error) {
	var (
		p    model.Position
		nums = newNumerics(2)
	)
	err := row.Scan(
		&p.Key.Pool.ChainID, &p.Key.Pool.ID, &p.Key.TickLower, &p.Key.TickUpper,
		&nums[0], &p.Owner, &nums[1], &p.Cursor.Block, &p.Cursor.LogIndex,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	nums.assign(&p.Liquidity, &p.LastChange)
	return &p, nil
}

func positionArgs(p *model.Position) []any {
	return append(positionKeyArgs(p.Key),
		toNumeric(model.BigOrZero(p.Liquidity)), p.Owner, toNumeric(model.BigOrZero(p.LastChange)),
		p.Cursor.Block, p.Cursor.LogIndex,
	)
}

func positionKeyArgs(key model.PositionKey) []any {
	return []any{key.Pool.ChainID, key.Pool.ID, key.TickLower, key.TickUpper}
}

func (s *Store) FindPosition(ctx context.Context, key model.PositionKey) (*model.Position, error) {
	return findRow(ctx, s.pool, positionsTable, positionKeyArgs(key), scanPosition)
}

func (s *Store) InsertPosition(ctx context.Context, position model.Position) (*model.Position, error) {
	return insertRow(ctx, s.pool, positionsTable, positionKeyArgs(position.Key), scanPosition, positionArgs(&position))
}

func (s *Store) UpdatePosition(ctx context.Context, key model.PositionKey, update model.PositionUpdate) (*model.Position, error) {
	return updateRow(ctx, s.pool, positionsTable, positionKeyArgs(key), scanPosition, func(p *model.Position) { update.Apply(p) }, positionArgs)
}

// PositionsByPool lists positions ordered by (tick_lower, tick_upper).
func (s *Store) PositionsByPool(ctx context.Context, pool model.PoolKey) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM positions WHERE chain_id=$1 AND pool=$2 ORDER BY tick_lower, tick_upper`,
		joinColumns(positionsTable),
	), pool.ChainID, pool.ID)
	if err != nil {
		return nil, fmt.Errorf("list positions %s: %w", pool, err)
	}
	defer rows.Close()

	out := make([]model.Position, 0)
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, *position)
	}
	return out, rows.Err()
}

var dailyVolumesTable = table{
	name:    "daily_volumes",
	columns: []string{"chain_id", "pool", "checkpoints", "volume_usd", "last_updated", "cursor_block", "cursor_log_index"},
	keys:    2,
}

func scanDailyVolume(row pgx.Row) (*model.DailyVolume, error) {
	var (
		dv          model.DailyVolume
		checkpoints []byte
		nums        = newNumerics(1)
	)
	if err := row.Scan(&dv.Pool.ChainID, &dv.Pool.ID, &checkpoints, &nums[0], &dv.LastUpdated, &dv.Cursor.Block, &dv.Cursor.LogIndex); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	dv.Checkpoints = make(map[uint64]*big.Int)
	if len(checkpoints) > 0 {
		if err := json.Unmarshal(checkpoints, &dv.Checkpoints); err != nil {
			return nil, fmt.Errorf("decode checkpoints: %w", err)
		}
	}
	nums.assign(&dv.VolumeUSD)
	dv.VolumeUSD = model.BigOrZero(dv.VolumeUSD)
	return &dv, nil
}

func dailyVolumeArgs(dv *model.DailyVolume) ([]any, error) {
	checkpoints := dv.Checkpoints
	if checkpoints == nil {
		checkpoints = map[uint64]*big.Int{}
	}
	encoded, err := json.Marshal(checkpoints)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoints: %w", err)
	}
	return []any{dv.Pool.ChainID, dv.Pool.ID, encoded, toNumeric(model.BigOrZero(dv.VolumeUSD)), dv.LastUpdated, dv.Cursor.Block, dv.Cursor.LogIndex}, nil
}

func (s *Store) FindDailyVolume(ctx context.Context, pool model.PoolKey) (*model.DailyVolume, error) {
	return findRow(ctx, s.pool, dailyVolumesTable, poolKeyArgs(pool), scanDailyVolume)
}

// ModifyDailyVolume serializes concurrent writers on the row lock of the window.
func (s *Store) ModifyDailyVolume(ctx context.Context, pool model.PoolKey, fn func(*model.DailyVolume) error) (*model.DailyVolume, error) {
	var out *model.DailyVolume
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, dailyVolumesTable.insertSQL(), pool.ChainID, pool.ID, []byte("{}"), toNumeric(new(big.Int)), uint64(0), uint64(0), uint64(0)); err != nil {
			return err
		}
		dv, err := scanDailyVolume(tx.QueryRow(ctx, dailyVolumesTable.selectSQL()+" FOR UPDATE", poolKeyArgs(pool)...))
		if err != nil {
			return err
		}
		if err := fn(dv); err != nil {
			return err
		}
		dv.Pool = pool
		args, err := dailyVolumeArgs(dv)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, dailyVolumesTable.upsertSQL(), args...); err != nil {
			return err
		}
		out = dv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("modify daily volume %s: %w", pool, err)
	}
	return out, nil
}

// StaleDailyVolumes lists windows last updated before the given time, oldest first.
func (s *Store) StaleDailyVolumes(ctx context.Context, before uint64, limit int) ([]model.DailyVolume, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_volumes WHERE last_updated < $1 ORDER BY last_updated, chain_id, pool`, joinColumns(dailyVolumesTable))
	args := []any{before}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stale volumes: %w", err)
	}
	defer rows.Close()

	out := make([]model.DailyVolume, 0)
	for rows.Next() {
		dv, err := scanDailyVolume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily volume: %w", err)
		}
		out = append(out, *dv)
	}
	return out, rows.Err()
}
