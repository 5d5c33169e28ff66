// Package memory is an in-process Store used by tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"poolScope/internal/model"
)

// Store keeps every entity in maps guarded by one mutex. Values are cloned on the way in and out.
type Store struct {
	mu        sync.Mutex
	pools     map[model.PoolKey]model.Pool
	tokens    map[model.TokenKey]model.Token
	assets    map[model.TokenKey]model.Asset
	buckets   map[model.HourKey]model.HourBucket
	positions map[model.PositionKey]model.Position
	volumes   map[model.PoolKey]model.DailyVolume
	state     map[string]uint64
}

func New() *Store {
	return &Store{
		pools:     make(map[model.PoolKey]model.Pool),
		tokens:    make(map[model.TokenKey]model.Token),
		assets:    make(map[model.TokenKey]model.Asset),
		buckets:   make(map[model.HourKey]model.HourBucket),
		positions: make(map[model.PositionKey]model.Position),
		volumes:   make(map[model.PoolKey]model.DailyVolume),
		state:     make(map[string]uint64),
	}
}

func (s *Store) FindPool(_ context.Context, key model.PoolKey) (*model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[key]
	if !ok {
		return nil, nil
	}
	out := pool.Clone()
	return &out, nil
}

func (s *Store) InsertPool(_ context.Context, pool model.Pool) (*model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pools[pool.Key]; ok {
		out := existing.Clone()
		return &out, nil
	}
	s.pools[pool.Key] = pool.Clone()
	out := pool.Clone()
	return &out, nil
}

func (s *Store) UpdatePool(_ context.Context, key model.PoolKey, update model.PoolUpdate) (*model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[key]
	if !ok {
		return nil, nil
	}
	pool = pool.Clone()
	update.Apply(&pool)
	s.pools[key] = pool
	out := pool.Clone()
	return &out, nil
}

func (s *Store) DeletePool(_ context.Context, key model.PoolKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pools, key)
	delete(s.volumes, key)
	for posKey := range s.positions {
		if posKey.Pool == key {
			delete(s.positions, posKey)
		}
	}
	return nil
}

func (s *Store) FindToken(_ context.Context, key model.TokenKey) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[key]
	if !ok {
		return nil, nil
	}
	out := token.Clone()
	return &out, nil
}

func (s *Store) InsertToken(_ context.Context, token model.Token) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tokens[token.Key]; ok {
		out := existing.Clone()
		return &out, nil
	}
	s.tokens[token.Key] = token.Clone()
	out := token.Clone()
	return &out, nil
}

func (s *Store) UpdateToken(_ context.Context, key model.TokenKey, update model.TokenUpdate) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[key]
	if !ok {
		return nil, nil
	}
	token = token.Clone()
	update.Apply(&token)
	s.tokens[key] = token
	out := token.Clone()
	return &out, nil
}

func (s *Store) FindAsset(_ context.Context, key model.TokenKey) (*model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[key]
	if !ok {
		return nil, nil
	}
	out := asset.Clone()
	return &out, nil
}

func (s *Store) InsertAsset(_ context.Context, asset model.Asset) (*model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.assets[asset.Key]; ok {
		out := existing.Clone()
		return &out, nil
	}
	s.assets[asset.Key] = asset.Clone()
	out := asset.Clone()
	return &out, nil
}

func (s *Store) UpdateAsset(_ context.Context, key model.TokenKey, update model.AssetUpdate) (*model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[key]
	if !ok {
		return nil, nil
	}
	asset = asset.Clone()
	update.Apply(&asset)
	s.assets[key] = asset
	out := asset.Clone()
	return &out, nil
}

func (s *Store) FindHourBucket(_ context.Context, key model.HourKey) (*model.HourBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[key]
	if !ok {
		return nil, nil
	}
	out := bucket.Clone()
	return &out, nil
}

func (s *Store) InsertHourBucket(_ context.Context, bucket model.HourBucket) (*model.HourBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.buckets[bucket.Key]; ok {
		out := existing.Clone()
		return &out, nil
	}
	s.buckets[bucket.Key] = bucket.Clone()
	out := bucket.Clone()
	return &out, nil
}

func (s *Store) UpdateHourBucket(_ context.Context, key model.HourKey, update model.HourBucketUpdate) (*model.HourBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[key]
	if !ok {
		return nil, nil
	}
	bucket = bucket.Clone()
	update.Apply(&bucket)
	s.buckets[key] = bucket
	out := bucket.Clone()
	return &out, nil
}

func (s *Store) FindPosition(_ context.Context, key model.PositionKey) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, ok := s.positions[key]
	if !ok {
		return nil, nil
	}
	out := position.Clone()
	return &out, nil
}

func (s *Store) InsertPosition(_ context.Context, position model.Position) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.positions[position.Key]; ok {
		out := existing.Clone()
		return &out, nil
	}
	s.positions[position.Key] = position.Clone()
	out := position.Clone()
	return &out, nil
}

func (s *Store) UpdatePosition(_ context.Context, key model.PositionKey, update model.PositionUpdate) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	position, ok := s.positions[key]
	if !ok {
		return nil, nil
	}
	position = position.Clone()
	update.Apply(&position)
	s.positions[key] = position
	out := position.Clone()
	return &out, nil
}

func (s *Store) PositionsByPool(_ context.Context, pool model.PoolKey) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Position, 0)
	for key, position := range s.positions {
		if key.Pool == pool {
			out = append(out, position.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.TickLower != out[j].Key.TickLower {
			return out[i].Key.TickLower < out[j].Key.TickLower
		}
		return out[i].Key.TickUpper < out[j].Key.TickUpper
	})
	return out, nil
}

func (s *Store) FindDailyVolume(_ context.Context, pool model.PoolKey) (*model.DailyVolume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dv, ok := s.volumes[pool]
	if !ok {
		return nil, nil
	}
	out := dv.Clone()
	return &out, nil
}

func (s *Store) ModifyDailyVolume(_ context.Context, pool model.PoolKey, fn func(*model.DailyVolume) error) (*model.DailyVolume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var working model.DailyVolume
	if existing, ok := s.volumes[pool]; ok {
		working = existing.Clone()
	} else {
		working = *model.NewDailyVolume(pool)
	}
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.Pool = pool
	s.volumes[pool] = working.Clone()
	out := working.Clone()
	return &out, nil
}

func (s *Store) StaleDailyVolumes(_ context.Context, before uint64, limit int) ([]model.DailyVolume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DailyVolume, 0)
	for _, dv := range s.volumes {
		if dv.LastUpdated < before {
			out = append(out, dv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUpdated != out[j].LastUpdated {
			return out[i].LastUpdated < out[j].LastUpdated
		}
		return out[i].Pool.String() < out[j].Pool.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LoadState(_ context.Context, name string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.state[name]
	return ts, ok, nil
}

func (s *Store) SaveState(_ context.Context, name string, ts uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[name] = ts
	return nil
}
