package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads price samples from a sorted set scored by unix seconds.
// Members are "<ts>:<wad price>" so each timestamp holds one sample.
type RedisSource struct {
	client   redis.UniversalClient
	key      string
	lookback time.Duration
}

func NewRedisSource(client redis.UniversalClient, key string, lookback time.Duration) *RedisSource {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &RedisSource{client: client, key: key, lookback: lookback}
}

// USDPrice returns the newest sample at or before ts and within the lookback.
func (r *RedisSource) USDPrice(ctx context.Context, ts uint64) (*big.Int, error) {
	floor := uint64(0)
	if back := uint64(r.lookback / time.Second); ts > back {
		floor = ts - back
	}
	members, err := r.client.ZRevRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Max:   strconv.FormatUint(ts, 10),
		Min:   strconv.FormatUint(floor, 10),
		Count: 1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("read oracle samples: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrUnavailable
	}
	_, price, err := parseMember(members[0])
	if err != nil {
		return nil, err
	}
	return price, nil
}

// Store appends a sample.
func (r *RedisSource) Store(ctx context.Context, ts uint64, price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("invalid oracle price %v", price)
	}
	member := formatMember(ts, price)
	if err := r.client.ZAdd(ctx, r.key, redis.Z{Score: float64(ts), Member: member}).Err(); err != nil {
		return fmt.Errorf("store oracle sample: %w", err)
	}
	return nil
}

// Prune drops samples older than before.
func (r *RedisSource) Prune(ctx context.Context, before uint64) (int64, error) {
	if before == 0 {
		return 0, nil
	}
	removed, err := r.client.ZRemRangeByScore(ctx, r.key, "-inf", "("+strconv.FormatUint(before, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("prune oracle samples: %w", err)
	}
	return removed, nil
}

func formatMember(ts uint64, price *big.Int) string {
	return strconv.FormatUint(ts, 10) + ":" + price.String()
}

func parseMember(member string) (uint64, *big.Int, error) {
	tsPart, pricePart, ok := strings.Cut(member, ":")
	if !ok {
		return 0, nil, fmt.Errorf("malformed oracle sample %q", member)
	}
	ts, err := strconv.ParseUint(tsPart, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("malformed oracle timestamp %q: %w", tsPart, err)
	}
	price, ok := new(big.Int).SetString(pricePart, 10)
	if !ok {
		return 0, nil, fmt.Errorf("malformed oracle price %q", pricePart)
	}
	return ts, price, nil
}
