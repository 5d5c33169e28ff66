package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"poolScope/internal/model"
)

var poolsTable = table{
	name: "pools",
	columns: []string{
		"chain_id", "id", "protocol", "base_token", "quote_token", "is_base_token0",
		"initializer", "hook", "pool_id", "fee", "tick_spacing", "tick",
		"sqrt_price_x96", "price", "base_reserve", "quote_reserve", "liquidity",
		"fees_base", "fees_quote", "dollar_liquidity", "market_cap_usd",
		"graduation_balance", "graduation_threshold", "total_proceeds", "total_tokens_sold",
		"graduation_percent", "migrated", "swap_count", "last_swap_timestamp",
		"last_refresh_timestamp", "created_block", "cursor_block", "cursor_log_index",
	},
	keys: 2,
}

const poolNumerics = 13

func scanPool(row pgx.Row) (*model.Pool, error) {
	var (
		p        model.Pool
		protocol int16
		nums     = newNumerics(poolNumerics)
	)
	dest := []any{
		&p.Key.ChainID, &p.Key.ID, &protocol, &p.BaseToken, &p.QuoteToken, &p.IsBaseToken0,
		&p.Initializer, &p.Hook, &p.PoolID, &p.Fee, &p.TickSpacing, &p.Tick,
	}
	dest = append(dest, nums.dest()...)
	dest = append(dest,
		&p.GraduationPercent, &p.Migrated, &p.SwapCount, &p.LastSwapTimestamp,
		&p.LastRefreshTimestamp, &p.CreatedBlock, &p.Cursor.Block, &p.Cursor.LogIndex,
	)
	if err := row.Scan(dest...); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	p.Protocol = model.Protocol(protocol)
	nums.assign(
		&p.SqrtPriceX96, &p.Price, &p.BaseReserve, &p.QuoteReserve, &p.Liquidity,
		&p.FeesBase, &p.FeesQuote, &p.DollarLiquidity, &p.MarketCapUSD,
		&p.GraduationBalance, &p.GraduationThreshold, &p.TotalProceeds, &p.TotalTokensSold,
	)
	return &p, nil
}

func poolArgs(p *model.Pool) []any {
	return []any{
		p.Key.ChainID, p.Key.ID, int16(p.Protocol), p.BaseToken, p.QuoteToken, p.IsBaseToken0,
		p.Initializer, p.Hook, p.PoolID, p.Fee, p.TickSpacing, p.Tick,
		toNumeric(p.SqrtPriceX96), toNumeric(p.Price), toNumeric(p.BaseReserve), toNumeric(p.QuoteReserve), toNumeric(p.Liquidity),
		toNumeric(p.FeesBase), toNumeric(p.FeesQuote), toNumeric(p.DollarLiquidity), toNumeric(p.MarketCapUSD),
		toNumeric(p.GraduationBalance), toNumeric(p.GraduationThreshold), toNumeric(p.TotalProceeds), toNumeric(p.TotalTokensSold),
		p.GraduationPercent, p.Migrated, p.SwapCount, p.LastSwapTimestamp,
		p.LastRefreshTimestamp, p.CreatedBlock, p.Cursor.Block, p.Cursor.LogIndex,
	}
}

func poolKeyArgs(key model.PoolKey) []any { return []any{key.ChainID, key.ID} }

func (s *Store) FindPool(ctx context.Context, key model.PoolKey) (*model.Pool, error) {
	return findRow(ctx, s.pool, poolsTable, poolKeyArgs(key), scanPool)
}

func (s *Store) InsertPool(ctx context.Context, pool model.Pool) (*model.Pool, error) {
	return insertRow(ctx, s.pool, poolsTable, poolKeyArgs(pool.Key), scanPool, poolArgs(&pool))
}

func (s *Store) UpdatePool(ctx context.Context, key model.PoolKey, update model.PoolUpdate) (*model.Pool, error) {
	return updateRow(ctx, s.pool, poolsTable, poolKeyArgs(key), scanPool, func(p *model.Pool) { update.Apply(p) }, poolArgs)
}

// DeletePool removes the pool with its positions and daily volume in one transaction.
func (s *Store) DeletePool(ctx context.Context, key model.PoolKey) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM positions WHERE chain_id=$1 AND pool=$2`,
			`DELETE FROM daily_volumes WHERE chain_id=$1 AND pool=$2`,
			`DELETE FROM pools WHERE chain_id=$1 AND id=$2`,
		} {
			if _, err := tx.Exec(ctx, stmt, key.ChainID, key.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete pool %s: %w", key, err)
	}
	return nil
}

var tokensTable = table{
	name: "tokens",
	columns: []string{
		"chain_id", "address", "decimals", "total_supply", "holder_count", "volume_usd",
		"market_cap_usd", "pool", "is_numeraire", "cursor_block", "cursor_log_index",
	},
	keys: 2,
}

func scanToken(row pgx.Row) (*model.Token, error) {
	var (
		t        model.Token
		decimals int16
		nums     = newNumerics(3)
	)
	err := row.Scan(
		&t.Key.ChainID, &t.Key.Address, &decimals, &nums[0], &t.HolderCount, &nums[1],
		&nums[2], &t.Pool, &t.IsNumeraire, &t.Cursor.Block, &t.Cursor.LogIndex,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	t.Decimals = uint8(decimals)
	nums.assign(&t.TotalSupply, &t.VolumeUSD, &t.MarketCapUSD)
	return &t, nil
}

func tokenArgs(t *model.Token) []any {
	return []any{
		t.Key.ChainID, t.Key.Address, int16(t.Decimals), toNumeric(t.TotalSupply), t.HolderCount, toNumeric(t.VolumeUSD),
		toNumeric(t.MarketCapUSD), t.Pool, t.IsNumeraire, t.Cursor.Block, t.Cursor.LogIndex,
	}
}

func tokenKeyArgs(key model.TokenKey) []any { return []any{key.ChainID, key.Address} }

func (s *Store) FindToken(ctx context.Context, key model.TokenKey) (*model.Token, error) {
	return findRow(ctx, s.pool, tokensTable, tokenKeyArgs(key), scanToken)
}

func (s *Store) InsertToken(ctx context.Context, token model.Token) (*model.Token, error) {
	return insertRow(ctx, s.pool, tokensTable, tokenKeyArgs(token.Key), scanToken, tokenArgs(&token))
}

func (s *Store) UpdateToken(ctx context.Context, key model.TokenKey, update model.TokenUpdate) (*model.Token, error) {
	return updateRow(ctx, s.pool, tokensTable, tokenKeyArgs(key), scanToken, func(t *model.Token) { update.Apply(t) }, tokenArgs)
}

var assetsTable = table{
	name: "assets",
	columns: []string{
		"chain_id", "address", "pool", "numeraire", "protocol", "liquidity_usd",
		"market_cap_usd", "day_volume_usd", "migrated", "migration_pool", "created_block",
	},
	keys: 2,
}

func scanAsset(row pgx.Row) (*model.Asset, error) {
	var (
		a        model.Asset
		protocol int16
		nums     = newNumerics(3)
	)
	err := row.Scan(
		&a.Key.ChainID, &a.Key.Address, &a.Pool, &a.Numeraire, &protocol, &nums[0],
		&nums[1], &nums[2], &a.Migrated, &a.MigrationPool, &a.CreatedBlock,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	a.Protocol = model.Protocol(protocol)
	nums.assign(&a.LiquidityUSD, &a.MarketCapUSD, &a.DayVolumeUSD)
	return &a, nil
}

func assetArgs(a *model.Asset) []any {
	return []any{
		a.Key.ChainID, a.Key.Address, a.Pool, a.Numeraire, int16(a.Protocol), toNumeric(a.LiquidityUSD),
		toNumeric(a.MarketCapUSD), toNumeric(a.DayVolumeUSD), a.Migrated, a.MigrationPool, a.CreatedBlock,
	}
}

func (s *Store) FindAsset(ctx context.Context, key model.TokenKey) (*model.Asset, error) {
	return findRow(ctx, s.pool, assetsTable, tokenKeyArgs(key), scanAsset)
}

func (s *Store) InsertAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	return insertRow(ctx, s.pool, assetsTable, tokenKeyArgs(asset.Key), scanAsset, assetArgs(&asset))
}

func (s *Store) UpdateAsset(ctx context.Context, key model.TokenKey, update model.AssetUpdate) (*model.Asset, error) {
	return updateRow(ctx, s.pool, assetsTable, tokenKeyArgs(key), scanAsset, func(a *model.Asset) { update.Apply(a) }, assetArgs)
}
