package model

import "math/big"

// Partial updates: nil fields are left untouched by the store.

// PoolUpdate is a partial update of a Pool.
type PoolUpdate struct {
	PoolID               *string
	Hook                 *string
	Fee                  *uint32
	TickSpacing          *int32
	Tick                 *int32
	SqrtPriceX96         *big.Int
	Price                *big.Int
	BaseReserve          *big.Int
	QuoteReserve         *big.Int
	Liquidity            *big.Int
	FeesBase             *big.Int
	FeesQuote            *big.Int
	DollarLiquidity      *big.Int
	MarketCapUSD         *big.Int
	GraduationBalance    *big.Int
	GraduationThreshold  *big.Int
	GraduationPercent    *float64
	TotalProceeds        *big.Int
	TotalTokensSold      *big.Int
	Migrated             *bool
	SwapCount            *uint64
	LastSwapTimestamp    *uint64
	LastRefreshTimestamp *uint64
	Cursor               *Cursor
}

// Apply folds the update into p.
func (u PoolUpdate) Apply(p *Pool) {
	if u.PoolID != nil {
		p.PoolID = *u.PoolID
	}
	if u.Hook != nil {
		p.Hook = *u.Hook
	}
	if u.Fee != nil {
		p.Fee = *u.Fee
	}
	if u.TickSpacing != nil {
		p.TickSpacing = *u.TickSpacing
	}
	if u.Tick != nil {
		p.Tick = *u.Tick
	}
	setBig(&p.SqrtPriceX96, u.SqrtPriceX96)
	setBig(&p.Price, u.Price)
	setBig(&p.BaseReserve, u.BaseReserve)
	setBig(&p.QuoteReserve, u.QuoteReserve)
	setBig(&p.Liquidity, u.Liquidity)
	setBig(&p.FeesBase, u.FeesBase)
	setBig(&p.FeesQuote, u.FeesQuote)
	setBig(&p.DollarLiquidity, u.DollarLiquidity)
	setBig(&p.MarketCapUSD, u.MarketCapUSD)
	setBig(&p.GraduationBalance, u.GraduationBalance)
	setBig(&p.GraduationThreshold, u.GraduationThreshold)
	if u.GraduationPercent != nil {
		p.GraduationPercent = *u.GraduationPercent
	}
	setBig(&p.TotalProceeds, u.TotalProceeds)
	setBig(&p.TotalTokensSold, u.TotalTokensSold)
	if u.Migrated != nil {
		p.Migrated = *u.Migrated
	}
	if u.SwapCount != nil {
		p.SwapCount = *u.SwapCount
	}
	if u.LastSwapTimestamp != nil {
		p.LastSwapTimestamp = *u.LastSwapTimestamp
	}
	if u.LastRefreshTimestamp != nil {
		p.LastRefreshTimestamp = *u.LastRefreshTimestamp
	}
	if u.Cursor != nil {
		p.Cursor = *u.Cursor
	}
}

// TokenUpdate is a partial update of a Token.
type TokenUpdate struct {
	TotalSupply  *big.Int
	HolderCount  *int64
	VolumeUSD    *big.Int
	MarketCapUSD *big.Int
	Pool         *string
	Cursor       *Cursor
}

// Apply folds the update into t.
func (u TokenUpdate) Apply(t *Token) {
	setBig(&t.TotalSupply, u.TotalSupply)
	if u.HolderCount != nil {
		t.HolderCount = *u.HolderCount
	}
	setBig(&t.VolumeUSD, u.VolumeUSD)
	setBig(&t.MarketCapUSD, u.MarketCapUSD)
	if u.Pool != nil {
		t.Pool = *u.Pool
	}
	if u.Cursor != nil {
		t.Cursor = *u.Cursor
	}
}

// AssetUpdate is a partial update of an Asset.
type AssetUpdate struct {
	Pool          *string
	Protocol      *Protocol
	LiquidityUSD  *big.Int
	MarketCapUSD  *big.Int
	DayVolumeUSD  *big.Int
	Migrated      *bool
	MigrationPool *string
}

// Apply folds the update into a.
func (u AssetUpdate) Apply(a *Asset) {
	if u.Pool != nil {
		a.Pool = *u.Pool
	}
	if u.Protocol != nil {
		a.Protocol = *u.Protocol
	}
	setBig(&a.LiquidityUSD, u.LiquidityUSD)
	setBig(&a.MarketCapUSD, u.MarketCapUSD)
	setBig(&a.DayVolumeUSD, u.DayVolumeUSD)
	if u.Migrated != nil {
		a.Migrated = *u.Migrated
	}
	if u.MigrationPool != nil {
		a.MigrationPool = *u.MigrationPool
	}
}

// HourBucketUpdate is a partial update of an HourBucket. Open is fixed at creation.
type HourBucketUpdate struct {
	Close     *big.Int
	Low       *big.Int
	High      *big.Int
	Average   *big.Int
	Count     *uint64
	VolumeUSD *big.Int
	Cursor    *Cursor
}

// Apply folds the update into b.
func (u HourBucketUpdate) Apply(b *HourBucket) {
	setBig(&b.Close, u.Close)
	setBig(&b.Low, u.Low)
	setBig(&b.High, u.High)
	setBig(&b.Average, u.Average)
	if u.Count != nil {
		b.Count = *u.Count
	}
	setBig(&b.VolumeUSD, u.VolumeUSD)
	if u.Cursor != nil {
		b.Cursor = *u.Cursor
	}
}

// PositionUpdate is a partial update of a Position.
type PositionUpdate struct {
	Liquidity  *big.Int
	Owner      *string
	LastChange *big.Int
	Cursor     *Cursor
}

// Apply folds the update into p. An empty owner keeps the stored one.
func (u PositionUpdate) Apply(p *Position) {
	setBig(&p.Liquidity, u.Liquidity)
	if u.Owner != nil && *u.Owner != "" {
		p.Owner = *u.Owner
	}
	setBig(&p.LastChange, u.LastChange)
	if u.Cursor != nil {
		p.Cursor = *u.Cursor
	}
}

func setBig(dst **big.Int, value *big.Int) {
	if value == nil {
		return
	}
	*dst = new(big.Int).Set(value)
}
