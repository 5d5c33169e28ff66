package model

import "math/big"

// Pool is the materialized state of a liquidity pool.
type Pool struct {
	Key          PoolKey  `json:"key"`
	Protocol     Protocol `json:"protocol"`
	BaseToken    string   `json:"base_token"`
	QuoteToken   string   `json:"quote_token"`
	IsBaseToken0 bool     `json:"is_base_token0"`
	Initializer  string   `json:"initializer,omitempty"`
	Hook         string   `json:"hook,omitempty"`
	PoolID       string   `json:"pool_id,omitempty"`
	Fee          uint32   `json:"fee"`
	TickSpacing  int32    `json:"tick_spacing"`

	Tick            int32    `json:"tick"`
	SqrtPriceX96    *big.Int `json:"sqrt_price_x96"`
	Price           *big.Int `json:"price"`
	BaseReserve     *big.Int `json:"base_reserve"`
	QuoteReserve    *big.Int `json:"quote_reserve"`
	Liquidity       *big.Int `json:"liquidity"`
	FeesBase        *big.Int `json:"fees_base"`
	FeesQuote       *big.Int `json:"fees_quote"`
	DollarLiquidity *big.Int `json:"dollar_liquidity"`
	MarketCapUSD    *big.Int `json:"market_cap_usd"`

	GraduationBalance   *big.Int `json:"graduation_balance"`
	GraduationThreshold *big.Int `json:"graduation_threshold"`
	GraduationPercent   float64  `json:"graduation_percent"`
	TotalProceeds       *big.Int `json:"total_proceeds"`
	TotalTokensSold     *big.Int `json:"total_tokens_sold"`

	Migrated             bool   `json:"migrated"`
	SwapCount            uint64 `json:"swap_count"`
	LastSwapTimestamp    uint64 `json:"last_swap_timestamp"`
	LastRefreshTimestamp uint64 `json:"last_refresh_timestamp"`
	CreatedBlock         uint64 `json:"created_block"`
	Cursor               Cursor `json:"cursor"`
}

// Applied reports whether the event at cursor has already been folded into the pool.
func (p *Pool) Applied(c Cursor) bool {
	return !c.After(p.Cursor)
}

// Token is per-token bookkeeping shared by launched assets and numeraires.
type Token struct {
	Key          TokenKey `json:"key"`
	Decimals     uint8    `json:"decimals"`
	TotalSupply  *big.Int `json:"total_supply"`
	HolderCount  int64    `json:"holder_count"`
	VolumeUSD    *big.Int `json:"volume_usd"`
	MarketCapUSD *big.Int `json:"market_cap_usd"`
	Pool         string   `json:"pool,omitempty"`
	IsNumeraire  bool     `json:"is_numeraire"`
	Cursor       Cursor   `json:"cursor"`
}

// Asset is the launch-level view of a token sold through a pool.
type Asset struct {
	Key           TokenKey `json:"key"`
	Pool          string   `json:"pool"`
	Numeraire     string   `json:"numeraire"`
	Protocol      Protocol `json:"protocol"`
	LiquidityUSD  *big.Int `json:"liquidity_usd"`
	MarketCapUSD  *big.Int `json:"market_cap_usd"`
	DayVolumeUSD  *big.Int `json:"day_volume_usd"`
	Migrated      bool     `json:"migrated"`
	MigrationPool string   `json:"migration_pool,omitempty"`
	CreatedBlock  uint64   `json:"created_block"`
}

// DailyVolume holds the rolling 24h volume checkpoints of one pool.
type DailyVolume struct {
	Pool        PoolKey             `json:"pool"`
	Checkpoints map[uint64]*big.Int `json:"checkpoints"`
	VolumeUSD   *big.Int            `json:"volume_usd"`
	LastUpdated uint64              `json:"last_updated"`
	// Cursor is the last event folded into the checkpoints.
	Cursor Cursor `json:"cursor"`
}

// Applied reports whether the event at c has already been folded into the window.
func (d *DailyVolume) Applied(c Cursor) bool {
	return !c.After(d.Cursor)
}

// NewDailyVolume returns an empty window for pool.
func NewDailyVolume(pool PoolKey) *DailyVolume {
	return &DailyVolume{
		Pool:        pool,
		Checkpoints: make(map[uint64]*big.Int),
		VolumeUSD:   new(big.Int),
	}
}

// HourBucket is an hourly OHLC record of the pool price.
type HourBucket struct {
	Key       HourKey  `json:"key"`
	Open      *big.Int `json:"open"`
	Close     *big.Int `json:"close"`
	Low       *big.Int `json:"low"`
	High      *big.Int `json:"high"`
	Average   *big.Int `json:"average"`
	Count     uint64   `json:"count"`
	VolumeUSD *big.Int `json:"volume_usd"`
	Cursor    Cursor   `json:"cursor"`
}

func (b *HourBucket) Applied(c Cursor) bool {
	return !c.After(b.Cursor)
}

// Position is the liquidity deployed over one tick range of a pool.
type Position struct {
	Key       PositionKey `json:"key"`
	Liquidity *big.Int    `json:"liquidity"`
	Owner     string      `json:"owner"`
	// LastChange is the liquidity change the event at Cursor applied.
	LastChange *big.Int `json:"last_change"`
	Cursor     Cursor   `json:"cursor"`
}

func (p *Position) Applied(c Cursor) bool {
	return !c.After(p.Cursor)
}
