package model

import "math/big"

// Event is a decoded chain event ready for the metrics engine.
type Event interface {
	Meta() EventMeta
	Name() string
}

// EventMeta carries the log position shared by every event.
type EventMeta struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
	TxHash      string `json:"tx_hash"`
	Address     string `json:"address"`
	Timestamp   uint64 `json:"timestamp"`
}

func (m EventMeta) Meta() EventMeta { return m }

// Cursor returns the (block, log index) position of the event.
func (m EventMeta) Cursor() Cursor {
	return Cursor{Block: m.BlockNumber, LogIndex: m.LogIndex}
}

// Cursor orders events within a chain.
type Cursor struct {
	Block    uint64 `json:"block"`
	LogIndex uint64 `json:"log_index"`
}

// After reports whether c is strictly later than other.
func (c Cursor) After(other Cursor) bool {
	if c.Block != other.Block {
		return c.Block > other.Block
	}
	return c.LogIndex > other.LogIndex
}

// PoolCreated announces a new launch pool (or a pool id on a singleton manager).
type PoolCreated struct {
	EventMeta
	Protocol    Protocol `json:"protocol"`
	Pool        string   `json:"pool"`
	Hook        string   `json:"hook,omitempty"`
	BaseToken   string   `json:"base_token"`
	QuoteToken  string   `json:"quote_token"`
	Initializer string   `json:"initializer"`
	Fee         uint32   `json:"fee"`
	TickSpacing int32    `json:"tick_spacing"`
	// SqrtPriceX96 and Tick are set when the creating log already carries the initial price.
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96,omitempty"`
	Tick         int32    `json:"tick"`
}

func (PoolCreated) Name() string { return "PoolCreated" }

// PoolInitialized is a V4 PoolManager Initialize log.
type PoolInitialized struct {
	EventMeta
	PoolID       string   `json:"pool_id"`
	Currency0    string   `json:"currency0"`
	Currency1    string   `json:"currency1"`
	Fee          uint32   `json:"fee"`
	TickSpacing  int32    `json:"tick_spacing"`
	Hooks        string   `json:"hooks"`
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Tick         int32    `json:"tick"`
}

func (PoolInitialized) Name() string { return "PoolInitialized" }

// LiquidityChanged is a mint (positive delta) or burn (negative delta) over a tick range.
type LiquidityChanged struct {
	EventMeta
	Protocol       Protocol `json:"protocol"`
	Pool           string   `json:"pool"`
	Owner          string   `json:"owner"`
	TickLower      int32    `json:"tick_lower"`
	TickUpper      int32    `json:"tick_upper"`
	LiquidityDelta *big.Int `json:"liquidity_delta"`
}

func (e LiquidityChanged) Name() string {
	if e.LiquidityDelta != nil && e.LiquidityDelta.Sign() < 0 {
		return "Burn"
	}
	return "Mint"
}

// ConstantProductSwap is a V2 pair Swap log.
type ConstantProductSwap struct {
	EventMeta
	Pool       string   `json:"pool"`
	Sender     string   `json:"sender"`
	Recipient  string   `json:"recipient"`
	Amount0In  *big.Int `json:"amount0_in"`
	Amount1In  *big.Int `json:"amount1_in"`
	Amount0Out *big.Int `json:"amount0_out"`
	Amount1Out *big.Int `json:"amount1_out"`
}

func (ConstantProductSwap) Name() string { return "Swap" }

// ConcentratedSwap is a V3 pool or V4 PoolManager Swap log.
// V3 amounts are pool-side deltas; V4 amounts are swapper-side deltas.
type ConcentratedSwap struct {
	EventMeta
	Protocol     Protocol `json:"protocol"`
	Pool         string   `json:"pool"`
	Sender       string   `json:"sender"`
	Recipient    string   `json:"recipient,omitempty"`
	Amount0      *big.Int `json:"amount0"`
	Amount1      *big.Int `json:"amount1"`
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Liquidity    *big.Int `json:"liquidity"`
	Tick         int32    `json:"tick"`
	Fee          uint32   `json:"fee,omitempty"`
}

func (ConcentratedSwap) Name() string { return "Swap" }

// HookSwap is the bonding-curve hook Swap log carrying cumulative totals.
type HookSwap struct {
	EventMeta
	Hook            string   `json:"hook"`
	CurrentTick     int32    `json:"current_tick"`
	TotalProceeds   *big.Int `json:"total_proceeds"`
	TotalTokensSold *big.Int `json:"total_tokens_sold"`
}

func (HookSwap) Name() string { return "Swap" }

// Sync is a V2 pair reserve snapshot, emitted before the Swap it belongs to.
type Sync struct {
	EventMeta
	Pool     string   `json:"pool"`
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
}

func (Sync) Name() string { return "Sync" }

// Transfer is an ERC20 Transfer. Balances are the post-transfer balances when known.
type Transfer struct {
	EventMeta
	Token       string   `json:"token"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Value       *big.Int `json:"value"`
	FromBalance *big.Int `json:"from_balance,omitempty"`
	ToBalance   *big.Int `json:"to_balance,omitempty"`
}

func (Transfer) Name() string { return "Transfer" }

// Migrated re-points an asset from its launch pool to a standard liquidity venue.
type Migrated struct {
	EventMeta
	Asset    string   `json:"asset"`
	Pool     string   `json:"pool"`
	Protocol Protocol `json:"protocol"`
}

func (Migrated) Name() string { return "Migrate" }
