// Package engine turns decoded pool events into consistent entity updates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/cache"
	"poolScope/internal/chain"
	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/oracle"
	"poolScope/internal/reserves"
	"poolScope/internal/storage"
	"poolScope/internal/volume"
)

// ChainState is the contract state the engine reads. Implementations return
// *chain.ReadError on failure so the runner retries the event.
type ChainState interface {
	Tokens(ctx context.Context, block *big.Int, tokens []string) (map[string]model.TokenInfo, error)
	Balances(ctx context.Context, block *big.Int, token string, holders []string) (map[string]*big.Int, error)
	Slot0(ctx context.Context, block *big.Int, pool string) (model.Slot0, error)
	PairReserves(ctx context.Context, block *big.Int, pair string) (*big.Int, *big.Int, error)
	HookState(ctx context.Context, block *big.Int, hook string) (model.HookState, error)
	CurveState(ctx context.Context, block *big.Int, initializer, pool string) (model.CurveState, error)
}

// Prices resolves the WAD USD price of one whole quote token at a timestamp.
type Prices interface {
	QuoteUSD(ctx context.Context, quote string, ts uint64) (*big.Int, error)
}

// ConstantProductFee is the swap fee of constant-product pairs in hundredths of a bip.
const ConstantProductFee uint32 = 3000

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	NearBoundMargin int32
	// Numeraires are quote tokens classified as numeraires before any pool references them.
	Numeraires     []string
	TokenCacheSize int
	TokenCacheTTL  time.Duration
}

// Engine applies events to the store. Events must arrive in (block, log index) order
// with at most one in flight per pool.
type Engine struct {
	store      storage.Store
	chain      ChainState
	prices     Prices
	window     *volume.Window
	classes    *cache.TokenClasses
	metrics    *metrics.Metrics
	logger     *zap.Logger
	margin     int32
	numeraires map[string]struct{}
}

func New(store storage.Store, chainState ChainState, prices Prices, m *metrics.Metrics, logger *zap.Logger, opts Options) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NearBoundMargin <= 0 {
		opts.NearBoundMargin = reserves.DefaultNearBoundMargin
	}
	if opts.TokenCacheTTL <= 0 {
		opts.TokenCacheTTL = 10 * time.Minute
	}
	e := &Engine{
		store:      store,
		chain:      chainState,
		prices:     prices,
		window:     volume.NewWindow(store, logger),
		metrics:    m,
		logger:     logger,
		margin:     opts.NearBoundMargin,
		numeraires: make(map[string]struct{}, len(opts.Numeraires)),
	}
	for _, n := range opts.Numeraires {
		e.numeraires[strings.ToLower(n)] = struct{}{}
	}
	classes, err := cache.NewTokenClasses(opts.TokenCacheSize, opts.TokenCacheTTL, e.loadClass)
	if err != nil {
		return nil, fmt.Errorf("create token class cache: %w", err)
	}
	e.classes = classes
	return e, nil
}

// Classes exposes the token class cache.
func (e *Engine) Classes() *cache.TokenClasses { return e.classes }

// Handle applies one event. A returned error can leave the writes before the failing step
// in place. Each of them is guarded by the event cursor and the pool cursor is committed
// last, so redelivering the event finishes it without counting anything twice.
func (e *Engine) Handle(ctx context.Context, event model.Event) error {
	var (
		err      error
		protocol = model.ProtocolUnknown
	)
	switch ev := event.(type) {
	case model.PoolCreated:
		protocol = ev.Protocol
		err = e.handlePoolCreated(ctx, ev)
	case model.PoolInitialized:
		protocol = model.ProtocolConcentratedV4
		err = e.handlePoolInitialized(ctx, ev)
	case model.LiquidityChanged:
		protocol = ev.Protocol
		err = e.handleLiquidity(ctx, ev)
	case model.ConstantProductSwap:
		protocol = model.ProtocolConstantProduct
		err = e.handleSwap(ctx, model.NewPoolKey(ev.ChainID, ev.Pool), ev)
	case model.ConcentratedSwap:
		protocol = ev.Protocol
		err = e.handleSwap(ctx, model.NewPoolKey(ev.ChainID, ev.Pool), ev)
	case model.HookSwap:
		protocol = model.ProtocolHookBased
		err = e.handleSwap(ctx, model.NewPoolKey(ev.ChainID, ev.Hook), ev)
	case model.Sync:
		protocol = model.ProtocolConstantProduct
		err = e.handleSync(ctx, ev)
	case model.Transfer:
		err = e.handleTransfer(ctx, ev)
	case model.Migrated:
		protocol = ev.Protocol
		err = e.handleMigrated(ctx, ev)
	default:
		e.logger.Debug("ignoring event", zap.String("event", event.Name()))
		return nil
	}

	if err != nil {
		e.metrics.EventError(event.Name())
		var readErr *chain.ReadError
		if errors.As(err, &readErr) {
			e.metrics.ChainReadError(readErr.Op)
		}
		return fmt.Errorf("handle %s at %d/%d: %w", event.Name(), event.Meta().BlockNumber, event.Meta().LogIndex, err)
	}
	e.metrics.Event(event.Name(), protocol.String())
	return nil
}

// usdPrice returns nil when the oracle cannot price quote at ts. Misses never fail the event.
func (e *Engine) usdPrice(ctx context.Context, quote string, ts uint64) *big.Int {
	if e.prices == nil {
		return nil
	}
	price, err := e.prices.QuoteUSD(ctx, quote, ts)
	if err != nil {
		e.metrics.OracleMiss()
		if errors.Is(err, oracle.ErrUnavailable) {
			e.logger.Debug("usd price unavailable", zap.String("quote", quote), zap.Uint64("timestamp", ts))
		} else {
			e.logger.Warn("usd price lookup failed", zap.String("quote", quote), zap.Uint64("timestamp", ts), zap.Error(err))
		}
		return nil
	}
	return price
}

// loadClass backs the token class cache.
func (e *Engine) loadClass(ctx context.Context, key model.TokenKey) (cache.TokenClass, error) {
	asset, err := e.store.FindAsset(ctx, key)
	if err != nil {
		return cache.ClassUntracked, err
	}
	if asset != nil {
		return cache.ClassAsset, nil
	}
	if _, ok := e.numeraires[key.Address]; ok {
		return cache.ClassNumeraire, nil
	}
	token, err := e.store.FindToken(ctx, key)
	if err != nil {
		return cache.ClassUntracked, err
	}
	if token != nil && token.IsNumeraire {
		return cache.ClassNumeraire, nil
	}
	return cache.ClassUntracked, nil
}

// poolTokens loads the base and quote token records, reading and inserting any that are missing.
func (e *Engine) poolTokens(ctx context.Context, pool *model.Pool, block uint64) (*model.Token, *model.Token, error) {
	tokens, err := e.ensureTokens(ctx, pool.Key.ChainID, block, pool.Key.ID, pool.BaseToken, pool.QuoteToken)
	if err != nil {
		return nil, nil, err
	}
	return tokens[0], tokens[1], nil
}

// ensureTokens inserts token records for base and quote, reading decimals and supply from chain.
// The native currency (zero address) is treated as an 18 decimal numeraire.
func (e *Engine) ensureTokens(ctx context.Context, chainID, block uint64, pool, base, quote string) ([2]*model.Token, error) {
	var out [2]*model.Token
	addresses := []string{base, quote}
	var missing []string
	existing := make([]*model.Token, 2)
	for i, address := range addresses {
		token, err := e.store.FindToken(ctx, model.NewTokenKey(chainID, address))
		if err != nil {
			return out, fmt.Errorf("find token %s: %w", address, err)
		}
		existing[i] = token
		if token == nil && !model.IsZeroAddress(address) {
			missing = append(missing, address)
		}
	}

	infos := map[string]model.TokenInfo{}
	if len(missing) > 0 {
		var err error
		infos, err = e.chain.Tokens(ctx, new(big.Int).SetUint64(block), missing)
		if err != nil {
			return out, err
		}
	}

	for i, address := range addresses {
		if existing[i] != nil {
			out[i] = existing[i]
			continue
		}
		key := model.NewTokenKey(chainID, address)
		token := model.Token{
			Key:          key,
			Decimals:     18,
			TotalSupply:  new(big.Int),
			VolumeUSD:    new(big.Int),
			MarketCapUSD: new(big.Int),
			IsNumeraire:  i == 1,
		}
		if info, ok := infos[key.Address]; ok {
			token.Decimals = info.Decimals
			token.TotalSupply = model.BigOrZero(info.TotalSupply)
		}
		if i == 0 {
			token.Pool = pool
		}
		stored, err := e.store.InsertToken(ctx, token)
		if err != nil {
			return out, fmt.Errorf("insert token %s: %w", key, err)
		}
		out[i] = stored
		e.classes.Invalidate(key)
	}
	return out, nil
}

// isBaseToken0 orders tokens the way the pool manager and factories sort them.
func isBaseToken0(base, quote string) bool {
	return strings.ToLower(base) < strings.ToLower(quote)
}

func blockNumber(meta model.EventMeta) *big.Int {
	return new(big.Int).SetUint64(meta.BlockNumber)
}
