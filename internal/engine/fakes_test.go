package engine

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"poolScope/internal/chain"
	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/oracle"
	"poolScope/internal/pricing"
	"poolScope/internal/storage/memory"
)

const (
	chainID = uint64(8453)

	baseToken  = "0x00000000000000000000000000000000000000aa"
	quoteToken = "0x00000000000000000000000000000000000000bb"
	launchPool = "0x00000000000000000000000000000000000000cc"
	pairPool   = "0x00000000000000000000000000000000000000dd"
	hookPool   = "0x00000000000000000000000000000000000000ee"
	initAddr   = "0x00000000000000000000000000000000000000f1"
	holderA    = "0x000000000000000000000000000000000000a001"
	holderB    = "0x000000000000000000000000000000000000b002"

	startTS = uint64(1_700_000_000)
)

var (
	wad     = pricing.WAD
	q96     = new(big.Int).Lsh(big.NewInt(1), 96)
	usd2000 = new(big.Int).Mul(big.NewInt(2000), pricing.WAD)
	supply  = new(big.Int).Mul(big.NewInt(1_000_000_000), pricing.WAD)
)

func ether(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), wad) }

func readFailure(op string) error { return &chain.ReadError{Op: op, Err: errors.New("timeout")} }

// fakeChain serves canned contract state. Failing ops return a chain.ReadError.
type fakeChain struct {
	mu       sync.Mutex
	tokens   map[string]model.TokenInfo
	slot0    map[string]model.Slot0
	pairs    map[string][2]*big.Int
	hooks    map[string]model.HookState
	curves   map[string]model.CurveState
	balances map[string]map[string]*big.Int
	failing  map[string]bool
	calls    map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		tokens: map[string]model.TokenInfo{
			baseToken:  {Address: baseToken, Decimals: 18, TotalSupply: supply},
			quoteToken: {Address: quoteToken, Decimals: 18, TotalSupply: ether(1_000_000)},
		},
		slot0:    map[string]model.Slot0{},
		pairs:    map[string][2]*big.Int{},
		hooks:    map[string]model.HookState{},
		curves:   map[string]model.CurveState{},
		balances: map[string]map[string]*big.Int{},
		failing:  map[string]bool{},
		calls:    map[string]int{},
	}
}

func (f *fakeChain) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.failing[op] {
		return readFailure(op)
	}
	return nil
}

func (f *fakeChain) Tokens(_ context.Context, _ *big.Int, tokens []string) (map[string]model.TokenInfo, error) {
	if err := f.enter("tokens"); err != nil {
		return nil, err
	}
	out := make(map[string]model.TokenInfo, len(tokens))
	for _, token := range tokens {
		out[strings.ToLower(token)] = f.tokens[strings.ToLower(token)]
	}
	return out, nil
}

func (f *fakeChain) Balances(_ context.Context, _ *big.Int, token string, holders []string) (map[string]*big.Int, error) {
	if err := f.enter("balances"); err != nil {
		return nil, err
	}
	out := make(map[string]*big.Int, len(holders))
	for _, holder := range holders {
		balance := f.balances[token][holder]
		if balance == nil {
			balance = new(big.Int)
		}
		out[holder] = balance
	}
	return out, nil
}

func (f *fakeChain) Slot0(_ context.Context, _ *big.Int, pool string) (model.Slot0, error) {
	if err := f.enter("slot0"); err != nil {
		return model.Slot0{}, err
	}
	return f.slot0[pool], nil
}

func (f *fakeChain) PairReserves(_ context.Context, _ *big.Int, pair string) (*big.Int, *big.Int, error) {
	if err := f.enter("getReserves"); err != nil {
		return nil, nil, err
	}
	r := f.pairs[pair]
	return r[0], r[1], nil
}

func (f *fakeChain) HookState(_ context.Context, _ *big.Int, hook string) (model.HookState, error) {
	if err := f.enter("hookState"); err != nil {
		return model.HookState{}, err
	}
	return f.hooks[hook], nil
}

func (f *fakeChain) CurveState(_ context.Context, _ *big.Int, _ string, pool string) (model.CurveState, error) {
	if err := f.enter("getState"); err != nil {
		return model.CurveState{}, err
	}
	return f.curves[pool], nil
}

var errWriteFailed = errors.New("write failed")

// failingStore fails the next call of each armed write once, after which it passes through.
type failingStore struct {
	*memory.Store
	mu    sync.Mutex
	armed map[string]bool
}

func (f *failingStore) failNext(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[op] = true
}

func (f *failingStore) trip(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.armed[op] {
		delete(f.armed, op)
		return errWriteFailed
	}
	return nil
}

func (f *failingStore) InsertPool(ctx context.Context, pool model.Pool) (*model.Pool, error) {
	if err := f.trip("InsertPool"); err != nil {
		return nil, err
	}
	return f.Store.InsertPool(ctx, pool)
}

func (f *failingStore) UpdatePool(ctx context.Context, key model.PoolKey, update model.PoolUpdate) (*model.Pool, error) {
	if err := f.trip("UpdatePool"); err != nil {
		return nil, err
	}
	return f.Store.UpdatePool(ctx, key, update)
}

func (f *failingStore) DeletePool(ctx context.Context, key model.PoolKey) error {
	if err := f.trip("DeletePool"); err != nil {
		return err
	}
	return f.Store.DeletePool(ctx, key)
}

func (f *failingStore) InsertAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	if err := f.trip("InsertAsset"); err != nil {
		return nil, err
	}
	return f.Store.InsertAsset(ctx, asset)
}

func (f *failingStore) UpdateAsset(ctx context.Context, key model.TokenKey, update model.AssetUpdate) (*model.Asset, error) {
	if err := f.trip("UpdateAsset"); err != nil {
		return nil, err
	}
	return f.Store.UpdateAsset(ctx, key, update)
}

func (f *failingStore) UpdateToken(ctx context.Context, key model.TokenKey, update model.TokenUpdate) (*model.Token, error) {
	if err := f.trip("UpdateToken"); err != nil {
		return nil, err
	}
	return f.Store.UpdateToken(ctx, key, update)
}

func (f *failingStore) UpdatePosition(ctx context.Context, key model.PositionKey, update model.PositionUpdate) (*model.Position, error) {
	if err := f.trip("UpdatePosition"); err != nil {
		return nil, err
	}
	return f.Store.UpdatePosition(ctx, key, update)
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Store
	writes  *failingStore
	chain   *fakeChain
	prices  *oracle.MemorySource
	metrics *metrics.Metrics
	engine  *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		store:   memory.New(),
		chain:   newFakeChain(),
		prices:  oracle.NewMemorySource(15 * time.Minute),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	h.writes = &failingStore{Store: h.store, armed: map[string]bool{}}
	router := oracle.NewRouter(h.prices)
	engine, err := New(h.writes, h.chain, router, h.metrics, nil, Options{TokenCacheTTL: time.Minute})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) handle(event model.Event) {
	h.t.Helper()
	require.NoError(h.t, h.engine.Handle(h.ctx, event))
}

// redeliver fails the armed write on the first attempt and expects the second to succeed.
func (h *harness) redeliver(event model.Event, op string) {
	h.t.Helper()
	h.writes.failNext(op)
	require.ErrorIs(h.t, h.engine.Handle(h.ctx, event), errWriteFailed)
	h.handle(event)
}

func (h *harness) hourBucket(id string, ts uint64) *model.HourBucket {
	h.t.Helper()
	bucket, err := h.store.FindHourBucket(h.ctx, model.HourKey{Pool: model.NewPoolKey(chainID, id), HourStart: model.HourStart(ts)})
	require.NoError(h.t, err)
	return bucket
}

func (h *harness) pool(id string) *model.Pool {
	h.t.Helper()
	pool, err := h.store.FindPool(h.ctx, model.NewPoolKey(chainID, id))
	require.NoError(h.t, err)
	return pool
}

func (h *harness) token(address string) *model.Token {
	h.t.Helper()
	token, err := h.store.FindToken(h.ctx, model.NewTokenKey(chainID, address))
	require.NoError(h.t, err)
	return token
}

func (h *harness) asset(address string) *model.Asset {
	h.t.Helper()
	asset, err := h.store.FindAsset(h.ctx, model.NewTokenKey(chainID, address))
	require.NoError(h.t, err)
	return asset
}

func (h *harness) dailyVolume(id string) *model.DailyVolume {
	h.t.Helper()
	dv, err := h.store.FindDailyVolume(h.ctx, model.NewPoolKey(chainID, id))
	require.NoError(h.t, err)
	return dv
}

func meta(block, logIndex, ts uint64) model.EventMeta {
	return model.EventMeta{ChainID: chainID, BlockNumber: block, LogIndex: logIndex, Timestamp: ts, TxHash: "0xfeed"}
}

// createV3Launch creates a concentrated launch pool priced at 1.0 with a curve threshold.
func (h *harness) createV3Launch(block uint64) {
	h.t.Helper()
	h.chain.slot0[launchPool] = model.Slot0{SqrtPriceX96: new(big.Int).Set(q96), Tick: 0, Liquidity: new(big.Int)}
	h.chain.curves[launchPool] = model.CurveState{Numeraire: quoteToken, TickLower: -20000, TickUpper: 0, TokensOnCurve: ether(1_000_000)}
	h.handle(model.PoolCreated{
		EventMeta:   meta(block, 0, startTS),
		Protocol:    model.ProtocolConcentratedV3,
		Pool:        launchPool,
		BaseToken:   baseToken,
		QuoteToken:  quoteToken,
		Initializer: initAddr,
		Fee:         3000,
	})
}
