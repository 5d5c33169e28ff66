// Package oracle resolves the USD value of quote currencies at a point in time.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable is returned when no sample exists inside the lookback window.
var ErrUnavailable = errors.New("oracle price unavailable")

// DefaultLookback bounds how old a sample may be relative to the requested time.
const DefaultLookback = 15 * time.Minute

// Source returns the WAD scaled USD price of one whole unit of its asset at ts.
type Source interface {
	USDPrice(ctx context.Context, ts uint64) (*big.Int, error)
}

// Fixed always returns the same price, used for stablecoin numeraires.
type Fixed struct {
	Price *big.Int
}

func (f Fixed) USDPrice(context.Context, uint64) (*big.Int, error) {
	if f.Price == nil {
		return nil, ErrUnavailable
	}
	return new(big.Int).Set(f.Price), nil
}

// Router picks a Source by quote token address, falling back to a default.
type Router struct {
	mu       sync.RWMutex
	sources  map[string]Source
	fallback Source
}

func NewRouter(fallback Source) *Router {
	return &Router{sources: make(map[string]Source), fallback: fallback}
}

// Register binds a quote token to a source.
func (r *Router) Register(token string, source Source) {
	r.mu.Lock()
	r.sources[strings.ToLower(token)] = source
	r.mu.Unlock()
}

// QuoteUSD returns the USD price of one whole quote token at ts.
func (r *Router) QuoteUSD(ctx context.Context, quote string, ts uint64) (*big.Int, error) {
	r.mu.RLock()
	source, ok := r.sources[strings.ToLower(quote)]
	r.mu.RUnlock()
	if !ok {
		source = r.fallback
	}
	if source == nil {
		return nil, ErrUnavailable
	}
	return source.USDPrice(ctx, ts)
}

// MemorySource holds samples in process. Safe for concurrent use.
type MemorySource struct {
	mu       sync.RWMutex
	samples  []Sample
	lookback uint64
}

// Sample is one observed price.
type Sample struct {
	Timestamp uint64
	Price     *big.Int
}

func NewMemorySource(lookback time.Duration) *MemorySource {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &MemorySource{lookback: uint64(lookback / time.Second)}
}

func (m *MemorySource) Add(ts uint64, price *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, Sample{Timestamp: ts, Price: new(big.Int).Set(price)})
	sort.SliceStable(m.samples, func(i, j int) bool { return m.samples[i].Timestamp < m.samples[j].Timestamp })
}

func (m *MemorySource) USDPrice(_ context.Context, ts uint64) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := sort.Search(len(m.samples), func(i int) bool { return m.samples[i].Timestamp > ts })
	if idx == 0 {
		return nil, ErrUnavailable
	}
	sample := m.samples[idx-1]
	if ts-sample.Timestamp > m.lookback {
		return nil, ErrUnavailable
	}
	return new(big.Int).Set(sample.Price), nil
}
