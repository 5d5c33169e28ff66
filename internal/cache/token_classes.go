// Package cache holds read-through caches in front of the entity store.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"poolScope/internal/model"
)

// TokenClass says how the engine treats transfers of a token.
type TokenClass uint8

const (
	// ClassUntracked tokens are ignored.
	ClassUntracked TokenClass = iota
	// ClassAsset tokens are launched assets whose holders and supply are tracked.
	ClassAsset
	// ClassNumeraire tokens are quote currencies.
	ClassNumeraire
)

func (c TokenClass) String() string {
	switch c {
	case ClassAsset:
		return "asset"
	case ClassNumeraire:
		return "numeraire"
	default:
		return "untracked"
	}
}

// ClassLoader resolves the class of a token on a cache miss.
type ClassLoader func(ctx context.Context, key model.TokenKey) (TokenClass, error)

type classEntry struct {
	class   TokenClass
	expires time.Time
}

// TokenClasses is a read-through TTL cache of token classes.
type TokenClasses struct {
	cache  *lru.Cache
	ttl    time.Duration
	loader ClassLoader

	mu  sync.Mutex
	now func() time.Time
}

func NewTokenClasses(size int, ttl time.Duration, loader ClassLoader) (*TokenClasses, error) {
	if size <= 0 {
		size = 4096
	}
	if loader == nil {
		return nil, fmt.Errorf("token class loader is required")
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create token class cache: %w", err)
	}
	return &TokenClasses{cache: c, ttl: ttl, loader: loader, now: time.Now}, nil
}

// SetClock overrides the time source.
func (t *TokenClasses) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

func (t *TokenClasses) clock() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now()
}

// Get returns the cached class or loads it. Loader errors are not cached.
func (t *TokenClasses) Get(ctx context.Context, key model.TokenKey) (TokenClass, error) {
	now := t.clock()
	if cached, ok := t.cache.Get(key); ok {
		entry := cached.(classEntry)
		if t.ttl <= 0 || now.Before(entry.expires) {
			return entry.class, nil
		}
		t.cache.Remove(key)
	}
	class, err := t.loader(ctx, key)
	if err != nil {
		return ClassUntracked, err
	}
	t.cache.Add(key, classEntry{class: class, expires: now.Add(t.ttl)})
	return class, nil
}

// Invalidate drops a token so the next Get reloads it.
func (t *TokenClasses) Invalidate(key model.TokenKey) {
	t.cache.Remove(key)
}

func (t *TokenClasses) Len() int {
	return t.cache.Len()
}
