package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storedesk/internal/telemetry"
)

// Key identifies a cached query, e.g. Key{"products", 12} -> "products:12".
type Key []any

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ":")
}

// Client is a key-based cache of query results with prefix invalidation.
type Client struct {
	store Store
	ttl   time.Duration

	mu   sync.Mutex
	gens map[string]uint64
}

func NewClient(store Store, ttl time.Duration) *Client {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Client{store: store, ttl: ttl, gens: make(map[string]uint64)}
}

// generation sums the invalidation counters of key and of every prefix of
// it, so Invalidate(Key{"orders"}) also moves Key{"orders", 1}.
func (c *Client) generation(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var g uint64
	for i := range key {
		g += c.gens[key[:i+1].String()]
	}
	return g
}

func (c *Client) bump(k string) {
	c.mu.Lock()
	c.gens[k]++
	c.mu.Unlock()
}

// Fetch returns the cached value under key, or calls fn and caches its result.
// A nil Client always calls fn.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fn(ctx)
	}
	k := key.String()

	raw, err := c.store.Get(ctx, k)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			telemetry.CacheLookup(true)
			return v, nil
		}
		slog.Warn("Dropping undecodable cache entry", "key", k)
		_ = c.store.Delete(ctx, k)
	case !errors.Is(err, ErrMiss):
		slog.Warn("Query cache read failed", "key", k, "error", err)
	}
	telemetry.CacheLookup(false)

	return refresh(ctx, c, key, fn)
}

// refresh calls fn and overwrites the cached value. A result that was
// fetched across an invalidation of key is returned but not cached.
func refresh[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fn(ctx)
	}
	gen := c.generation(key)
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	k := key.String()
	if c.generation(key) != gen {
		slog.Debug("Skipping cache write for invalidated query", "key", k)
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.store.Set(ctx, k, raw, c.ttl); err != nil {
		slog.Warn("Query cache write failed", "key", k, "error", err)
	}
	// an Invalidate that landed between the check and the write
	if c.generation(key) != gen {
		_ = c.store.Delete(ctx, k)
	}
	return v, nil
}

// Invalidate drops every entry equal to or nested under each prefix.
// Invalidate(Key{"products"}) drops products:1, products:2, ...
func (c *Client) Invalidate(ctx context.Context, prefixes ...Key) error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, p := range prefixes {
		k := p.String()
		c.bump(k)
		if err := c.store.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
		if _, err := c.store.DeletePrefix(ctx, k+":"); err != nil {
			errs = append(errs, err)
		}
		slog.Debug("Query invalidated", "key", k)
	}
	return errors.Join(errs...)
}

// Mutate runs fn and, when it succeeds, invalidates the given keys.
// A failed invalidation is logged, not returned: the mutation already happened.
func Mutate[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error), invalidate ...Key) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Invalidate(ctx, invalidate...); err != nil {
		slog.Warn("Invalidation after mutation failed", "error", err)
	}
	return v, nil
}
