package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storedesk/internal/cache"
)

var ErrMiss = errors.New("query: cache miss")

// Store holds encoded query results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type entry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is a process-local Store. Entries expire lazily on read.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return e.data, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

// RedisStore shares query results between processes through redis.
type RedisStore struct {
	c *cache.Client
}

func NewRedisStore(c *cache.Client) *RedisStore {
	return &RedisStore{c: c}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.c.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, data, ttl)
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.c.Delete(ctx, key)
}

func (r *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return r.c.DeletePrefix(ctx, prefix)
}
