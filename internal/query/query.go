package query

import (
	"context"
	"sync"
)

// State is a snapshot of a query: the last good data, whether a fetch is
// running, and the error of the last fetch.
type State[T any] struct {
	Data    T
	Loading bool
	Err     error
}

type call[T any] struct {
	done  chan struct{}
	force bool
	data  T
	err   error
}

// Query wraps one fetch and keeps its result. Concurrent fetches share a
// single in-flight call, except that a Refetch never settles for an
// in-flight Load: it waits for it and then fetches again. Errors are
// stored, never retried.
type Query[T any] struct {
	fetch func(ctx context.Context, force bool) (T, error)

	mu       sync.Mutex
	state    State[T]
	fetched  bool
	inflight *call[T]
}

// New returns a query that calls fetch on every Load and Refetch.
func New[T any](fetch func(context.Context) (T, error)) *Query[T] {
	return &Query[T]{
		fetch: func(ctx context.Context, _ bool) (T, error) { return fetch(ctx) },
	}
}

// Cached returns a query backed by c under key. Load serves from the cache;
// Refetch always goes to the network and refreshes the cached entry.
func Cached[T any](c *Client, key Key, fetch func(context.Context) (T, error)) *Query[T] {
	return &Query[T]{
		fetch: func(ctx context.Context, force bool) (T, error) {
			if force {
				return refresh(ctx, c, key, fetch)
			}
			return Fetch(ctx, c, key, fetch)
		},
	}
}

func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Load fetches once; later calls return the stored state until Refetch.
func (q *Query[T]) Load(ctx context.Context) (T, error) {
	q.mu.Lock()
	if q.fetched && q.inflight == nil {
		s := q.state
		q.mu.Unlock()
		return s.Data, s.Err
	}
	q.mu.Unlock()
	return q.run(ctx, false)
}

func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	return q.run(ctx, true)
}

func (q *Query[T]) run(ctx context.Context, force bool) (T, error) {
	q.mu.Lock()
	for q.inflight != nil {
		c := q.inflight
		q.mu.Unlock()
		select {
		case <-c.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		if c.force || !force {
			return c.data, c.err
		}
		q.mu.Lock()
	}
	c := &call[T]{done: make(chan struct{}), force: force}
	q.inflight = c
	q.state.Loading = true
	q.mu.Unlock()

	c.data, c.err = q.fetch(ctx, force)

	q.mu.Lock()
	q.inflight = nil
	q.fetched = true
	q.state.Loading = false
	q.state.Err = c.err
	if c.err == nil {
		q.state.Data = c.data
	}
	q.mu.Unlock()
	close(c.done)

	return c.data, c.err
}
