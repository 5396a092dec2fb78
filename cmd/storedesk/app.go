package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"storedesk/internal/api"
	"storedesk/internal/auth"
	"storedesk/internal/cache"
	"storedesk/internal/catalog"
	"storedesk/internal/config"
	"storedesk/internal/models"
	"storedesk/internal/orders"
	"storedesk/internal/query"
	"storedesk/internal/session"
)

var errNoStore = errors.New("this account has no store yet, run `storedesk store create`")
var errNoDriver = errors.New("this account is not a driver")

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	api     *api.Client
	session *session.Manager
	queries *query.Client
	catalog *catalog.Service
	orders  *orders.Service

	out     io.Writer
	asJSON  bool
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: out}

	store, err := session.NewFileStore(cfg.SessionPath, cfg.SessionKey)
	if err != nil {
		return nil, err
	}

	a.api = api.NewClient(cfg)
	a.session = session.NewManager(a.api, store, auth.NewInspector(cfg.JWTSecret))
	a.api.SetTokenSource(a.session.Token)

	if _, err := a.session.Load(ctx); err != nil && !errors.Is(err, session.ErrNotAuthenticated) {
		return nil, err
	}

	var qs query.Store = query.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewClient(cfg.RedisAddr, "storedesk:")
		if err != nil {
			slog.Warn("Redis unavailable, using in-memory query cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			slog.Info("Connected to Redis", "addr", cfg.RedisAddr)
			a.closers = append(a.closers, rc.Close)
			qs = query.NewRedisStore(rc)
		}
	}
	a.queries = query.NewClient(qs, cfg.CacheTTL)
	a.catalog = catalog.NewService(a.api, a.queries)
	a.orders = orders.NewService(a.api, a.queries)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}

func (a *app) requireSession() (models.Session, error) {
	s, ok := a.session.Current()
	if !ok {
		return models.Session{}, session.ErrNotAuthenticated
	}
	return s, nil
}

func profileKey(userID int64) query.Key {
	return query.Key{"profile", userID}
}

func (a *app) profile(ctx context.Context) (*models.Profile, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := query.Fetch(ctx, a.queries, profileKey(s.User.ID), func(ctx context.Context) (models.Profile, error) {
		p, err := a.api.Profile(ctx, s.User.ID)
		if err != nil {
			return models.Profile{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

func (a *app) store(ctx context.Context) (*models.Store, error) {
	p, err := a.profile(ctx)
	if err != nil {
		return nil, err
	}
	if p.Store == nil {
		return nil, errNoStore
	}
	return p.Store, nil
}

func (a *app) driver(ctx context.Context) (*models.Driver, error) {
	p, err := a.profile(ctx)
	if err != nil {
		return nil, err
	}
	if p.Driver == nil {
		return nil, errNoDriver
	}
	return p.Driver, nil
}

// print writes v as JSON with --json, otherwise calls table.
func (a *app) print(v any, table func(w io.Writer)) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}
