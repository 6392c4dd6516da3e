package app

import (
	"context"
	"errors"
	"fmt"

	"statebag/internal/config"
	"statebag/internal/metrics"
	"statebag/internal/state"
	"statebag/internal/state/file"
	"statebag/internal/state/memory"
	"statebag/internal/state/postgres"
	"statebag/internal/state/sqlite"
	"statebag/internal/statestore"

	"go.uber.org/zap"
)

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	backend state.Store
	store   *statestore.Store
	metrics *metrics.Metrics
	prom    *metrics.Prometheus
	changes *statestore.Listener
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	backend, err := openBackend(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Store.Backend, err)
	}
	a, err := newWithBackend(ctx, cfg, log, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return a, nil
}

func newWithBackend(ctx context.Context, cfg *config.Config, log *zap.Logger, backend state.Store) (*App, error) {
	codec, err := statestore.CodecByName(cfg.Store.Codec)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:     cfg,
		log:     log,
		backend: backend,
		metrics: metrics.NewNoop(),
	}
	if cfg.Metrics.Enabled {
		a.prom = metrics.NewPrometheus()
		a.metrics = a.prom.Metrics
	}
	opts := []statestore.Option{
		statestore.WithLogger(log),
		statestore.WithMetrics(a.metrics),
		statestore.WithCodec(codec),
	}
	if cfg.Store.StrictLoad {
		opts = append(opts, statestore.WithStrictLoad())
	}
	store, err := statestore.Open(ctx, cfg.Store.Key, backend, opts...)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.changes = statestore.NewListener(a.logChange)
	store.Subscribe(a.changes)
	log.Info("state loaded",
		zap.String("key", cfg.Store.Key),
		zap.String("backend", cfg.Store.Backend),
		zap.String("codec", codec.Name()),
		zap.Int("properties", len(store.State())),
	)
	return a, nil
}

func openBackend(cfg config.StoreConfig, log *zap.Logger) (state.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendFile:
		return file.New(cfg.Dir)
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.BackendPostgres:
		return postgres.New(cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

func (a *App) Store() *statestore.Store {
	return a.store
}

func (a *App) logChange() {
	a.log.Info("state changed",
		zap.String("key", a.store.Key()),
		zap.Int("properties", len(a.store.State())),
	)
}

func (a *App) Close() error {
	if a.store != nil && a.changes != nil {
		a.store.Unsubscribe(a.changes)
	}
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
