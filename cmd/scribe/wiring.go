package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/scribe/internal/adapters/driven/ai"
	"github.com/custodia-labs/scribe/internal/adapters/driven/backend/local"
	"github.com/custodia-labs/scribe/internal/adapters/driven/backend/traced"
	"github.com/custodia-labs/scribe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/scribe/internal/adapters/driven/secrets/keyring"
	"github.com/custodia-labs/scribe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scribe/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/scribe/internal/adapters/driving/cli"
	"github.com/custodia-labs/scribe/internal/adapters/driving/watch"
	"github.com/custodia-labs/scribe/internal/config"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
	"github.com/custodia-labs/scribe/internal/core/services"
	"github.com/custodia-labs/scribe/internal/logger"
)

// wiring builds the settings store on first use and tears it down on exit.
type wiring struct {
	cfg     *config.Config
	factory *ai.Factory

	mu    sync.Mutex
	repo  driven.SettingsRepository
	store *services.SettingsStore
}

func newWiring(cfg *config.Config) *wiring {
	rate, burst := cfg.ModelRate()
	return &wiring{
		cfg: cfg,
		factory: ai.NewFactory(ai.FactoryConfig{
			Timeout: cfg.LLMTimeout(),
			Limiter: ai.NewRateLimiter(ai.RateLimitConfig{
				RequestsPerSecond: rate,
				BurstSize:         burst,
			}),
		}),
	}
}

func (w *wiring) runtime() *cli.Runtime {
	rt := &cli.Runtime{
		OpenStore: w.open,
		Validator: func(ctx context.Context, provider domain.ProviderOption, apiKey string) error {
			return ai.ValidateProvider(ctx, w.factory, provider, apiKey)
		},
	}
	if w.cfg.WatchEnabled() && w.cfg.StorageDriver() != config.DriverMemory {
		rt.Watch = w.watch
	}
	return rt
}

// open creates the repository, backend and store, then loads settings.
func (w *wiring) open(ctx context.Context) (driving.SettingsStore, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.store != nil {
		return w.store, nil
	}

	repo, err := w.openRepository()
	if err != nil {
		return nil, fmt.Errorf("opening settings storage: %w", err)
	}

	var opts []local.Option
	if w.cfg.UseKeyring() {
		if keyring.Available(keyring.DefaultService) {
			opts = append(opts, local.WithSecretStore(keyring.NewStore(keyring.DefaultService)))
		} else {
			logger.Warn("OS keyring unavailable; API keys are stored in %s", repo.Path())
		}
	}

	backend := traced.New(local.New(repo, w.factory, opts...))
	store := services.NewSettingsStore(backend, services.WithTickInterval(w.cfg.TickInterval()))
	if err := store.Initialize(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("loading settings from %s: %w", repo.Path(), err)
	}
	logger.Debug("settings loaded from %s", repo.Path())

	w.repo = repo
	w.store = store
	return store, nil
}

func (w *wiring) openRepository() (driven.SettingsRepository, error) {
	switch w.cfg.StorageDriver() {
	case config.DriverSQLite:
		return sqlite.NewStore(w.cfg.DataDir())
	case config.DriverMemory:
		return memory.NewSettingsStore(nil), nil
	default:
		return file.NewSettingsRepository(w.cfg.DataDir())
	}
}

// watch reloads the store whenever the repository file changes.
func (w *wiring) watch(ctx context.Context, store driving.SettingsStore) error {
	w.mu.Lock()
	repo := w.repo
	w.mu.Unlock()
	if repo == nil {
		return errors.New("settings storage not open")
	}
	return watch.New(repo.Path(), store, w.cfg.WatchDebounce()).Run(ctx)
}

// close waits for in-flight writes and releases the repository.
func (w *wiring) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if w.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
		defer cancel()
		if err := w.store.Dispose(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disposing settings store: %w", err))
		}
	}
	if w.repo != nil {
		if err := w.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing settings storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
