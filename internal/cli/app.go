// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/repository"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/stream"
)

// app is the messaging stack shared by the conversation commands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   storage.BlobStore
	adapter *storage.Adapter
	focus   *repository.Focus
	repo    *repository.Repository
	cache   *cache.Cache
	client  *stream.Client
	replier *stream.Replier
}

// openApp wires storage, repository, cache and replier from cfg.
func openApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	path := cfg.Storage.Path
	if path == "" && cfg.Storage.Driver != string(storage.DriverMemory) {
		p, err := config.DefaultStoragePath(cfg.Storage.Driver)
		if err != nil {
			return nil, err
		}
		path = p
	}
	store, err := storage.Open(storage.Driver(cfg.Storage.Driver), path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	logger.Debug().Str("driver", cfg.Storage.Driver).Str("path", path).Msg("storage opened")

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		focus:  &repository.Focus{},
	}
	a.adapter = storage.NewAdapter(store, storage.WithKey(cfg.Storage.Key), storage.WithLogger(logger))
	a.repo = repository.New(a.adapter, repository.WithFocus(a.focus), repository.WithLogger(logger))
	a.cache = cache.New(a.repo, cache.WithLogger(logger))
	a.client = stream.NewClientWithConfig(&stream.ClientConfig{Endpoint: cfg.Client.Endpoint})
	a.replier = stream.NewReplier(a.client, a.cache, stream.WithLogger(logger))
	return a, nil
}

// load performs the initial read, seeding storage when it is empty.
func (a *app) load(ctx context.Context) error {
	if err := a.cache.Load(ctx); err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	return nil
}

// Close waits for in-flight work and releases storage.
func (a *app) Close() {
	a.replier.Wait()
	a.cache.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing storage")
	}
}
