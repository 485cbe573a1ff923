// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/model"
)

// DefaultKey is the blob key the collection is stored under.
const DefaultKey = "telegram-ai-chats"

// =============================================================================
// ADAPTER
// =============================================================================

// Adapter reads and writes the conversation collection as one JSON blob.
type Adapter struct {
	store  BlobStore
	key    string
	now    func() time.Time
	logger zerolog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithKey overrides the blob key.
func WithKey(key string) AdapterOption {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

// WithClock overrides the clock used to timestamp seed data.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l.With().Str("component", "storage").Logger() }
}

// NewAdapter creates an Adapter over store.
func NewAdapter(store BlobStore, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		store:  store,
		key:    DefaultKey,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the blob key.
func (a *Adapter) Key() string {
	return a.key
}

// Store returns the underlying blob store.
func (a *Adapter) Store() BlobStore {
	return a.store
}

// Load returns the persisted collection. A missing or unparsable blob is
// replaced by the seed collection, which is persisted before returning so the
// next Load reads it back. Only I/O failures are returned as errors.
func (a *Adapter) Load(ctx context.Context) (model.Collection, error) {
	data, err := a.store.Get(ctx, a.key)
	switch {
	case errors.Is(err, ErrBlobNotFound):
		return a.reseed(ctx, "missing")
	case err != nil:
		return nil, err
	}

	coll, err := decode(data)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", a.key).Msg("stored conversations unreadable, reseeding")
		return a.reseed(ctx, "corrupt")
	}
	return coll, nil
}

// Save replaces the persisted collection.
func (a *Adapter) Save(ctx context.Context, coll model.Collection) error {
	if coll == nil {
		coll = model.Collection{}
	}
	data, err := json.Marshal(coll)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	return a.store.Set(ctx, a.key, data)
}

func (a *Adapter) reseed(ctx context.Context, reason string) (model.Collection, error) {
	coll := Seed(a.now())
	if err := a.Save(ctx, coll); err != nil {
		return nil, fmt.Errorf("failed to persist seed data: %w", err)
	}
	a.logger.Info().Str("key", a.key).Str("reason", reason).Msg("seed conversations persisted")
	return coll, nil
}

func decode(data []byte) (model.Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty blob", ErrStorageCorrupt)
	}
	var coll model.Collection
	if err := json.Unmarshal(trimmed, &coll); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	coll.Normalize()
	return coll, nil
}
