// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package viewmodel derives what the conversation screen shows from the cache
// and local UI state: the filtered list, the open conversation and whether a
// reply is being typed.
package viewmodel

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/repository"
)

// Source is the cache surface the view model reads from.
type Source interface {
	Snapshot() model.Collection
	LoadSeq() uint64
	MarkRead(ctx context.Context, conversationID string) *cache.Mutation
}

// TypingSource reports the in-progress reply text for a conversation.
type TypingSource interface {
	Typing(conversationID string) (string, bool)
}

// State is one derived frame of the conversation screen.
type State struct {
	Conversations model.Collection
	Current       *model.Conversation
	ActiveID      string
	Query         string
	Typing        bool
	TypingText    string
}

// =============================================================================
// VIEW MODEL
// =============================================================================

// ViewModel tracks the active conversation and search query.
type ViewModel struct {
	source Source
	typing TypingSource
	focus  *repository.Focus
	logger zerolog.Logger

	mu       sync.Mutex
	activeID string
	query    string
	autoDone bool
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithTyping adds a typing indicator source.
func WithTyping(t TypingSource) Option {
	return func(v *ViewModel) { v.typing = t }
}

// WithFocus mirrors the active conversation into f for unread accounting.
func WithFocus(f *repository.Focus) Option {
	return func(v *ViewModel) { v.focus = f }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *ViewModel) { v.logger = l.With().Str("component", "viewmodel").Logger() }
}

// New creates a ViewModel over source.
func New(source Source, opts ...Option) *ViewModel {
	v := &ViewModel{
		source: source,
		focus:  &repository.Focus{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ActiveID returns the active conversation id.
func (v *ViewModel) ActiveID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.activeID
}

// SetSearchQuery sets the name filter. An empty query shows everything.
func (v *ViewModel) SetSearchQuery(q string) {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
}

// Activate opens conversation id and marks it read. Activating the already
// active conversation with nothing unread does nothing and returns nil.
func (v *ViewModel) Activate(ctx context.Context, id string) *cache.Mutation {
	v.mu.Lock()
	conv, ok := v.source.Snapshot().Find(id)
	if v.activeID == id && (!ok || conv.UnreadCount == 0) {
		v.mu.Unlock()
		return nil
	}
	v.activeID = id
	v.focus.Set(id)
	v.mu.Unlock()

	if !ok {
		return nil
	}
	v.logger.Debug().Str("conversation", id).Int("unread", conv.UnreadCount).Msg("conversation activated")
	return v.source.MarkRead(ctx, id)
}

// Deactivate closes the active conversation.
func (v *ViewModel) Deactivate() {
	v.mu.Lock()
	v.activeID = ""
	v.focus.Set("")
	v.mu.Unlock()
}

// Sync applies the auto-selection rule: once the collection has been loaded,
// if nothing is active and the list is non-empty, the first conversation is
// activated. The rule fires once per view model, so a later deselection is
// respected. Sync reports whether it activated anything.
func (v *ViewModel) Sync(ctx context.Context) bool {
	if v.source.LoadSeq() == 0 {
		return false
	}

	v.mu.Lock()
	if v.autoDone {
		v.mu.Unlock()
		return false
	}
	if v.activeID != "" {
		v.autoDone = true
		v.mu.Unlock()
		return false
	}
	coll := v.source.Snapshot()
	if len(coll) == 0 {
		v.mu.Unlock()
		return false
	}
	v.autoDone = true
	v.mu.Unlock()

	v.Activate(ctx, coll[0].ID)
	return true
}

// State derives the current screen state.
func (v *ViewModel) State() State {
	v.mu.Lock()
	activeID, query := v.activeID, v.query
	v.mu.Unlock()

	coll := v.source.Snapshot()
	st := State{
		Conversations: coll.Search(query),
		ActiveID:      activeID,
		Query:         query,
	}
	if conv, ok := coll.Find(activeID); ok {
		st.Current = &conv
	}
	if v.typing != nil && activeID != "" {
		st.TypingText, st.Typing = v.typing.Typing(activeID)
	}
	return st
}
