// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/model"
)

// Store loads and saves the whole collection.
type Store interface {
	Load(ctx context.Context) (model.Collection, error)
	Save(ctx context.Context, coll model.Collection) error
}

// =============================================================================
// REPOSITORY
// =============================================================================

// Repository is the conversation repository over a Store.
type Repository struct {
	store  Store
	newID  func() string
	now    func() time.Time
	focus  *Focus
	logger zerolog.Logger

	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator overrides the message id generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// WithClock overrides the clock used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithFocus shares a focus tracker with the view layer.
func WithFocus(f *Focus) Option {
	return func(r *Repository) { r.focus = f }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.logger = l.With().Str("component", "repository").Logger() }
}

// New creates a Repository. Message ids default to random UUIDs.
func New(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		newID:  uuid.NewString,
		now:    time.Now,
		focus:  &Focus{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Focus returns the focus tracker used for unread accounting.
func (r *Repository) Focus() *Focus {
	return r.focus
}

// ListAll returns every conversation in stored order.
func (r *Repository) ListAll(ctx context.Context) (model.Collection, error) {
	return r.store.Load(ctx)
}

// FindByID returns the conversation with the given id.
func (r *Repository) FindByID(ctx context.Context, id string) (model.Conversation, bool, error) {
	coll, err := r.store.Load(ctx)
	if err != nil {
		return model.Conversation{}, false, err
	}
	conv, ok := coll.Find(id)
	return conv, ok, nil
}

// Search returns conversations whose name contains query, ignoring case.
func (r *Repository) Search(ctx context.Context, query string) (model.Collection, error) {
	coll, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Search(query), nil
}

// AppendMessage records draft in the conversation and returns the stored
// message. It fails with ErrConversationNotFound for an unknown id.
func (r *Repository) AppendMessage(ctx context.Context, conversationID string, draft model.Draft) (model.Message, error) {
	if !draft.Role.Valid() {
		return model.Message{}, fmt.Errorf("%w: role %q", ErrInvalidMessage, draft.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	coll, err := r.store.Load(ctx)
	if err != nil {
		return model.Message{}, err
	}
	i := coll.Index(conversationID)
	if i < 0 {
		return model.Message{}, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}

	msg := model.Message{
		ID:        r.newID(),
		Content:   draft.Content,
		Role:      draft.Role,
		Timestamp: r.now().UnixMilli(),
		Status:    model.StatusSent,
	}
	conv := &coll[i]
	conv.Append(msg)
	if msg.Role == model.RoleAssistant && !r.focus.Is(conversationID) {
		conv.UnreadCount++
	}

	if err := r.store.Save(ctx, coll); err != nil {
		return model.Message{}, err
	}
	r.logger.Debug().Str("conversation", conversationID).Str("message", msg.ID).
		Str("role", msg.Role.String()).Msg("message appended")
	return msg, nil
}

// MarkRead resets the unread count of the conversation. Unknown ids are a
// no-op, and nothing is written when the count is already zero.
func (r *Repository) MarkRead(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coll, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	i := coll.Index(conversationID)
	if i < 0 {
		r.logger.Debug().Str("conversation", conversationID).Msg("mark read on unknown conversation")
		return nil
	}
	if coll[i].UnreadCount == 0 {
		return nil
	}
	coll[i].UnreadCount = 0
	return r.store.Save(ctx, coll)
}
