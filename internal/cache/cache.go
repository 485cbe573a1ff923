// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/rigchat/internal/model"
)

// Repository is the durable side the cache writes through.
type Repository interface {
	ListAll(ctx context.Context) (model.Collection, error)
	AppendMessage(ctx context.Context, conversationID string, draft model.Draft) (model.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// =============================================================================
// CACHE
// =============================================================================

// Cache is the optimistic mutation cache. It is safe for concurrent use.
type Cache struct {
	repo      Repository
	newTempID func() string
	now       func() time.Time
	logger    zerolog.Logger

	mu      sync.Mutex
	base    model.Collection
	view    model.Collection
	overlay []*Mutation
	loaded  bool
	loadSeq uint64
	stale   bool
	// gen changes whenever a refresh result could be outdated.
	gen        uint64
	commits    uint64
	refreshing map[uint64]context.CancelFunc

	flights singleflight.Group
	bg      sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Option configures a Cache.
type Option func(*Cache)

// WithTempIDGenerator overrides how temporary message ids are made. The
// result is prefixed with model.TempIDPrefix.
func WithTempIDGenerator(fn func() string) Option {
	return func(c *Cache) { c.newTempID = fn }
}

// WithClock overrides the clock used for tentative message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l.With().Str("component", "cache").Logger() }
}

// New creates an empty, unloaded cache over repo.
func New(repo Repository, opts ...Option) *Cache {
	c := &Cache{
		repo:       repo,
		newTempID:  uuid.NewString,
		now:        time.Now,
		logger:     zerolog.Nop(),
		stale:      true,
		refreshing: make(map[uint64]context.CancelFunc),
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the derived view.
func (c *Cache) Snapshot() model.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return model.Collection{}
	}
	return c.view.Clone()
}

// Loaded reports whether at least one refresh has been applied.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// LoadSeq increments every time a refresh is applied.
func (c *Cache) LoadSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadSeq
}

// IsStale reports whether the view is awaiting a refresh.
func (c *Cache) IsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Pending returns the number of unsettled optimistic patches.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.overlay {
		if m.pending() {
			n++
		}
	}
	return n
}

// =============================================================================
// REFRESH
// =============================================================================

// Load refreshes the cache if nothing has been loaded yet.
func (c *Cache) Load(ctx context.Context) error {
	if c.Loaded() {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh reloads the collection from the repository. Concurrent calls share
// one read. The result is discarded, and nil returned, when a mutation starts
// or settles during the read or while any mutation is still pending.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	ch := c.flights.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return nil, c.refresh(gen)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invalidate marks the view stale and reloads it in the background.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.supersedeLocked()
	c.mu.Unlock()

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.Refresh(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("background refresh failed")
		}
	}()
}

func (c *Cache) refresh(gen uint64) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.refreshing[gen] = cancel
	commitMark := c.commits
	c.mu.Unlock()

	coll, err := c.repo.ListAll(ctx)

	c.mu.Lock()
	delete(c.refreshing, gen)
	if c.gen != gen || c.hasPendingLocked() {
		c.mu.Unlock()
		c.logger.Debug().Uint64("gen", gen).Msg("refresh superseded, result discarded")
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.logger.Warn().Err(err).Msg("refresh failed")
		c.emit(Event{Type: EventRefreshFailed, Err: err})
		return err
	}

	c.base = coll
	c.loaded = true
	c.loadSeq++
	c.stale = false
	kept := c.overlay[:0]
	for _, m := range c.overlay {
		m.mu.Lock()
		absorbed := m.state != StatePending && m.commitSeq <= commitMark
		m.mu.Unlock()
		if !absorbed {
			kept = append(kept, m)
		}
	}
	c.overlay = kept
	c.rederiveLocked()
	c.mu.Unlock()

	c.emit(Event{Type: EventRefreshed})
	return nil
}

// supersedeLocked makes every in-flight refresh outdated.
func (c *Cache) supersedeLocked() {
	c.gen++
	for g, cancel := range c.refreshing {
		cancel()
		delete(c.refreshing, g)
	}
}

func (c *Cache) hasPendingLocked() bool {
	for _, m := range c.overlay {
		if m.pending() {
			return true
		}
	}
	return false
}

func (c *Cache) rederiveLocked() {
	view := c.base.Clone()
	if view == nil {
		view = model.Collection{}
	}
	for _, m := range c.overlay {
		m.apply(view)
	}
	c.view = view
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AppendMessage shows draft in the conversation immediately as a temporary
// message and writes it through the repository in the background.
func (c *Cache) AppendMessage(ctx context.Context, conversationID string, draft model.Draft) *Mutation {
	m := newMutation(ctx, OpAppendMessage, conversationID)
	m.draft = draft
	m.temp = model.Message{
		ID:        model.TempIDPrefix + c.newTempID(),
		Content:   draft.Content,
		Role:      draft.Role,
		Timestamp: c.now().UnixMilli(),
		Status:    model.StatusSending,
	}
	c.start(m)
	return m
}

// SendMessage is AppendMessage followed by Wait.
func (c *Cache) SendMessage(ctx context.Context, conversationID string, draft model.Draft) (model.Message, error) {
	return c.AppendMessage(ctx, conversationID, draft).Wait(ctx)
}

// MarkRead clears the unread badge immediately and resets the count through
// the repository in the background.
func (c *Cache) MarkRead(ctx context.Context, conversationID string) *Mutation {
	m := newMutation(ctx, OpMarkRead, conversationID)
	c.start(m)
	return m
}

// MarkAsRead is MarkRead followed by Wait.
func (c *Cache) MarkAsRead(ctx context.Context, conversationID string) error {
	_, err := c.MarkRead(ctx, conversationID).Wait(ctx)
	return err
}

// Close waits for background writes and refreshes to finish.
func (c *Cache) Close() {
	c.bg.Wait()

	c.subMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

func (c *Cache) start(m *Mutation) {
	c.mu.Lock()
	c.supersedeLocked()
	c.overlay = append(c.overlay, m)
	c.rederiveLocked()
	c.mu.Unlock()

	c.emit(Event{Type: EventMutationStarted, Op: m.op, ConversationID: m.conversationID})

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.run(m)
	}()
}

func (c *Cache) run(m *Mutation) {
	var (
		msg model.Message
		err error
	)
	switch m.op {
	case OpAppendMessage:
		msg, err = c.repo.AppendMessage(m.ctx, m.conversationID, m.draft)
	case OpMarkRead:
		err = c.repo.MarkRead(m.ctx, m.conversationID)
	}

	c.mu.Lock()
	ev := Event{Op: m.op, ConversationID: m.conversationID}
	m.mu.Lock()
	if err != nil {
		m.state = StateRolledBack
		m.err = &MutationError{Op: m.op, ConversationID: m.conversationID, Err: err}
		ev.Type, ev.Err = EventMutationRolledBack, m.err
	} else {
		c.commits++
		m.state = StateCommitted
		m.result = msg
		m.commitSeq = c.commits
		ev.Type = EventMutationCommitted
	}
	m.mu.Unlock()
	if err != nil {
		c.removeLocked(m)
	}
	c.stale = true
	c.supersedeLocked()
	c.rederiveLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Str("op", string(m.op)).Str("conversation", m.conversationID).
			Msg("mutation rolled back")
	}
	c.emit(ev)

	// Settle against ground truth. The caller's cancellation must not abort it.
	if rerr := c.Refresh(context.WithoutCancel(m.ctx)); rerr != nil {
		c.logger.Warn().Err(rerr).Msg("refresh after mutation failed")
	}

	m.mu.Lock()
	m.state = StateSettled
	m.mu.Unlock()
	close(m.done)
}

func (c *Cache) removeLocked(m *Mutation) {
	for i, o := range c.overlay {
		if o == m {
			c.overlay = append(c.overlay[:i], c.overlay[i+1:]...)
			return
		}
	}
}
