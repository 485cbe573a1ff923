// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/repository"
	"github.com/jeranaias/rigchat/internal/storage"
)

const (
	convAI  = storage.SeedAssistantID
	convGPT = storage.SeedGPT4ID
)

// fakeRepo wraps a real repository and lets tests hold or fail operations.
type fakeRepo struct {
	inner *repository.Repository

	mu         sync.Mutex
	appendGate chan struct{}
	listGate   chan struct{}
	listEnter  chan struct{}
	appendErr  error
	lists      int
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryStore())
	return &fakeRepo{inner: repository.New(adapter)}
}

func (f *fakeRepo) ListAll(ctx context.Context) (model.Collection, error) {
	f.mu.Lock()
	gate, enter := f.listGate, f.listEnter
	f.listEnter = nil
	f.lists++
	f.mu.Unlock()

	coll, err := f.inner.ListAll(ctx)
	if gate != nil {
		if enter != nil {
			close(enter)
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return coll, err
}

func (f *fakeRepo) AppendMessage(ctx context.Context, id string, d model.Draft) (model.Message, error) {
	f.mu.Lock()
	gate, failErr := f.appendGate, f.appendErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if failErr != nil {
		return model.Message{}, failErr
	}
	return f.inner.AppendMessage(ctx, id, d)
}

func (f *fakeRepo) MarkRead(ctx context.Context, id string) error {
	return f.inner.MarkRead(ctx, id)
}

func loadedCache(t *testing.T, repo Repository) *Cache {
	t.Helper()
	c := New(repo)
	require.NoError(t, c.Load(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func messagesOf(t *testing.T, c *Cache, id string) []model.Message {
	t.Helper()
	conv, ok := c.Snapshot().Find(id)
	require.True(t, ok, "conversation %s missing", id)
	return conv.Messages
}

// =============================================================================
// OPTIMISTIC APPEND
// =============================================================================

func TestCache_AppendShowsTemporaryThenDurable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)

	gate := make(chan struct{})
	repo.appendGate = gate

	m := c.AppendMessage(ctx, convGPT, model.Draft{Content: "hi", Role: model.RoleUser})

	msgs := messagesOf(t, c, convGPT)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsTemporary())
	assert.Equal(t, m.TempID(), msgs[0].ID)
	assert.Equal(t, model.StatusSending, msgs[0].Status)
	assert.Equal(t, StatePending, m.State())

	conv, _ := c.Snapshot().Find(convGPT)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, m.TempID(), conv.LastMessage.ID)

	close(gate)
	durable, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, m.State())

	msgs = messagesOf(t, c, convGPT)
	require.Len(t, msgs, 1, "temporary message must be superseded, not duplicated")
	assert.Equal(t, durable.ID, msgs[0].ID)
	assert.Equal(t, model.StatusSent, msgs[0].Status)
	assert.False(t, c.IsStale())
}

func TestCache_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)
	before := c.Snapshot()

	boom := errors.New("write rejected")
	repo.appendErr = boom

	_, err := c.SendMessage(ctx, convAI, model.Draft{Content: "lost", Role: model.RoleUser})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMutationFailed)
	assert.ErrorIs(t, err, boom)

	var merr *MutationError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, OpAppendMessage, merr.Op)
	assert.Equal(t, convAI, merr.ConversationID)

	assert.Empty(t, cmp.Diff(before, c.Snapshot()))
}

func TestCache_RollbackVisibleBeforeSettle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)

	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	repo.appendErr = errors.New("nope")
	m := c.AppendMessage(ctx, convGPT, model.Draft{Content: "x", Role: model.RoleUser})

	for ev := range events {
		if ev.Type == EventMutationRolledBack {
			assert.ErrorIs(t, ev.Err, ErrMutationFailed)
			break
		}
	}
	_, err := m.Wait(ctx)
	require.Error(t, err)
	assert.Empty(t, messagesOf(t, c, convGPT))
}

func TestCache_AppendUnknownConversation(t *testing.T) {
	c := loadedCache(t, newFakeRepo(t))

	_, err := c.SendMessage(context.Background(), "ghost", model.Draft{Content: "x", Role: model.RoleUser})
	assert.ErrorIs(t, err, ErrMutationFailed)
	assert.ErrorIs(t, err, repository.ErrConversationNotFound)
	assert.Len(t, c.Snapshot(), 2)
}

// =============================================================================
// MARK READ AND UNREAD ACCOUNTING
// =============================================================================

func TestCache_UnreadAccounting(t *testing.T) {
	ctx := context.Background()
	c := loadedCache(t, newFakeRepo(t))

	for i := 0; i < 3; i++ {
		_, err := c.SendMessage(ctx, convGPT, model.Draft{Content: fmt.Sprint(i), Role: model.RoleAssistant})
		require.NoError(t, err)
	}
	conv, _ := c.Snapshot().Find(convGPT)
	assert.Equal(t, 3, conv.UnreadCount)

	require.NoError(t, c.MarkAsRead(ctx, convGPT))
	conv, _ = c.Snapshot().Find(convGPT)
	assert.Zero(t, conv.UnreadCount)

	require.NoError(t, c.MarkAsRead(ctx, convGPT), "second mark read must not fail")
	conv, _ = c.Snapshot().Find(convGPT)
	assert.Zero(t, conv.UnreadCount)
}

func TestCache_MarkReadClearsBadgeOptimistically(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)
	_, err := c.SendMessage(ctx, convGPT, model.Draft{Content: "x", Role: model.RoleAssistant})
	require.NoError(t, err)

	// Hold the settle refresh so the patch is observable.
	gate := make(chan struct{})
	repo.mu.Lock()
	repo.listGate = gate
	repo.mu.Unlock()

	m := c.MarkRead(ctx, convGPT)
	conv, _ := c.Snapshot().Find(convGPT)
	assert.Zero(t, conv.UnreadCount)

	close(gate)
	_, err = m.Wait(ctx)
	require.NoError(t, err)
}

// =============================================================================
// REFRESH GATING
// =============================================================================

func TestCache_StaleRefreshCannotHidePendingPatch(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)
	seqBefore := c.LoadSeq()

	gate, enter := make(chan struct{}), make(chan struct{})
	repo.mu.Lock()
	repo.listGate, repo.listEnter = gate, enter
	repo.mu.Unlock()

	refreshed := make(chan error, 1)
	go func() { refreshed <- c.Refresh(ctx) }()
	<-enter

	repo.mu.Lock()
	repo.listGate, repo.listEnter = nil, nil
	repo.mu.Unlock()

	appendGate := make(chan struct{})
	repo.appendGate = appendGate
	m := c.AppendMessage(ctx, convGPT, model.Draft{Content: "hi", Role: model.RoleUser})

	close(gate)
	require.NoError(t, <-refreshed)
	assert.Equal(t, seqBefore, c.LoadSeq(), "superseded refresh must not be applied")

	msgs := messagesOf(t, c, convGPT)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsTemporary())

	close(appendGate)
	_, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Greater(t, c.LoadSeq(), seqBefore)
}

func TestCache_RefreshCoalesces(t *testing.T) {
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)

	gate, enter := make(chan struct{}), make(chan struct{})
	repo.mu.Lock()
	repo.listGate, repo.listEnter = gate, enter
	listsBefore := repo.lists
	repo.mu.Unlock()

	var wg sync.WaitGroup
	first := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(first)
		assert.NoError(t, c.Refresh(context.Background()))
	}()
	<-first
	<-enter
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Refresh(context.Background()))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.lists-listsBefore, "concurrent refreshes must share one read")
}

func TestCache_InvalidateReloads(t *testing.T) {
	repo := newFakeRepo(t)
	c := loadedCache(t, repo)

	// Write behind the cache's back.
	_, err := repo.inner.AppendMessage(context.Background(), convGPT, model.Draft{Content: "external", Role: model.RoleUser})
	require.NoError(t, err)

	events, unsubscribe := c.Subscribe()
	defer unsubscribe()
	c.Invalidate()

	select {
	case ev := <-events:
		assert.Equal(t, EventRefreshed, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh after invalidate")
	}
	assert.Len(t, messagesOf(t, c, convGPT), 1)
}

func TestCache_RefreshErrorSurfaces(t *testing.T) {
	boom := errors.New("storage offline")
	c := New(errRepo{err: boom})
	t.Cleanup(c.Close)

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Loaded())
	assert.True(t, c.IsStale())
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestCache_ConcurrentSendsConverge(t *testing.T) {
	ctx := context.Background()
	c := loadedCache(t, newFakeRepo(t))

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := convGPT
			if i%2 == 0 {
				target = convAI
			}
			_, err := c.SendMessage(ctx, target, model.Draft{Content: fmt.Sprint(i), Role: model.RoleUser})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, c.Pending())
	total := 0
	seen := map[string]bool{}
	for _, conv := range c.Snapshot() {
		for _, m := range conv.Messages {
			assert.False(t, m.IsTemporary(), "temporary message left behind: %s", m.ID)
			assert.False(t, seen[m.ID], "duplicate message %s", m.ID)
			seen[m.ID] = true
			total++
		}
	}
	// The seed greeting plus every send.
	assert.Equal(t, n+1, total)
}

func TestMutationError_Message(t *testing.T) {
	err := &MutationError{Op: OpMarkRead, ConversationID: "c1", Err: errors.New("x")}
	assert.Equal(t, "mark-read c1: x", err.Error())
	assert.Equal(t, "rolled-back", StateRolledBack.String())
}

type errRepo struct{ err error }

func (r errRepo) ListAll(context.Context) (model.Collection, error) { return nil, r.err }
func (r errRepo) AppendMessage(context.Context, string, model.Draft) (model.Message, error) {
	return model.Message{}, r.err
}
func (r errRepo) MarkRead(context.Context, string) error { return r.err }
