// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T, opts ...Option) (*Repository, *storage.Adapter) {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryStore(), storage.WithClock(func() time.Time { return fixedNow }))
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("m%d", n) }),
	}
	return New(adapter, append(base, opts...)...), adapter
}

// =============================================================================
// READ TESTS
// =============================================================================

func TestRepository_ListAllSeeds(t *testing.T) {
	repo, _ := newTestRepo(t)

	coll, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, coll, 2)
	assert.Equal(t, storage.SeedAssistantID, coll[0].ID)
}

func TestRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	conv, ok, err := repo.FindByID(ctx, storage.SeedGPT4ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GPT-4 Turbo", conv.Name)

	_, ok, err = repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	got, err := repo.Search(ctx, "gpt")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GPT-4 Turbo", got[0].Name)

	all, err := repo.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AI Ассистент", all[0].Name)
	assert.Equal(t, "GPT-4 Turbo", all[1].Name)
}

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestRepository_AppendMessage(t *testing.T) {
	ctx := context.Background()
	repo, adapter := newTestRepo(t)

	msg, err := repo.AppendMessage(ctx, storage.SeedGPT4ID, model.Draft{Content: "hello", Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, model.StatusSent, msg.Status)
	assert.Equal(t, fixedNow.UnixMilli(), msg.Timestamp)

	coll, err := adapter.Load(ctx)
	require.NoError(t, err)
	conv, _ := coll.Find(storage.SeedGPT4ID)
	require.Len(t, conv.Messages, 1)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, msg, *conv.LastMessage)
	assert.Zero(t, conv.UnreadCount, "user messages never count as unread")
}

func TestRepository_AppendUnknownConversation(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.AppendMessage(context.Background(), "nope", model.Draft{Content: "x", Role: model.RoleUser})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRepository_AppendInvalidRole(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.AppendMessage(context.Background(), storage.SeedGPT4ID, model.Draft{Content: "x", Role: "system"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestRepository_UnreadAccounting(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	repo.Focus().Set(storage.SeedAssistantID)

	for i := 0; i < 3; i++ {
		_, err := repo.AppendMessage(ctx, storage.SeedGPT4ID, model.Draft{Content: "reply", Role: model.RoleAssistant})
		require.NoError(t, err)
	}
	_, err := repo.AppendMessage(ctx, storage.SeedAssistantID, model.Draft{Content: "reply", Role: model.RoleAssistant})
	require.NoError(t, err)

	gpt, _, _ := repo.FindByID(ctx, storage.SeedGPT4ID)
	assert.Equal(t, 3, gpt.UnreadCount)
	focused, _, _ := repo.FindByID(ctx, storage.SeedAssistantID)
	assert.Zero(t, focused.UnreadCount, "focused conversation must not accumulate unread")

	require.NoError(t, repo.MarkRead(ctx, storage.SeedGPT4ID))
	gpt, _, _ = repo.FindByID(ctx, storage.SeedGPT4ID)
	assert.Zero(t, gpt.UnreadCount)
}

func TestRepository_ConcurrentAppendsKeepAll(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewAdapter(storage.NewMemoryStore())
	repo := New(adapter)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AppendMessage(ctx, storage.SeedGPT4ID, model.Draft{Content: fmt.Sprint(i), Role: model.RoleUser})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	conv, _, err := repo.FindByID(ctx, storage.SeedGPT4ID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 20)

	seen := map[string]bool{}
	for _, m := range conv.Messages {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

// =============================================================================
// MARK READ TESTS
// =============================================================================

func TestRepository_MarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	_, err := repo.AppendMessage(ctx, storage.SeedGPT4ID, model.Draft{Content: "x", Role: model.RoleAssistant})
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(ctx, storage.SeedGPT4ID))
	require.NoError(t, repo.MarkRead(ctx, storage.SeedGPT4ID))

	conv, _, _ := repo.FindByID(ctx, storage.SeedGPT4ID)
	assert.Zero(t, conv.UnreadCount)
}

func TestRepository_MarkReadUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{inner: storage.NewAdapter(storage.NewMemoryStore())}
	repo := New(store)

	require.NoError(t, repo.MarkRead(ctx, "nope"))
	assert.Zero(t, store.saves)
}

func TestRepository_SaveErrorSurfaces(t *testing.T) {
	boom := errors.New("write failed")
	store := &countingStore{inner: storage.NewAdapter(storage.NewMemoryStore()), saveErr: boom}
	repo := New(store)

	_, err := repo.AppendMessage(context.Background(), storage.SeedGPT4ID, model.Draft{Content: "x", Role: model.RoleUser})
	assert.ErrorIs(t, err, boom)
}

func TestFocus(t *testing.T) {
	var f Focus
	assert.False(t, f.Is("a"))
	f.Set("a")
	assert.True(t, f.Is("a"))
	assert.False(t, f.Is(""))
	f.Set("")
	assert.Equal(t, "", f.Get())
}

type countingStore struct {
	inner   Store
	saves   int
	saveErr error
}

func (s *countingStore) Load(ctx context.Context) (model.Collection, error) {
	return s.inner.Load(ctx)
}

func (s *countingStore) Save(ctx context.Context, coll model.Collection) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.inner.Save(ctx, coll)
}
