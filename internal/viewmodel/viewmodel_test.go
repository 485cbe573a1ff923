// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viewmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/repository"
	"github.com/jeranaias/rigchat/internal/storage"
)

// countingSource counts MarkRead calls on top of a real cache.
type countingSource struct {
	*cache.Cache
	marks map[string]int
}

func (s *countingSource) MarkRead(ctx context.Context, id string) *cache.Mutation {
	s.marks[id]++
	return s.Cache.MarkRead(ctx, id)
}

type fixture struct {
	repo   *repository.Repository
	cache  *cache.Cache
	source *countingSource
	focus  *repository.Focus
	vm     *ViewModel
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	focus := &repository.Focus{}
	repo := repository.New(storage.NewAdapter(storage.NewMemoryStore()), repository.WithFocus(focus))
	c := cache.New(repo)
	t.Cleanup(c.Close)
	require.NoError(t, c.Load(context.Background()))

	src := &countingSource{Cache: c, marks: map[string]int{}}
	vm := New(src, append([]Option{WithFocus(focus)}, opts...)...)
	return &fixture{repo: repo, cache: c, source: src, focus: focus, vm: vm}
}

func wait(t *testing.T, m *cache.Mutation) {
	t.Helper()
	if m == nil {
		return
	}
	_, err := m.Wait(context.Background())
	require.NoError(t, err)
}

// =============================================================================
// DERIVATION TESTS
// =============================================================================

func TestViewModel_FilteredList(t *testing.T) {
	f := newFixture(t)

	st := f.vm.State()
	require.Len(t, st.Conversations, 2)

	f.vm.SetSearchQuery("gpt")
	st = f.vm.State()
	require.Len(t, st.Conversations, 1)
	assert.Equal(t, "GPT-4 Turbo", st.Conversations[0].Name)
	assert.Equal(t, "gpt", st.Query)

	f.vm.SetSearchQuery("")
	assert.Len(t, f.vm.State().Conversations, 2)
}

func TestViewModel_CurrentConversation(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.vm.State().Current)

	wait(t, f.vm.Activate(context.Background(), storage.SeedGPT4ID))
	st := f.vm.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, storage.SeedGPT4ID, st.Current.ID)
	assert.Equal(t, storage.SeedGPT4ID, st.ActiveID)
}

func TestViewModel_CurrentSurvivesFilter(t *testing.T) {
	f := newFixture(t)
	wait(t, f.vm.Activate(context.Background(), storage.SeedAssistantID))

	f.vm.SetSearchQuery("gpt")
	st := f.vm.State()
	require.NotNil(t, st.Current, "filter hides list entries, not the open conversation")
	assert.Equal(t, storage.SeedAssistantID, st.Current.ID)
}

// =============================================================================
// AUTO-SELECTION
// =============================================================================

func TestViewModel_AutoSelectOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.True(t, f.vm.Sync(ctx))
	assert.Equal(t, storage.SeedAssistantID, f.vm.ActiveID())
	assert.False(t, f.vm.Sync(ctx), "auto-selection must not repeat")
	assert.Equal(t, 1, f.source.marks[storage.SeedAssistantID])

	f.vm.Deactivate()
	require.NoError(t, f.cache.Refresh(ctx))
	assert.False(t, f.vm.Sync(ctx), "deselection must be respected after reloads")
	assert.Empty(t, f.vm.ActiveID())
}

func TestViewModel_AutoSelectSkipsWhenActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	wait(t, f.vm.Activate(ctx, storage.SeedGPT4ID))

	assert.False(t, f.vm.Sync(ctx))
	assert.Equal(t, storage.SeedGPT4ID, f.vm.ActiveID())
}

func TestViewModel_AutoSelectBeforeLoad(t *testing.T) {
	repo := repository.New(storage.NewAdapter(storage.NewMemoryStore()))
	c := cache.New(repo)
	t.Cleanup(c.Close)

	vm := New(c)
	assert.False(t, vm.Sync(context.Background()))
	assert.Empty(t, vm.ActiveID())
}

// =============================================================================
// ACTIVATION AND UNREAD
// =============================================================================

func TestViewModel_ActivateMarksReadOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.cache.SendMessage(ctx, storage.SeedGPT4ID, model.Draft{Content: "r", Role: model.RoleAssistant})
		require.NoError(t, err)
	}
	conv, _ := f.cache.Snapshot().Find(storage.SeedGPT4ID)
	require.Equal(t, 3, conv.UnreadCount)

	wait(t, f.vm.Activate(ctx, storage.SeedGPT4ID))
	conv, _ = f.cache.Snapshot().Find(storage.SeedGPT4ID)
	assert.Zero(t, conv.UnreadCount)

	assert.Nil(t, f.vm.Activate(ctx, storage.SeedGPT4ID))
	assert.Equal(t, 1, f.source.marks[storage.SeedGPT4ID])
}

func TestViewModel_FocusedConversationStaysRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	wait(t, f.vm.Activate(ctx, storage.SeedGPT4ID))
	assert.True(t, f.focus.Is(storage.SeedGPT4ID))

	_, err := f.cache.SendMessage(ctx, storage.SeedGPT4ID, model.Draft{Content: "r", Role: model.RoleAssistant})
	require.NoError(t, err)
	_, err = f.cache.SendMessage(ctx, storage.SeedAssistantID, model.Draft{Content: "r", Role: model.RoleAssistant})
	require.NoError(t, err)

	snap := f.cache.Snapshot()
	active, _ := snap.Find(storage.SeedGPT4ID)
	other, _ := snap.Find(storage.SeedAssistantID)
	assert.Zero(t, active.UnreadCount)
	assert.Equal(t, 1, other.UnreadCount)
}

func TestViewModel_ActivateUnknown(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.vm.Activate(context.Background(), "ghost"))
	assert.Nil(t, f.vm.State().Current)
	assert.Zero(t, f.source.marks["ghost"])
}

// =============================================================================
// TYPING INDICATOR
// =============================================================================

type staticTyping map[string]string

func (s staticTyping) Typing(id string) (string, bool) {
	text, ok := s[id]
	return text, ok
}

func TestViewModel_Typing(t *testing.T) {
	f := newFixture(t, WithTyping(staticTyping{storage.SeedGPT4ID: "Hel"}))

	assert.False(t, f.vm.State().Typing)

	wait(t, f.vm.Activate(context.Background(), storage.SeedGPT4ID))
	st := f.vm.State()
	assert.True(t, st.Typing)
	assert.Equal(t, "Hel", st.TypingText)

	wait(t, f.vm.Activate(context.Background(), storage.SeedAssistantID))
	assert.False(t, f.vm.State().Typing, "typing belongs to one conversation only")
}
