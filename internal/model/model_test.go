// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollection() Collection {
	return Collection{
		{ID: "ai-assistant", Name: "AI Ассистент", Kind: KindAI},
		{ID: "gpt-4", Name: "GPT-4 Turbo", Kind: KindAI},
		{ID: "bob", Name: "Bob", Kind: KindHuman},
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AppendUpdatesLastMessage(t *testing.T) {
	var conv Conversation
	conv.Append(Message{ID: "1", Content: "first", Role: RoleUser})
	conv.Append(Message{ID: "2", Content: "second", Role: RoleAssistant})

	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "2", conv.LastMessage.ID)
	assert.Len(t, conv.Messages, 2)
	assert.Equal(t, "1", conv.Messages[0].ID, "insertion order must be kept")
}

func TestConversation_RecomputeEmpty(t *testing.T) {
	conv := Conversation{LastMessage: &Message{ID: "stale"}, UnreadCount: -2}
	conv.Recompute()

	assert.Nil(t, conv.LastMessage)
	assert.NotNil(t, conv.Messages)
	assert.Zero(t, conv.UnreadCount)
}

func TestConversation_CloneIsDeep(t *testing.T) {
	online := true
	conv := Conversation{ID: "c", IsOnline: &online}
	conv.Append(Message{ID: "1", Content: "hello"})

	clone := conv.Clone()
	clone.Messages[0].Content = "changed"
	clone.LastMessage.Content = "changed"
	*clone.IsOnline = false

	assert.Equal(t, "hello", conv.Messages[0].Content)
	assert.Equal(t, "hello", conv.LastMessage.Content)
	assert.True(t, conv.Online())
}

func TestMessage_IsTemporary(t *testing.T) {
	assert.True(t, Message{ID: TempIDPrefix + "abc"}.IsTemporary())
	assert.False(t, Message{ID: "abc"}.IsTemporary())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
}

// =============================================================================
// SEARCH TESTS
// =============================================================================

func TestCollection_Search(t *testing.T) {
	coll := Collection{
		{ID: "ai-assistant", Name: "AI Ассистент"},
		{ID: "gpt-4", Name: "GPT-4 Turbo"},
	}

	got := coll.Search("gpt")
	require.Len(t, got, 1)
	assert.Equal(t, "GPT-4 Turbo", got[0].Name)

	all := coll.Search("")
	require.Len(t, all, 2)
	assert.Equal(t, "AI Ассистент", all[0].Name)
	assert.Equal(t, "GPT-4 Turbo", all[1].Name)
}

func TestCollection_SearchCyrillicCaseInsensitive(t *testing.T) {
	got := sampleCollection().Search("АССИСТ")
	require.Len(t, got, 1)
	assert.Equal(t, "ai-assistant", got[0].ID)
}

func TestCollection_SearchKeepsOrder(t *testing.T) {
	got := sampleCollection().Search("b")
	// "GPT-4 Turbo" and "Bob" both contain a b.
	require.Len(t, got, 2)
	assert.Equal(t, "gpt-4", got[0].ID)
	assert.Equal(t, "bob", got[1].ID)
}

func TestCollection_SearchNoMatch(t *testing.T) {
	got := sampleCollection().Search("zzz")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCollection_FindAndIndex(t *testing.T) {
	coll := sampleCollection()

	assert.Equal(t, 1, coll.Index("gpt-4"))
	assert.Equal(t, -1, coll.Index("missing"))

	conv, ok := coll.Find("bob")
	require.True(t, ok)
	conv.Name = "changed"
	assert.Equal(t, "Bob", coll[2].Name, "Find must return a copy")

	_, ok = coll.Find("missing")
	assert.False(t, ok)
}

// =============================================================================
// SERIALIZATION
// =============================================================================

func TestConversation_JSONLayout(t *testing.T) {
	online := true
	conv := Conversation{ID: "gpt-4", Name: "GPT-4 Turbo", Kind: KindAI, Avatar: "🧠", IsOnline: &online}
	conv.Append(Message{ID: "1", Content: "hi", Role: RoleUser, Timestamp: 1700000000000, Status: StatusSent})

	data, err := json.Marshal(conv)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "ai", raw["type"])
	assert.Equal(t, float64(0), raw["unreadCount"])
	assert.Contains(t, raw, "lastMessage")
	assert.Contains(t, raw, "messages")
	assert.NotContains(t, raw, "lastSeen")
}
