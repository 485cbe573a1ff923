// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// Seed conversation ids.
const (
	SeedAssistantID = "ai-assistant"
	SeedGPT4ID      = "gpt-4"
)

// Seed returns the default collection written when storage is empty or
// unreadable. The greeting is timestamped one hour before now.
func Seed(now time.Time) model.Collection {
	online := func() *bool { v := true; return &v }

	greeting := model.Message{
		ID:        "1",
		Content:   "Привет! Я твой AI-ассистент. Чем могу помочь?",
		Role:      model.RoleAssistant,
		Timestamp: now.Add(-time.Hour).UnixMilli(),
		Status:    model.StatusRead,
	}

	coll := model.Collection{
		{
			ID:       SeedAssistantID,
			Name:     "AI Ассистент",
			Kind:     model.KindAI,
			Avatar:   "🤖",
			IsOnline: online(),
			Messages: []model.Message{greeting},
		},
		{
			ID:       SeedGPT4ID,
			Name:     "GPT-4 Turbo",
			Kind:     model.KindAI,
			Avatar:   "🧠",
			IsOnline: online(),
			Messages: []model.Message{},
		},
	}
	coll.Normalize()
	return coll
}
