// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"

	"github.com/jeranaias/rigchat/internal/model"
)

// HistoryMessage is one prior message sent to the generation service.
type HistoryMessage struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// ChatRequest is the body of a generation request.
type ChatRequest struct {
	Messages []HistoryMessage `json:"messages"`
	ChatID   string           `json:"chatId,omitempty"`
	System   string           `json:"system,omitempty"`
}

// Frame is one line of the streamed response.
type Frame struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Chunk is one element of a token stream. The stream ends after a chunk with
// Done or Err set, or when the channel closes.
type Chunk struct {
	Content string
	Done    bool
	Err     error
}

// Generator produces a reply as a token stream. The returned channel is
// finite and can be consumed once. Canceling ctx stops delivery and releases
// the underlying transport.
type Generator interface {
	Stream(ctx context.Context, req ChatRequest) (<-chan Chunk, error)
}

// History converts conversation messages to request history.
func History(msgs []model.Message) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
