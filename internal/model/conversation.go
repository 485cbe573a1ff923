// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// =============================================================================
// CONVERSATION KIND
// =============================================================================

// Kind tells who is on the other side of a conversation.
type Kind string

const (
	KindHuman Kind = "human"
	KindAI    Kind = "ai"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a named thread of messages. LastMessage is derived and always
// mirrors the tail of Messages.
type Conversation struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"type"`
	Avatar      string    `json:"avatar,omitempty"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	UnreadCount int       `json:"unreadCount"`
	IsOnline    *bool     `json:"isOnline,omitempty"`
	LastSeen    int64     `json:"lastSeen,omitempty"`
	Messages    []Message `json:"messages"`
}

// Append adds msg to the end of the conversation and updates LastMessage.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.Recompute()
}

// Recompute restores the derived fields from Messages.
func (c *Conversation) Recompute() {
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	if len(c.Messages) == 0 {
		c.LastMessage = nil
		return
	}
	last := c.Messages[len(c.Messages)-1]
	c.LastMessage = &last
}

// HasMessage reports whether a message with the given id is present.
func (c *Conversation) HasMessage(id string) bool {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return true
		}
	}
	return false
}

// Online reports the presence flag, treating an unset flag as offline.
func (c *Conversation) Online() bool {
	return c.IsOnline != nil && *c.IsOnline
}

// Clone returns a deep copy so callers can mutate it freely.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	if c.IsOnline != nil {
		online := *c.IsOnline
		out.IsOnline = &online
	}
	return out
}

// =============================================================================
// COLLECTION
// =============================================================================

// Collection is the ordered set of conversations persisted as one unit.
type Collection []Conversation

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i := range c {
		out[i] = c[i].Clone()
	}
	return out
}

// Index returns the position of the conversation with the given id, or -1.
func (c Collection) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a copy of the conversation with the given id.
func (c Collection) Find(id string) (Conversation, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i].Clone(), true
	}
	return Conversation{}, false
}

// Search returns the conversations whose name contains query, ignoring case.
// Order follows the collection. An empty query matches everything.
func (c Collection) Search(query string) Collection {
	out := make(Collection, 0, len(c))
	if query == "" {
		for i := range c {
			out = append(out, c[i].Clone())
		}
		return out
	}
	fold := cases.Fold()
	needle := fold.String(query)
	for i := range c {
		if strings.Contains(fold.String(c[i].Name), needle) {
			out = append(out, c[i].Clone())
		}
	}
	return out
}

// Normalize recomputes the derived fields of every conversation in place.
func (c Collection) Normalize() {
	for i := range c {
		c[i].Recompute()
	}
}
