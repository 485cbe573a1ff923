// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: a named thread with an ordered, append-only message list
//   - Collection: the ordered set of conversations persisted as a single blob
//   - Message: one entry with role, content, epoch-millisecond timestamp and status
//   - Draft: the caller-supplied part of a message before it is recorded
//
// # Usage
//
//	conv := coll[0]
//	conv.Append(model.Message{ID: "m1", Role: model.RoleUser, Content: "Привет"})
//	matches := coll.Search("gpt")
package model
