// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repository exposes list, find, search and append operations over
// the persisted conversation collection.
//
// Every operation loads the whole collection through the storage adapter,
// computes, and writes the whole collection back. Concurrent writers get
// last-writer-wins semantics; a mutex serializes writers within one process.
//
// # Unread Accounting
//
// An assistant message increments the target's unread count unless the
// target is the conversation tracked by Focus.
package repository
