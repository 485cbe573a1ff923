// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the conversation collection as a single blob.
//
// The collection is serialized to JSON and written under one key of a
// BlobStore. Every write replaces the previous blob in full.
//
// # Key Types
//
//   - BlobStore: get/set key-value store (file, sqlite, pebble, memory)
//   - Adapter: loads and saves a model.Collection, seeding defaults when the
//     blob is missing or unparsable
//
// # Usage
//
//	store, err := storage.Open(storage.DriverFile, "~/.rigchat/data")
//	adapter := storage.NewAdapter(store, storage.WithLogger(logger))
//	coll, err := adapter.Load(ctx)
//	err = adapter.Save(ctx, coll)
//
// # Storage Location
//
// The file driver keeps blobs in ~/.rigchat/data/<key>.json.
package storage
