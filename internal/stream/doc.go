// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes AI replies as token streams and feeds them into
// conversations.
//
// # Wire Format
//
// A ChatRequest is POSTed as JSON. The response is newline-delimited JSON,
// one Frame per line:
//
//	{"content":"Привет"}
//	{"content":"!"}
//	{"done":true}
//
// A failure after the first frame arrives as {"error":"..."}.
//
// # Key Types
//
//   - Client: HTTP client that turns the response into a channel of Chunks
//   - Replier: per-conversation idle/streaming state machine that buffers
//     tokens and appends the finished reply through the cache
package stream
