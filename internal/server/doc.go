// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP generation endpoint that streams AI replies.
//
// Endpoints:
//   - POST /api/chat - stream a reply as newline-delimited JSON frames
//   - GET  /health   - liveness check
//   - GET  /metrics  - Prometheus metrics
//
// Any failure before the first token, including a malformed body, is answered
// with 500 Internal Server Error. After the first token the status is already
// sent, so failures are reported as a final {"error":"..."} frame.
package server
