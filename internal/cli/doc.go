// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command tree.
//
// Commands:
//   - tui (default): full-screen messenger
//   - chat [id]: line-mode chat with history
//   - serve: run the generation endpoint
//   - list, search, show, send, read, export: scriptable access to conversations
//   - config show|get|set|keys|path: inspect and edit the config file
//
// Global flags select the config file and override the storage driver, data
// path and generation endpoint.
package cli
