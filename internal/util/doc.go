// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storage and display layers.
//
// # Key Functions
//
//   - AtomicWriteFile: write-temp, fsync, rename so a crash never leaves a torn blob
//   - Truncate: display-width aware truncation for the sidebar and list output
//   - Preview: single-line excerpt of a message body
package util
