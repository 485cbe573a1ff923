// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache holds the in-memory view of the conversation collection and
// applies writes to it optimistically.
//
// The view is always derived as the last successful load (the base) plus the
// patches of mutations that have not been absorbed by a later load. A mutation
// moves through pending, then committed or rolled back, then settled:
//
//	pending     patch applied, repository write in flight
//	committed   write accepted, patch kept until a load includes the result
//	rolled back patch removed, error reported to the caller
//	settled     view marked stale and reloaded from the repository
//
// Starting a mutation cancels any in-flight refresh, and a refresh that
// completes while a mutation is still pending is discarded. A stale read can
// therefore never hide an unsettled optimistic patch.
package cache
