// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repository

import "sync"

// Focus tracks which conversation the user is currently looking at.
// The zero value has nothing focused and is ready to use.
type Focus struct {
	mu sync.RWMutex
	id string
}

// Set focuses id. An empty id clears focus.
func (f *Focus) Set(id string) {
	f.mu.Lock()
	f.id = id
	f.mu.Unlock()
}

// Get returns the focused id, or "" if none.
func (f *Focus) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.id
}

// Is reports whether id is focused.
func (f *Focus) Is(id string) bool {
	if f == nil || id == "" {
		return false
	}
	return f.Get() == id
}
