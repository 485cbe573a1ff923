// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/stream"
)

// LoadedMsg reports the end of the initial load.
type LoadedMsg struct {
	Err error
}

// CacheEventMsg wraps a cache notification.
type CacheEventMsg struct {
	Event cache.Event
}

// ReplyUpdateMsg wraps a replier state change.
type ReplyUpdateMsg struct {
	Update stream.Update
}

// StatusMsg shows a transient status line.
type StatusMsg struct {
	Text string
	Err  error
}

// listenEvents waits for the next cache event.
func listenEvents(ch <-chan cache.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return CacheEventMsg{Event: ev}
	}
}

// listenReplies waits for the next replier update.
func listenReplies(ch <-chan stream.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return ReplyUpdateMsg{Update: u}
	}
}
