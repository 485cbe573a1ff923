// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the messenger screen for the rigchat TUI.

The screen is a Bubble Tea model over the view model: a conversation list
with search on the left, the open conversation on the right and an input
line at the bottom.

# Key Components

## Model (model.go)

Holds UI-only state (focus, list cursor, widgets) and the last derived
viewmodel.State. It never mutates conversations directly; every change goes
through the cache or the replier, and the screen re-derives from their
notifications.

## Update Loop (update.go)

  - Cache events and reply updates arrive as messages from listener commands
  - Keyboard input moves focus, opens conversations and submits messages
  - Slash commands: /export [md|json|yaml], /copy

## View Rendering (view.go)

  - Sidebar rows with avatar, name, unread badge, preview and time
  - Message bubbles, assistant replies rendered as Markdown with glamour
  - Typing indicator while a reply streams
  - "Выберите чат" placeholder when nothing is open
*/
package chat
