// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the rigchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Blue - Primary accent, user bubbles and the active conversation
  - Emerald - Online indicator
  - Amber - Messages that are not yet confirmed
  - Rose - Errors

# Theme System (theme.go)

	theme := styles.NewTheme()
	row := theme.ItemActive.Render(name)
*/
package styles
