// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// SidebarWidth is the width of the conversation list column.
const SidebarWidth = 34

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark bool

	// Sidebar
	Sidebar       lipgloss.Style
	SidebarTitle  lipgloss.Style
	Search        lipgloss.Style
	SearchFocused lipgloss.Style
	Item          lipgloss.Style
	ItemSelected  lipgloss.Style
	ItemActive    lipgloss.Style
	ItemName      lipgloss.Style
	ItemPreview   lipgloss.Style
	ItemTime      lipgloss.Style
	UnreadBadge   lipgloss.Style
	OnlineDot     lipgloss.Style
	EmptyList     lipgloss.Style

	// Chat pane
	Header           lipgloss.Style
	HeaderName       lipgloss.Style
	HeaderStatus     lipgloss.Style
	UserBubble       lipgloss.Style
	AssistantBubble  lipgloss.Style
	PendingBubble    lipgloss.Style
	BubbleTime       lipgloss.Style
	Typing           lipgloss.Style
	Placeholder      lipgloss.Style
	PlaceholderTitle lipgloss.Style

	// Input and status
	Input        lipgloss.Style
	InputFocused lipgloss.Style
	StatusBar    lipgloss.Style
	Error        lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for the detected terminal background.
func NewTheme() *Theme {
	t := &Theme{IsDark: lipgloss.HasDarkBackground()}

	t.Sidebar = lipgloss.NewStyle().
		Width(SidebarWidth).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary).Padding(0, 1)
	t.Search = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SearchFocused = t.Search.BorderForeground(Blue)

	t.Item = lipgloss.NewStyle().Padding(0, 1)
	t.ItemSelected = t.Item.Background(Overlay)
	t.ItemActive = t.Item.Background(BlueTint).
		BorderStyle(lipgloss.ThickBorder()).
		BorderRight(true).
		BorderForeground(Blue)
	t.ItemName = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.ItemPreview = lipgloss.NewStyle().Foreground(TextSecondary)
	t.ItemTime = lipgloss.NewStyle().Foreground(TextMuted)
	t.UnreadBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Blue).
		Bold(true).
		Padding(0, 1)
	t.OnlineDot = lipgloss.NewStyle().Foreground(Emerald)
	t.EmptyList = lipgloss.NewStyle().Foreground(TextMuted).Padding(1, 2)

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HeaderName = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.HeaderStatus = lipgloss.NewStyle().Foreground(TextSecondary)

	bubble := lipgloss.NewStyle().Padding(0, 1).MarginBottom(1)
	t.UserBubble = bubble.Foreground(UserBubbleFg).Background(UserBubbleBg)
	t.AssistantBubble = bubble.Foreground(AssistantBubbleFg).Background(AssistantBubbleBg)
	t.PendingBubble = t.UserBubble.Foreground(Amber)
	t.BubbleTime = lipgloss.NewStyle().Foreground(TextMuted)
	t.Typing = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextSecondary).Align(lipgloss.Center)
	t.PlaceholderTitle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputFocused = t.Input.BorderForeground(Blue)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}
