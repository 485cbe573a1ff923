// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// useColor reports whether styled output should be written to w.
// NO_COLOR disables styling.
func useColor(w io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isTerminal(w)
}

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// terminalWidth returns the width of w, or DefaultTerminalWidth.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// OUTPUT STYLES
// =============================================================================

// palette holds the styles for one output stream; all plain when color is off.
type palette struct {
	name    lipgloss.Style
	muted   lipgloss.Style
	badge   lipgloss.Style
	online  lipgloss.Style
	user    lipgloss.Style
	ai      lipgloss.Style
	errText lipgloss.Style
	prompt  lipgloss.Style
}

func newPalette(w io.Writer) palette {
	if !useColor(w) {
		plain := lipgloss.NewStyle()
		return palette{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return palette{
		name:    lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimary),
		muted:   lipgloss.NewStyle().Foreground(styles.TextMuted),
		badge:   lipgloss.NewStyle().Bold(true).Foreground(styles.TextInverse).Background(styles.Blue),
		online:  lipgloss.NewStyle().Foreground(styles.Emerald),
		user:    lipgloss.NewStyle().Bold(true).Foreground(styles.Blue),
		ai:      lipgloss.NewStyle().Bold(true).Foreground(styles.Emerald),
		errText: lipgloss.NewStyle().Foreground(styles.Rose),
		prompt:  lipgloss.NewStyle().Bold(true).Foreground(styles.Blue),
	}
}
