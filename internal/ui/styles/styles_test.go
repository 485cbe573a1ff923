// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	out := theme.UnreadBadge.Render("3")
	if !strings.Contains(out, "3") {
		t.Errorf("UnreadBadge.Render(3) = %q, want it to contain 3", out)
	}
	if got := theme.Sidebar.GetWidth(); got != SidebarWidth {
		t.Errorf("Sidebar width = %d, want %d", got, SidebarWidth)
	}
}

func TestAdaptiveColorsDefined(t *testing.T) {
	colors := map[string]struct{ Light, Dark string }{
		"Blue":    {Blue.Light, Blue.Dark},
		"Emerald": {Emerald.Light, Emerald.Dark},
		"Rose":    {Rose.Light, Rose.Dark},
		"Amber":   {Amber.Light, Amber.Dark},
		"Surface": {Surface.Light, Surface.Dark},
	}
	for name, c := range colors {
		if !strings.HasPrefix(c.Light, "#") || !strings.HasPrefix(c.Dark, "#") {
			t.Errorf("%s should define light and dark hex values, got %+v", name, c)
		}
	}
}
