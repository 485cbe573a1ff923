// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-runewidth"
)

// formatTimestamp formats a message time for display:
//   - Today: just time (e.g., "15:04")
//   - This week: day and time (e.g., "Mon 15:04")
//   - Older: date (e.g., "02.01.06")
func formatTimestamp(t time.Time) string {
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("02.01.06")
}

// copyToClipboard copies the given text to the system clipboard.
func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// wrapText wraps text to maxWidth display columns, keeping existing line
// breaks and breaking long lines at spaces where possible.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, maxWidth)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, maxWidth int) []string {
	if runewidth.StringWidth(line) <= maxWidth {
		return []string{line}
	}
	var (
		lines []string
		cur   strings.Builder
		width int
	)
	flush := func() {
		lines = append(lines, strings.TrimRight(cur.String(), " "))
		cur.Reset()
		width = 0
	}
	for _, word := range strings.Split(line, " ") {
		ww := runewidth.StringWidth(word)
		if width > 0 && width+1+ww > maxWidth {
			flush()
		}
		if ww > maxWidth {
			for _, r := range word {
				rw := runewidth.RuneWidth(r)
				if width+rw > maxWidth {
					flush()
				}
				cur.WriteRune(r)
				width += rw
			}
			continue
		}
		if width > 0 {
			cur.WriteByte(' ')
			width++
		}
		cur.WriteString(word)
		width += ww
	}
	if cur.Len() > 0 {
		flush()
	}
	return lines
}
