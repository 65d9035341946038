// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar shows the use-documents toggle, activity state, and key hints.
type StatusBar struct {
	theme *styles.Theme
	width int

	UseDocs   bool
	Streaming bool
	Offline   bool
}

// NewStatusBar creates the status bar.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{theme: theme, width: 80, UseDocs: true}
}

// SetWidth resizes the bar.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// View renders the status line.
func (s *StatusBar) View() string {
	var left []string

	if s.UseDocs {
		left = append(left, s.theme.ToggleOn.Render("[docs on]"))
	} else {
		left = append(left, s.theme.ToggleOff.Render("[docs off]"))
	}
	if s.Streaming {
		left = append(left, s.theme.ToggleOn.Render("streaming"))
	}
	if s.Offline {
		left = append(left, s.theme.VerdictUnsupported.Render("offline"))
	}

	hints := []struct{ key, desc string }{
		{"enter", "send"},
		{"esc", "stop"},
		{"ctrl+d", "docs"},
		{"ctrl+n", "new"},
		{"ctrl+q", "quit"},
	}
	var right []string
	for _, h := range hints {
		right = append(right,
			s.theme.ShortcutKey.Render(h.key)+s.theme.ShortcutDesc.Render(" "+h.desc))
	}

	leftStr := strings.Join(left, " ")
	rightStr := strings.Join(right, "  ")

	gap := s.width - util.StringWidth(leftStr) - util.StringWidth(rightStr) - 2
	if gap < 1 {
		gap = 1
		rightStr = util.TruncateWidth(rightStr, s.width-util.StringWidth(leftStr)-3)
	}

	bar := leftStr + strings.Repeat(" ", gap) + rightStr
	return s.theme.StatusBar.Width(s.width).Render(bar)
}

// =============================================================================
// HEADER
// =============================================================================

// Header renders the title line over the message viewport.
func Header(theme *styles.Theme, title string, width int) string {
	line := theme.HeaderTitle.Render("docchat") + "  " +
		theme.HeaderSubtitle.Render(util.TruncateWidth(title, width-12))
	return lipgloss.NewStyle().Width(width).Render(line)
}
