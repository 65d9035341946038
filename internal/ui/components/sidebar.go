// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// CONVERSATION SIDEBAR
// =============================================================================

// Sidebar renders the conversation list: pinned first, then by recency.
type Sidebar struct {
	theme  *styles.Theme
	width  int
	height int

	// Cursor is the highlighted row index into the display-ordered list.
	Cursor int
}

// NewSidebar creates the conversation list panel.
func NewSidebar(theme *styles.Theme) Sidebar {
	return Sidebar{theme: theme, width: 28, height: 20}
}

// SetSize resizes the panel.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Width returns the panel width.
func (s *Sidebar) Width() int {
	return s.width
}

// MoveCursor shifts the highlighted row, clamped to the list.
func (s *Sidebar) MoveCursor(delta, listLen int) {
	s.Cursor += delta
	if s.Cursor < 0 {
		s.Cursor = 0
	}
	if s.Cursor >= listLen {
		s.Cursor = listLen - 1
	}
	if s.Cursor < 0 {
		s.Cursor = 0
	}
}

// View renders the list with the active conversation marked.
func (s *Sidebar) View(convs []*model.Conversation, activeID string, streaming func(string) bool) string {
	var lines []string
	lines = append(lines, s.theme.SidebarTitle.Render("Conversations"))

	rowWidth := s.width - 3
	visible := s.height - 2
	start := 0
	if s.Cursor >= visible {
		start = s.Cursor - visible + 1
	}

	for i := start; i < len(convs) && i-start < visible; i++ {
		conv := convs[i]

		marker := "  "
		if conv.IsPinned {
			marker = s.theme.PinMarker.Render("* ")
		}
		title := util.TruncateWidth(conv.DisplayTitle(), rowWidth-4)
		if streaming != nil && streaming(conv.ID) {
			title += " ..."
		}

		row := marker + title
		style := s.theme.ConvItem
		if i == s.Cursor {
			style = s.theme.ConvItemSelected
		} else if conv.ID == activeID {
			row = marker + s.theme.ConvTitle.Bold(true).Render(title)
		}
		lines = append(lines, style.MaxWidth(rowWidth).Render(row))
	}

	if len(convs) == 0 {
		lines = append(lines, s.theme.ConvMeta.Render("  no conversations"))
	}

	body := strings.Join(lines, "\n")
	return s.theme.Sidebar.Width(s.width).Height(s.height).Render(body)
}
