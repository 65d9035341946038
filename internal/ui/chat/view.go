// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := components.Header(m.theme, m.activeTitle(), m.width)

	body := m.viewport.View()
	if m.sidebarVisible() {
		sidebar := m.sidebar.View(m.store.List(), m.store.ActiveID(), m.manager.Streaming)
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", body)
	}

	sections := []string{header, body}
	if spin := m.spinner.View(m.theme); spin != "" {
		sections = append(sections, spin)
	}
	if stack := components.RenderToastStack(m.theme, m.toasts.Tick(), m.width); stack != "" {
		sections = append(sections, stack)
	}
	sections = append(sections, m.input.View(), m.statusBar.View())

	screen := strings.Join(sections, "\n")

	switch m.mode {
	case ModeRename:
		return m.overlayDialog(screen, m.renderRenameDialog())
	case ModeConfirmDelete:
		return m.overlayDialog(screen, m.renderDeleteDialog())
	case ModeUpload:
		return m.overlayDialog(screen, m.renderUploadDialog())
	}
	return screen
}

// =============================================================================
// VIEWPORT CONTENT
// =============================================================================

// refreshViewport rebuilds the message list content. When follow is true the
// viewport snaps to the newest message, which is what streaming wants.
func (m *Model) refreshViewport(follow bool) {
	conv := m.store.Active()
	if conv == nil {
		m.viewport.SetContent(m.theme.ConvMeta.Render("Start a conversation with ctrl+n."))
		return
	}

	width := m.viewport.Width
	var blocks []string
	for _, msg := range conv.Messages {
		bubble := components.NewMessageBubble(msg, m.theme)
		bubble.SetWidth(width)
		bubble.SetShowEvidence(m.cfg.UI.ShowEvidence)
		blocks = append(blocks, bubble.View())
	}

	// The in-flight reply is not in the store yet; render the live partial
	// below the history.
	if partial, ok := m.manager.PartialContent(conv.ID); ok && partial != "" {
		live := &model.Message{Role: model.RoleAssistant, Content: partial, IsStreaming: true}
		bubble := components.NewMessageBubble(live, m.theme)
		bubble.SetWidth(width)
		blocks = append(blocks, bubble.View())
	}

	if len(blocks) == 0 {
		m.viewport.SetContent(m.theme.ConvMeta.Render("No messages yet. Ask something below."))
		return
	}

	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// DIALOGS
// =============================================================================

func (m *Model) renderRenameDialog() string {
	title := m.theme.DialogTitle.Render("Rename conversation")
	hint := m.theme.ConvMeta.Render("enter to save, esc to cancel")
	body := title + "\n\n" + m.input.View() + "\n" + hint
	return m.theme.DialogBox.Render(body)
}

func (m *Model) renderUploadDialog() string {
	title := m.theme.DialogTitle.Render("Attach a file")
	hint := m.theme.ConvMeta.Render("enter a path, esc to cancel")
	body := title + "\n\n" + m.input.View() + "\n" + hint
	return m.theme.DialogBox.Render(body)
}

func (m *Model) renderDeleteDialog() string {
	name := "this conversation"
	if conv, ok := m.store.Get(m.deleteTarget); ok {
		name = "\"" + conv.DisplayTitle() + "\""
	}
	title := m.theme.DialogTitle.Render("Delete " + name + "?")

	yes := m.theme.DialogButton.Render("Delete")
	no := m.theme.DialogButtonActive.Render("Cancel")
	if m.deleteConfirm {
		yes = m.theme.DialogButtonActive.Render("Delete")
		no = m.theme.DialogButton.Render("Cancel")
	}

	body := title + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, yes, "  ", no)
	return m.theme.DialogBox.Render(body)
}

// overlayDialog centers a dialog over the screen.
func (m *Model) overlayDialog(_, dialog string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
