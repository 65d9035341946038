// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/notify"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ConversationsLoadedMsg reports the initial listing refresh.
type ConversationsLoadedMsg struct {
	Err error
}

// ConversationOpenedMsg reports an open (history load) finishing.
type ConversationOpenedMsg struct {
	ConversationID string
	Err            error
}

// StreamUpdateMsg is pushed on every store-visible change from an exchange,
// so the view re-renders the partial content.
type StreamUpdateMsg struct {
	ConversationID string
}

// ExchangeDoneMsg reports a send reaching a terminal state.
type ExchangeDoneMsg struct {
	ConversationID string
	Err            error
}

// ConversationChangedMsg reports a coordinator action (rename, pin, delete,
// create) finishing; the store already reflects the outcome.
type ConversationChangedMsg struct {
	Err error
}

// NoticeMsg carries a user-facing notice into the view loop.
type NoticeMsg struct {
	Notice notify.Notice
}

// ConfigReloadedMsg carries a fresh configuration from the file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.coordinator.Refresh(context.Background())
		return ConversationsLoadedMsg{Err: err}
	}
}

func (m Model) openCmd(conversationID string) tea.Cmd {
	return func() tea.Msg {
		err := m.coordinator.Open(context.Background(), conversationID)
		return ConversationOpenedMsg{ConversationID: conversationID, Err: err}
	}
}

func (m Model) sendCmd(conversationID, text string, useDocs bool) tea.Cmd {
	return func() tea.Msg {
		err := m.manager.Send(context.Background(), conversationID, text, useDocs)
		return ExchangeDoneMsg{ConversationID: conversationID, Err: err}
	}
}

func (m Model) createCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.coordinator.Create(context.Background())
		return ConversationChangedMsg{Err: err}
	}
}

func (m Model) renameCmd(conversationID, title string) tea.Cmd {
	return func() tea.Msg {
		err := m.coordinator.Rename(context.Background(), conversationID, title)
		return ConversationChangedMsg{Err: err}
	}
}

func (m Model) setPinnedCmd(conversationID string, pinned bool) tea.Cmd {
	return func() tea.Msg {
		err := m.coordinator.SetPinned(context.Background(), conversationID, pinned)
		return ConversationChangedMsg{Err: err}
	}
}

func (m Model) deleteCmd(conversationID string) tea.Cmd {
	return func() tea.Msg {
		err := m.coordinator.Delete(context.Background(), conversationID)
		return ConversationChangedMsg{Err: err}
	}
}

func (m Model) uploadCmd(conversationID, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return NoticeMsg{Notice: notify.Transient("Could not read " + path + ".")}
		}
		defer f.Close()
		_, err = m.coordinator.Upload(context.Background(), conversationID, filepath.Base(path), f)
		return ConversationChangedMsg{Err: err}
	}
}
