// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/actions"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/stream"
	"github.com/jeranaias/docchat-tui/internal/ui/components"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// MODES
// =============================================================================

// Mode is the UI interaction mode. Compose is the default; the other modes
// are modal and capture all key input until confirmed or cancelled.
type Mode int

const (
	ModeCompose Mode = iota
	ModeRename
	ModeConfirmDelete
	ModeUpload
)

// Focus selects which panel receives navigation keys.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the root bubbletea model for the chat screen.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config

	store       *store.Store
	coordinator *actions.Coordinator
	manager     *stream.Manager

	sidebar   components.Sidebar
	input     components.InputArea
	statusBar components.StatusBar
	spinner   components.Spinner
	toasts    *components.ToastManager
	viewport  viewport.Model

	mode  Mode
	focus Focus

	// useDocs holds the per-conversation retrieval toggle; conversations
	// absent from the map use the configured default.
	useDocs map[string]bool

	// draft stashes the compose text while the input field is borrowed by
	// the rename dialog.
	draft string

	// deleteTarget is the conversation id pending delete confirmation.
	deleteTarget  string
	deleteConfirm bool

	width   int
	height  int
	ready   bool
	offline bool
}

// Deps bundles the constructed application layers the UI renders.
type Deps struct {
	Config      *config.Config
	Store       *store.Store
	Coordinator *actions.Coordinator
	Manager     *stream.Manager
	Toasts      *components.ToastManager
}

// New creates the chat model.
func New(deps Deps) Model {
	theme := styles.NewTheme(deps.Config.UI.Theme)

	toasts := deps.Toasts
	if toasts == nil {
		toasts = components.NewToastManager()
	}

	statusBar := components.NewStatusBar(theme)
	statusBar.UseDocs = deps.Config.Chat.UseDocsDefault
	statusBar.Streaming = deps.Config.Chat.StreamingEnabled

	return Model{
		theme:       theme,
		cfg:         deps.Config,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		manager:     deps.Manager,
		sidebar:     components.NewSidebar(theme),
		input:       components.NewInputArea(theme),
		statusBar:   statusBar,
		spinner:     components.NewThinkingSpinner(theme),
		toasts:      toasts,
		viewport:    viewport.New(80, 20),
		useDocs:     make(map[string]bool),
	}
}

// Init loads the conversation list and starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), textinput.Blink)
}

// =============================================================================
// HELPERS
// =============================================================================

// useDocsFor returns the retrieval toggle for a conversation.
func (m *Model) useDocsFor(conversationID string) bool {
	if v, ok := m.useDocs[conversationID]; ok {
		return v
	}
	return m.cfg.Chat.UseDocsDefault
}

// activeTitle returns the header title for the active conversation.
func (m *Model) activeTitle() string {
	if conv := m.store.Active(); conv != nil {
		return conv.DisplayTitle()
	}
	return "No conversation"
}

// sidebarVisible reports whether the terminal is wide enough for the list.
func (m *Model) sidebarVisible() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}
