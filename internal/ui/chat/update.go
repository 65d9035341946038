// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/stream"
	"github.com/jeranaias/docchat-tui/internal/ui/components"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConversationsLoadedMsg:
		return m.handleConversationsLoaded(msg)

	case ConversationOpenedMsg:
		if msg.Err == nil && msg.ConversationID == m.store.ActiveID() {
			m.refreshViewport(true)
		}
		return m, nil

	case StreamUpdateMsg:
		if msg.ConversationID == m.store.ActiveID() {
			m.refreshViewport(true)
		}
		return m, nil

	case ExchangeDoneMsg:
		return m.handleExchangeDone(msg)

	case ConversationChangedMsg:
		if msg.Err == nil {
			m.refreshViewport(false)
		}
		return m, nil

	case NoticeMsg:
		m.toasts.Add(msg.Notice)
		return m, components.ToastTickCmd()

	case components.ToastTickMsg:
		if m.toasts.HasToasts() {
			return m, components.ToastTickCmd()
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	default:
		var cmds []tea.Cmd
		if cmd := m.spinner.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		if vpCmd != nil {
			cmds = append(cmds, vpCmd)
		}
		return m, tea.Batch(cmds...)
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header, input area (bordered), and status bar surround the viewport.
	chromeHeight := 1 + 3 + 1
	bodyHeight := msg.Height - chromeHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	sidebarWidth := 0
	if m.sidebarVisible() {
		sidebarWidth = 28
		if m.theme.GetLayoutMode() == styles.LayoutWide {
			sidebarWidth = 36
		}
		m.sidebar.SetSize(sidebarWidth, bodyHeight)
	}

	m.viewport.Width = msg.Width - sidebarWidth - 1
	m.viewport.Height = bodyHeight
	m.input.SetWidth(msg.Width)
	m.statusBar.SetWidth(msg.Width)

	m.ready = true
	m.refreshViewport(false)
	return m, nil
}

// =============================================================================
// KEY INPUT
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key := msg.String(); key == "ctrl+c" || key == "ctrl+q" {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeRename:
		return m.handleRenameKey(msg)
	case ModeConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case ModeUpload:
		return m.handleUploadKey(msg)
	default:
		return m.handleComposeKey(msg)
	}
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	activeID := m.store.ActiveID()

	switch msg.String() {
	case "enter":
		if m.focus == FocusSidebar {
			return m.openAtCursor()
		}
		return m.submit(activeID)

	case "esc":
		if m.manager.Streaming(activeID) {
			m.manager.Stop(activeID)
			m.spinner.SetMessage("Stopping")
		}
		return m, nil

	case "tab":
		if m.focus == FocusInput {
			m.focus = FocusSidebar
			m.input.Blur()
			return m, nil
		}
		m.focus = FocusInput
		return m, m.input.Focus()

	case "ctrl+d":
		if activeID != "" {
			m.useDocs[activeID] = !m.useDocsFor(activeID)
			m.statusBar.UseDocs = m.useDocsFor(activeID)
		}
		return m, nil

	case "ctrl+n":
		return m, m.createCmd()

	case "ctrl+p":
		if conv := m.store.Active(); conv != nil {
			return m, m.setPinnedCmd(conv.ID, !conv.IsPinned)
		}
		return m, nil

	case "ctrl+r":
		if conv := m.store.Active(); conv != nil {
			m.mode = ModeRename
			m.draft = m.input.Value()
			m.input.SetValue(conv.Title)
			return m, m.input.Focus()
		}
		return m, nil

	case "ctrl+x":
		if conv := m.store.Active(); conv != nil {
			m.mode = ModeConfirmDelete
			m.deleteTarget = conv.ID
			m.deleteConfirm = false
		}
		return m, nil

	case "ctrl+u":
		if m.store.Active() != nil {
			m.mode = ModeUpload
			m.draft = m.input.Value()
			m.input.SetValue("")
			return m, m.input.Focus()
		}
		return m, nil

	case "up", "down":
		if m.focus == FocusSidebar {
			delta := -1
			if msg.String() == "down" {
				delta = 1
			}
			m.sidebar.MoveCursor(delta, m.store.Len())
			return m, nil
		}

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == FocusInput {
		return m, m.input.Update(msg)
	}
	return m, nil
}

// submit sends the composed message to the active conversation.
func (m Model) submit(activeID string) (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || activeID == "" {
		return m, nil
	}
	if m.manager.Streaming(activeID) {
		m.toasts.Add(notify.Transient("A response is already in progress. Press esc to stop it."))
		return m, components.ToastTickCmd()
	}

	m.input.Reset()
	m.spinner.SetMessage("Thinking")
	spinCmd := m.spinner.Start()
	return m, tea.Batch(spinCmd, m.sendCmd(activeID, text, m.useDocsFor(activeID)))
}

// openAtCursor switches to the conversation highlighted in the sidebar.
func (m Model) openAtCursor() (tea.Model, tea.Cmd) {
	convs := m.store.List()
	if m.sidebar.Cursor < 0 || m.sidebar.Cursor >= len(convs) {
		return m, nil
	}
	target := convs[m.sidebar.Cursor]

	m.focus = FocusInput
	m.statusBar.UseDocs = m.useDocsFor(target.ID)
	return m, tea.Batch(m.input.Focus(), m.openCmd(target.ID))
}

// =============================================================================
// MODAL KEYS
// =============================================================================

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := m.input.Value()
		target := m.store.ActiveID()
		m.mode = ModeCompose
		m.input.SetValue(m.draft)
		m.draft = ""
		if strings.TrimSpace(title) == "" {
			m.toasts.Add(notify.Transient("Title cannot be empty."))
			return m, components.ToastTickCmd()
		}
		return m, m.renameCmd(target, title)

	case "esc":
		m.mode = ModeCompose
		m.input.SetValue(m.draft)
		m.draft = ""
		return m, nil
	}
	return m, m.input.Update(msg)
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		target := m.store.ActiveID()
		m.mode = ModeCompose
		m.input.SetValue(m.draft)
		m.draft = ""
		if path == "" || target == "" {
			return m, nil
		}
		return m, m.uploadCmd(target, path)

	case "esc":
		m.mode = ModeCompose
		m.input.SetValue(m.draft)
		m.draft = ""
		return m, nil
	}
	return m, m.input.Update(msg)
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab":
		m.deleteConfirm = !m.deleteConfirm
		return m, nil

	case "y":
		m.deleteConfirm = true
		fallthrough
	case "enter":
		target := m.deleteTarget
		m.mode = ModeCompose
		m.deleteTarget = ""
		if m.deleteConfirm {
			m.deleteConfirm = false
			return m, m.deleteCmd(target)
		}
		return m, nil

	case "esc", "n":
		m.mode = ModeCompose
		m.deleteTarget = ""
		m.deleteConfirm = false
		return m, nil
	}
	return m, nil
}

// =============================================================================
// ASYNC RESULTS
// =============================================================================

func (m Model) handleConversationsLoaded(msg ConversationsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.offline = true
		m.statusBar.Offline = true
		return m, components.ToastTickCmd()
	}
	m.offline = false
	m.statusBar.Offline = false

	if m.store.ActiveID() != "" {
		m.refreshViewport(false)
		return m, nil
	}
	convs := m.store.List()
	if len(convs) == 0 {
		return m, m.createCmd()
	}
	return m, m.openCmd(convs[0].ID)
}

func (m Model) handleExchangeDone(msg ExchangeDoneMsg) (tea.Model, tea.Cmd) {
	// Another conversation may still be streaming; only stop the spinner
	// when nothing is in flight anywhere.
	if !m.anyStreaming() {
		m.spinner.Stop()
	}

	if errors.Is(msg.Err, stream.ErrSessionActive) {
		m.toasts.Add(notify.Transient("A response is already in progress. Press esc to stop it."))
		return m, components.ToastTickCmd()
	}
	m.refreshViewport(msg.ConversationID == m.store.ActiveID())
	return m, nil
}

func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	// Transport settings take effect on restart; UI preferences apply live.
	if msg.Config.UI.Theme != m.cfg.UI.Theme {
		m.theme = styles.NewTheme(msg.Config.UI.Theme)
		m.theme.SetSize(m.width, m.height)
		m.sidebar = components.NewSidebar(m.theme)
		m.statusBar = components.NewStatusBar(m.theme)
		m.statusBar.SetWidth(m.width)
		m.spinner = components.NewThinkingSpinner(m.theme)
	}
	m.cfg = msg.Config
	m.statusBar.Streaming = m.cfg.Chat.StreamingEnabled
	m.statusBar.UseDocs = m.useDocsFor(m.store.ActiveID())
	m.refreshViewport(false)
	return m, nil
}

func (m *Model) anyStreaming() bool {
	for _, conv := range m.store.List() {
		if m.manager.Streaming(conv.ID) {
			return true
		}
	}
	return false
}
