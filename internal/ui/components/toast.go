// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// TOASTS
// =============================================================================

// Toast is a notice being displayed. Transient and warning toasts expire on
// their own; persistent toasts stay until dismissed.
type Toast struct {
	ID        int
	Notice    notify.Notice
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the toast should be removed.
func (t *Toast) IsExpired() bool {
	if t.Notice.Kind == notify.KindPersistent {
		return false
	}
	return time.Since(t.CreatedAt) > t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager tracks active toasts. Safe for concurrent use since notices
// arrive from the exchange goroutines.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
}

// NewToastManager creates an empty toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{}
}

// Add displays a notice. Duplicate text refreshes the existing toast instead
// of stacking a second copy.
func (m *ToastManager) Add(notice notify.Notice) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.toasts {
		if m.toasts[i].Notice == notice {
			m.toasts[i].CreatedAt = time.Now()
			return m.toasts[i].ID
		}
	}

	m.nextID++
	duration := 4 * time.Second
	if notice.Kind == notify.KindWarning {
		duration = 6 * time.Second
	}
	m.toasts = append(m.toasts, Toast{
		ID:        m.nextID,
		Notice:    notice,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
	return m.nextID
}

// Dismiss removes a toast by id.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.toasts {
		if m.toasts[i].ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// DismissAll clears every toast, including persistent ones.
func (m *ToastManager) DismissAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// Tick drops expired toasts and returns the survivors.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired() {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
	return append([]Toast(nil), m.toasts...)
}

// HasToasts reports whether anything is on screen.
func (m *ToastManager) HasToasts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts) > 0
}

// =============================================================================
// MESSAGES
// =============================================================================

// ToastTickMsg drives toast expiry.
type ToastTickMsg struct{}

// ToastTickCmd schedules the next expiry check.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return ToastTickMsg{}
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderToastStack renders active toasts, newest last.
func RenderToastStack(theme *styles.Theme, toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}

	maxWidth := width - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	var rendered []string
	for _, t := range toasts {
		var style lipgloss.Style
		var prefix string
		switch t.Notice.Kind {
		case notify.KindPersistent:
			style = theme.ToastPersistent
			prefix = styles.StatusIndicators.Error
		case notify.KindWarning:
			style = theme.ToastWarning
			prefix = styles.StatusIndicators.Warning
		default:
			style = theme.ToastTransient
			prefix = styles.StatusIndicators.Info
		}
		rendered = append(rendered, style.MaxWidth(maxWidth).Render(prefix+" "+t.Notice.Text))
	}
	return strings.Join(rendered, "\n")
}
