// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER
// =============================================================================

// Spinner shows activity while the assistant is working. ASCII frames only,
// so it renders the same everywhere.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	isActive  bool
}

// NewThinkingSpinner creates the spinner shown while waiting for a reply.
func NewThinkingSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner

	return Spinner{
		spinner: s,
		message: "Thinking",
	}
}

// Start activates the spinner and resets its timer.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.isActive
}

// SetMessage changes the label next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.message = message
}

// Update advances the animation.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.isActive {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// View renders the spinner line with elapsed time.
func (s *Spinner) View(theme *styles.Theme) string {
	if !s.isActive {
		return ""
	}
	elapsed := time.Since(s.startTime).Round(time.Second)
	label := s.message + "... (" + elapsed.String() + ")"
	return s.spinner.View() + " " + theme.ThinkingText.Render(label)
}
