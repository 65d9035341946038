// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// MaxInputRunes caps the length of a single message.
const MaxInputRunes = 4000

// =============================================================================
// INPUT AREA
// =============================================================================

// InputArea is the message composition field with a character counter.
type InputArea struct {
	input textinput.Model
	theme *styles.Theme
	width int
}

// NewInputArea creates the input field.
func NewInputArea(theme *styles.Theme) InputArea {
	ti := textinput.New()
	ti.Placeholder = "Ask about your documents..."
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.TextStyle = theme.InputText
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.CharLimit = MaxInputRunes
	ti.Focus()

	return InputArea{input: ti, theme: theme, width: 80}
}

// SetWidth resizes the field.
func (a *InputArea) SetWidth(width int) {
	a.width = width
	a.input.Width = width - 8
}

// Value returns the current text.
func (a *InputArea) Value() string {
	return a.input.Value()
}

// Reset clears the field.
func (a *InputArea) Reset() {
	a.input.Reset()
}

// SetValue replaces the current text, for edit-and-resend.
func (a *InputArea) SetValue(value string) {
	a.input.SetValue(value)
	a.input.CursorEnd()
}

// Focus gives the field keyboard focus.
func (a *InputArea) Focus() tea.Cmd {
	return a.input.Focus()
}

// Blur removes keyboard focus.
func (a *InputArea) Blur() {
	a.input.Blur()
}

// Focused reports whether the field has focus.
func (a *InputArea) Focused() bool {
	return a.input.Focused()
}

// Update handles input events.
func (a *InputArea) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

// View renders the input line with its counter.
func (a *InputArea) View() string {
	count := len([]rune(a.input.Value()))
	counter := ""
	if count > MaxInputRunes*3/4 {
		counterStyle := a.theme.InputPlaceholder
		if count >= MaxInputRunes {
			counterStyle = a.theme.VerdictUnsupported
		}
		counter = counterStyle.Render(" " + strconv.Itoa(count) + "/" + strconv.Itoa(MaxInputRunes))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Bottom, a.input.View(), counter)
	return a.theme.InputContainer.Width(a.width).Render(line)
}
