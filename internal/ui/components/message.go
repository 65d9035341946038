// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders a single conversation turn.
type MessageBubble struct {
	msg          *model.Message
	theme        *styles.Theme
	width        int
	showEvidence bool
}

// NewMessageBubble creates a bubble for a message.
func NewMessageBubble(msg *model.Message, theme *styles.Theme) *MessageBubble {
	return &MessageBubble{
		msg:          msg,
		theme:        theme,
		width:        80,
		showEvidence: true,
	}
}

// SetWidth sets the available render width.
func (b *MessageBubble) SetWidth(width int) {
	b.width = width
}

// SetShowEvidence toggles evidence rendering for this bubble.
func (b *MessageBubble) SetShowEvidence(show bool) {
	b.showEvidence = show
}

// View renders the message.
func (b *MessageBubble) View() string {
	if b.msg.Role == model.RoleUser {
		return b.renderUser()
	}
	return b.renderAssistant()
}

// ==========================================================================
// USER MESSAGES
// ==========================================================================

func (b *MessageBubble) renderUser() string {
	bubbleWidth := b.width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = b.width
	}

	header := b.theme.MessageMeta.Render("You")
	if b.msg.UseDocs != nil && !*b.msg.UseDocs {
		header += b.theme.MessageMeta.Render(" (without documents)")
	}

	bubble := b.theme.UserBubble.MaxWidth(bubbleWidth).Render(b.msg.Content)
	block := header + "\n" + bubble

	// User messages sit on the right edge.
	return lipgloss.NewStyle().
		Width(b.width).
		Align(lipgloss.Right).
		Render(block)
}

// ==========================================================================
// ASSISTANT MESSAGES
// ==========================================================================

func (b *MessageBubble) renderAssistant() string {
	bubbleWidth := b.width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = b.width
	}

	header := b.theme.MessageMeta.Render("Assistant")
	if b.msg.Meta != nil && b.msg.Meta.AnswerMode == "direct" {
		header += b.theme.MessageMeta.Render(" (answered without documents)")
	}

	content := ParseCodeBlocks(b.msg.Content, bubbleWidth-4)
	if b.msg.IsStreaming {
		content += " █"
	}

	parts := []string{header, b.theme.AssistantBubble.MaxWidth(bubbleWidth).Render(content)}

	if verdict := b.renderVerdict(); verdict != "" {
		parts = append(parts, verdict)
	}
	if b.showEvidence && b.msg.ShowEvidence() {
		parts = append(parts, b.renderEvidence(bubbleWidth))
	}
	if b.msg.Meta != nil && b.msg.Meta.Warning != "" {
		parts = append(parts, styles.RenderWarning(b.msg.Meta.Warning))
	}

	return strings.Join(parts, "\n")
}

func (b *MessageBubble) renderVerdict() string {
	if b.msg.Meta == nil || b.msg.Meta.Verdict == "" {
		return ""
	}

	var style lipgloss.Style
	var label string
	switch b.msg.Meta.Verdict {
	case model.VerdictSupported:
		style = b.theme.VerdictSupported
		label = "Supported by documents"
	case model.VerdictPartial:
		style = b.theme.VerdictPartial
		label = "Partially supported"
	case model.VerdictUnsupported:
		style = b.theme.VerdictUnsupported
		label = "Not supported by documents"
	default:
		return ""
	}

	if b.msg.Meta.Confidence > 0 {
		label += " (" + strconv.FormatFloat(b.msg.Meta.Confidence*100, 'f', 0, 64) + "%)"
	}
	return style.Render(label)
}

// renderEvidence renders the ranked supporting excerpts under an answer.
func (b *MessageBubble) renderEvidence(width int) string {
	var lines []string
	lines = append(lines, b.theme.EvidenceHeader.Render("Sources"))

	for _, ev := range b.msg.Evidence {
		source := ev.DocName
		if ev.Page > 0 {
			source += ", p. " + strconv.Itoa(ev.Page)
		}
		ref := "[" + strconv.Itoa(ev.Rank) + "] "
		lines = append(lines, b.theme.EvidenceSource.Render(ref+source))

		text := ev.Text
		if len([]rune(text)) > 200 {
			text = string([]rune(text)[:197]) + "..."
		}
		lines = append(lines, b.theme.EvidenceText.MaxWidth(width-6).Render(text))
	}

	return b.theme.EvidenceBox.Render(strings.Join(lines, "\n"))
}
