// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders assistant answers on a TTY. Nil when initialization
// failed; callers fall back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	width := TerminalWidth()
	if width > 100 {
		width = 100
	}
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, returning the input
// unchanged when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	out, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// =============================================================================
// ANSWER PRESENTATION
// =============================================================================

// printAnswerMeta prints the verdict, evidence, and warning lines that follow
// an assistant answer.
func printAnswerMeta(msg *model.Message) {
	if msg.Meta == nil {
		return
	}

	switch msg.Meta.Verdict {
	case model.VerdictSupported:
		label := "Supported by documents"
		if msg.Meta.Confidence > 0 {
			label += " (" + strconv.FormatFloat(msg.Meta.Confidence*100, 'f', 0, 64) + "%)"
		}
		fmt.Println(commandStyle.Render("[" + label + "]"))
	case model.VerdictPartial:
		fmt.Println(warningStyle.Render("[Partially supported]"))
	case model.VerdictUnsupported:
		fmt.Println(errorStyle.Render("[Not supported by documents]"))
	}

	if msg.ShowEvidence() && len(msg.Evidence) > 0 {
		fmt.Println(headerStyle.Render("Sources"))
		for _, ev := range msg.Evidence {
			source := ev.DocName
			if ev.Page > 0 {
				source += ", p. " + strconv.Itoa(ev.Page)
			}
			fmt.Printf("  [%d] %s\n", ev.Rank, infoStyle.Render(source))
		}
	}

	if msg.Meta.Warning != "" {
		fmt.Println(warningStyle.Render("[Warning] " + msg.Meta.Warning))
	}
}
