// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a conversation as a readable Markdown transcript.
type MarkdownExporter struct {
	opts *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{opts: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// Export renders the transcript.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", conv.DisplayTitle())

	if e.opts.IncludeMetadata {
		e.writeMetadata(&b, conv)
	}

	for _, msg := range conv.Messages {
		e.writeMessage(&b, msg)
	}

	return []byte(b.String()), nil
}

func (e *MarkdownExporter) writeMetadata(b *strings.Builder, conv *model.Conversation) {
	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(b, "- Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if !conv.LastUpdatedAt.IsZero() {
		fmt.Fprintf(b, "- Updated: %s\n", conv.LastUpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if len(conv.Attachments) > 0 {
		names := make([]string, len(conv.Attachments))
		for i, att := range conv.Attachments {
			names[i] = att.Name
		}
		fmt.Fprintf(b, "- Documents: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n---\n\n")
}

func (e *MarkdownExporter) writeMessage(b *strings.Builder, msg *model.Message) {
	switch msg.Role {
	case model.RoleUser:
		header := "## You"
		if msg.UseDocs != nil && !*msg.UseDocs {
			header += " *(without documents)*"
		}
		fmt.Fprintf(b, "%s\n\n%s\n\n", header, msg.Content)

	case model.RoleAssistant:
		header := "## Assistant"
		if msg.Meta != nil && msg.Meta.AnswerMode == "direct" {
			header += " *(answered without documents)*"
		}
		fmt.Fprintf(b, "%s\n\n%s\n\n", header, msg.Content)
		e.writeVerdict(b, msg)
		e.writeEvidence(b, msg)
		if msg.Meta != nil && msg.Meta.Warning != "" {
			fmt.Fprintf(b, "> Warning: %s\n\n", msg.Meta.Warning)
		}
	}
}

func (e *MarkdownExporter) writeVerdict(b *strings.Builder, msg *model.Message) {
	if msg.Meta == nil || msg.Meta.Verdict == "" {
		return
	}
	var label string
	switch msg.Meta.Verdict {
	case model.VerdictSupported:
		label = "Supported by documents"
	case model.VerdictPartial:
		label = "Partially supported"
	case model.VerdictUnsupported:
		label = "Not supported by documents"
	default:
		return
	}
	if msg.Meta.Confidence > 0 {
		label += fmt.Sprintf(" (%.0f%%)", msg.Meta.Confidence*100)
	}
	fmt.Fprintf(b, "**%s**\n\n", label)
}

func (e *MarkdownExporter) writeEvidence(b *strings.Builder, msg *model.Message) {
	if !msg.ShowEvidence() {
		return
	}
	b.WriteString("### Sources\n\n")
	for _, ev := range msg.Evidence {
		source := ev.DocName
		if ev.Page > 0 {
			source += fmt.Sprintf(", p. %d", ev.Page)
		}
		fmt.Fprintf(b, "%d. **%s**: %s\n", ev.Rank, source, strings.ReplaceAll(ev.Text, "\n", " "))
	}
	b.WriteString("\n")
}
