// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/docchat-tui/internal/model"
)

func docs(v bool) *bool { return &v }

func sampleConversation() *model.Conversation {
	return &model.Conversation{
		ID:            "conv-1",
		Title:         "Budget questions",
		CreatedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		LastUpdatedAt: time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC),
		Attachments: []*model.Attachment{
			{ID: "att-1", Name: "budget.pdf", Kind: model.KindPDF},
		},
		Messages: []*model.Message{
			{
				ID: "1", Role: model.RoleUser,
				Content: "What was the Q3 marketing spend?",
				UseDocs: docs(true),
			},
			{
				ID: "2", Role: model.RoleAssistant,
				Content: "Q3 marketing spend was $1.2M.",
				Evidence: []model.Evidence{
					{Rank: 1, DocName: "budget.pdf", Page: 4, Text: "Marketing: 1,200,000"},
				},
				Meta: &model.Meta{Verdict: model.VerdictSupported, Confidence: 0.92},
			},
		},
	}
}

func TestMarkdownTranscript(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"# Budget questions",
		"budget.pdf",
		"## You",
		"## Assistant",
		"Supported by documents (92%)",
		"budget.pdf, p. 4",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownSuppressesUnsupportedEvidence(t *testing.T) {
	conv := sampleConversation()
	conv.Messages[1].Meta.Verdict = model.VerdictUnsupported

	out, err := NewMarkdownExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Contains(string(out), "### Sources") {
		t.Error("evidence should not appear for an unsupported answer")
	}
}

func TestJSONRoundTrips(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleConversation())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var envelope struct {
		Conversation *model.Conversation `json:"conversation"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Conversation.Title != "Budget questions" {
		t.Errorf("title = %q", envelope.Conversation.Title)
	}
	if len(envelope.Conversation.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(envelope.Conversation.Messages))
	}
}

func TestExportToFileWritesTimestampedName(t *testing.T) {
	dir := t.TempDir()
	path, err := Markdown(sampleConversation(), &Options{OutputDir: dir, IncludeMetadata: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, ".md") {
		t.Errorf("unexpected path %q", path)
	}
	if !strings.Contains(path, "Budget_questions") {
		t.Errorf("filename should carry the sanitized title: %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Budget questions", "Budget_questions"},
		{"a/b:c*d", "a-b-c-d"},
		{"", "conversation"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
