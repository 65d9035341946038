// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// PendingIDPrefix marks client-generated message IDs that have not been
// confirmed by the server. A message carrying such an ID is superseded once
// the authoritative message list is reloaded.
const PendingIDPrefix = "pending-"

// Message is a single turn in a conversation.
//
// Content is mutable only while IsStreaming is true; once a message is
// finalized it is treated as immutable by every component.
type Message struct {
	// Identity: server-assigned, or a pending placeholder.
	ID string `json:"id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// IsStreaming marks an assistant message whose content is still being
	// accumulated from the event stream.
	IsStreaming bool `json:"is_streaming,omitempty"`

	// UseDocs records whether document retrieval was requested for this turn.
	UseDocs *bool `json:"use_docs,omitempty"`

	// Evidence holds the ranked excerpts supporting an assistant answer.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Meta holds answer-mode and verification details for assistant messages.
	Meta *Meta `json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Evidence is a ranked excerpt supporting a generated answer.
type Evidence struct {
	Rank         int    `json:"rank"`
	AttachmentID string `json:"attachment_id"`
	DocName      string `json:"doc_name"`
	Page         int    `json:"page,omitempty"`
	Text         string `json:"text"`
	SourceRef    int    `json:"source_ref,omitempty"`
}

// Verification verdicts reported by the backend.
const (
	VerdictSupported   = "SUPPORTED"
	VerdictPartial     = "PARTIAL"
	VerdictUnsupported = "UNSUPPORTED"
)

// Meta holds assistant answer metadata.
type Meta struct {
	// AnswerMode is "rag" or "direct".
	AnswerMode string `json:"answer_mode,omitempty"`

	// Verdict is the verifier's support verdict.
	Verdict string `json:"verdict,omitempty"`

	Confidence float64 `json:"confidence,omitempty"`

	// Warning is surfaced to the user when non-empty.
	Warning string `json:"warning,omitempty"`
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewUserMessage creates an optimistic user message with a pending ID.
func NewUserMessage(content string, useDocs bool) *Message {
	return &Message{
		ID:        PendingIDPrefix + uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		UseDocs:   &useDocs,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates a finalized assistant message. Used when
// committing stopped partial content; server-confirmed messages arrive
// through the transport layer instead.
func NewAssistantMessage(content string) *Message {
	return &Message{
		ID:        PendingIDPrefix + uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// IsPending reports whether the message ID is a client-generated placeholder.
func (m *Message) IsPending() bool {
	return strings.HasPrefix(m.ID, PendingIDPrefix)
}

// ShowEvidence reports whether the message's evidence should be rendered.
// Evidence is suppressed when the verifier marked the answer unsupported.
func (m *Message) ShowEvidence() bool {
	if len(m.Evidence) == 0 {
		return false
	}
	if m.Meta != nil && m.Meta.Verdict == VerdictUnsupported {
		return false
	}
	return true
}

// Preview returns the first maxRunes characters of the content with newlines
// collapsed, for display in conversation lists.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// Clone returns a copy of the message. Evidence is copied so mutating the
// clone never aliases the original slice.
func (m *Message) Clone() *Message {
	clone := *m
	if m.UseDocs != nil {
		v := *m.UseDocs
		clone.UseDocs = &v
	}
	if m.Meta != nil {
		meta := *m.Meta
		clone.Meta = &meta
	}
	if len(m.Evidence) > 0 {
		clone.Evidence = make([]Evidence, len(m.Evidence))
		copy(clone.Evidence, m.Evidence)
	}
	return &clone
}
