// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// MaxPinned is the maximum number of simultaneously pinned conversations.
// The limit is enforced by the backend; the client handles the rejection.
const MaxPinned = 5

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history, attachments,
// and pinning metadata.
//
// Conversation values are treated as immutable snapshots by the store: every
// mutation replaces the whole record via a transform of the latest snapshot.
type Conversation struct {
	// Identity
	ID    string `json:"id"`
	Title string `json:"title"`

	// Pinning
	IsPinned bool `json:"is_pinned"`
	// PinnedOrder defines display order among pinned conversations; lower
	// sorts first. Nil when the server has not assigned an order.
	PinnedOrder *int      `json:"pinned_order,omitempty"`
	PinnedAt    time.Time `json:"pinned_at,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// Messages in conversation order.
	Messages []*Message `json:"messages"`

	// Attachments, most recent first.
	Attachments []*Attachment `json:"attachments"`
}

// =============================================================================
// MESSAGE ACCESS
// =============================================================================

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// AssistantCount returns the number of assistant messages. The stream
// session manager compares counts before and after a failed exchange to
// decide whether the fallback send is needed.
func (c *Conversation) AssistantCount() int {
	n := 0
	for _, msg := range c.Messages {
		if msg.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// MessageByID returns a message by its ID, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// DisplayTitle returns the title or a default for untitled conversations.
func (c *Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "Untitled"
}

// Preview returns a short preview from the first user message.
func (c *Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Preview(80)
		}
	}
	return "Empty conversation"
}

// =============================================================================
// COPYING
// =============================================================================

// Clone creates a deep copy of the conversation. Store transforms operate on
// clones so a half-applied transform can never leak into the shared snapshot.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	if c.PinnedOrder != nil {
		v := *c.PinnedOrder
		clone.PinnedOrder = &v
	}
	clone.Messages = make([]*Message, len(c.Messages))
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	clone.Attachments = make([]*Attachment, len(c.Attachments))
	for i, att := range c.Attachments {
		a := *att
		clone.Attachments[i] = &a
	}
	return &clone
}

// WithMessages returns a copy of the conversation with the message list
// replaced. Used when the authoritative list is reloaded from the server.
func (c *Conversation) WithMessages(msgs []*Message) *Conversation {
	clone := c.Clone()
	clone.Messages = msgs
	return clone
}
