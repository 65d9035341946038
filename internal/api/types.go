// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ConversationPatch carries partial conversation updates. Nil fields are
// omitted from the request body.
type ConversationPatch struct {
	Title    *string `json:"title,omitempty"`
	IsPinned *bool   `json:"is_pinned,omitempty"`
}

// SendRequest is the body for both the streaming and non-streaming send.
type SendRequest struct {
	Content string `json:"content"`
	UseDocs bool   `json:"use_docs"`
}

// PinnedOrderRequest reorders pinned conversations.
type PinnedOrderRequest struct {
	IDs []string `json:"ids"`
}

// SettingsPatch carries partial settings updates.
type SettingsPatch struct {
	Theme          *string `json:"theme,omitempty"`
	UseDocsDefault *bool   `json:"use_docs_default,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SendResponse is the non-streaming send result: the newly created messages
// (user echo plus assistant reply) and an optional warning.
type SendResponse struct {
	Messages []*model.Message `json:"messages"`
	Warning  string           `json:"warning,omitempty"`
}

// Settings holds the server-side user preferences.
type Settings struct {
	Theme          string `json:"theme"`
	UseDocsDefault bool   `json:"use_docs_default"`
}

// errorBody is the JSON error envelope the backend uses for rejections.
// Either field may carry the human-readable message.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// =============================================================================
// STREAM EVENT PAYLOADS
// =============================================================================

// Event names produced by the streaming send endpoint.
const (
	EventStatus  = "message.status"
	EventDelta   = "message.delta"
	EventFinal   = "message.final"
	EventError   = "error"
	EventDefault = "message"
)

// DeltaPayload is the body of a message.delta event.
type DeltaPayload struct {
	Delta string `json:"delta"`
}

// FinalPayload is the body of a message.final event: the authoritative
// assistant message with citations and metadata, plus an optional warning.
type FinalPayload struct {
	Message *model.Message `json:"message"`
	Warning string         `json:"warning,omitempty"`
}

// ErrorPayload is the body of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}
