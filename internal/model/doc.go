// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the client-side data model: conversations, messages,
// attachments, evidence excerpts, and the display ordering policy.
//
// The conversation store (internal/store) owns all values of these types that
// the view layer renders. Records are treated as immutable snapshots; every
// change goes through the store's atomic replace primitive with a transform
// that derives the next record from the latest one.
//
// # Key Types
//
//   - Conversation: identity, pinning metadata, messages, attachments
//   - Message: server or pending placeholder ID, role, content, evidence
//   - Attachment: uploaded document with a type tag and content reference
//   - Evidence: ranked excerpt (document, page, text) supporting an answer
//
// # Ordering
//
// SortConversations implements the sidebar ordering: pinned conversations by
// explicit order then pin time, unpinned by recency. The comparator is total,
// so re-sorting sorted input is a no-op.
package model
