// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// ATTACHMENT KIND
// =============================================================================

// AttachmentKind is the document type tag for an uploaded file.
type AttachmentKind string

const (
	KindPDF  AttachmentKind = "pdf"
	KindTxt  AttachmentKind = "txt"
	KindDoc  AttachmentKind = "doc"
	KindDocx AttachmentKind = "docx"
)

// KindFromName derives the attachment kind from a file name.
// Unrecognized extensions fall back to KindDoc.
func KindFromName(name string) AttachmentKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "pdf":
		return KindPDF
	case "txt":
		return KindTxt
	case "docx":
		return KindDocx
	default:
		return KindDoc
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is an uploaded document associated with a conversation.
// Attachments are immutable once created; they are only added or removed.
type Attachment struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Kind AttachmentKind `json:"kind"`

	// ContentRef is the stable URL path used to fetch the attachment body
	// for previewing.
	ContentRef string `json:"content_ref"`

	CreatedAt time.Time `json:"created_at"`
}

// MaxAttachments is the per-conversation document limit enforced by the
// backend; the client surfaces the corresponding rejection.
const MaxAttachments = 5
