// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the full conversation record, suitable for scripts and
// re-import.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

type jsonEnvelope struct {
	ExportedAt   time.Time           `json:"exported_at"`
	Conversation *model.Conversation `json:"conversation"`
}

// Export marshals the conversation with an export timestamp.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(jsonEnvelope{
		ExportedAt:   time.Now(),
		Conversation: conv,
	}, "", "  ")
}
