// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to files. Markdown keeps the
// evidence and verdicts readable; JSON keeps the full records for tooling.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a conversation to a target format.
type Exporter interface {
	Export(conv *model.Conversation) ([]byte, error)
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds a header with timestamps and attachment names.
	IncludeMetadata bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes the conversation in the exporter's format and returns
// the output path. The filename carries the conversation title and a
// timestamp so repeated exports never collide.
func ExportToFile(conv *model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s%s",
		sanitizeFilename(conv.DisplayTitle()),
		timestamp,
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// Markdown exports a conversation to a Markdown file.
func Markdown(conv *model.Conversation, opts *Options) (string, error) {
	return ExportToFile(conv, NewMarkdownExporter(opts), opts)
}

// JSON exports a conversation to a JSON file.
func JSON(conv *model.Conversation, opts *Options) (string, error) {
	return ExportToFile(conv, NewJSONExporter(), opts)
}

// =============================================================================
// HELPERS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames on
// either Windows or Unix.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out = append(out, '-')
		case ' ', '\t', '\n', '\r':
			out = append(out, '_')
		default:
			if r < 32 || r == 127 {
				out = append(out, '-')
			} else {
				out = append(out, r)
			}
		}
	}

	if len(out) == 0 {
		return "conversation"
	}
	return string(out)
}
