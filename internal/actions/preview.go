// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package actions

import (
	"context"
	"log"
	"strings"

	"github.com/jeranaias/docchat-tui/internal/cache"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// PreviewRunes caps the excerpt length shown for an attachment.
const PreviewRunes = 1200

// =============================================================================
// ATTACHMENT PREVIEWS
// =============================================================================

// PreviewFetcher is the content-download slice of the transport client.
type PreviewFetcher interface {
	FetchAttachmentContent(ctx context.Context, attachmentID string) ([]byte, error)
}

// Previewer serves attachment excerpts through a read-through cache, so
// showing the same document twice does not download it twice.
type Previewer struct {
	fetcher PreviewFetcher
	cache   *cache.PreviewCache
	logger  *log.Logger
}

// NewPreviewer creates a previewer. A nil cache disables caching; every
// preview then hits the server.
func NewPreviewer(fetcher PreviewFetcher, c *cache.PreviewCache, logger *log.Logger) *Previewer {
	return &Previewer{fetcher: fetcher, cache: c, logger: logger}
}

// Preview returns an excerpt of the attachment's content.
func (p *Previewer) Preview(ctx context.Context, att *model.Attachment) (string, error) {
	if p.cache != nil {
		if text, ok, err := p.cache.Get(ctx, att.ID); err == nil && ok {
			return text, nil
		} else if err != nil {
			p.logf("preview cache read failed for %s: %v", att.ID, err)
		}
	}

	content, err := p.fetcher.FetchAttachmentContent(ctx, att.ID)
	if err != nil {
		return "", err
	}
	text := excerpt(string(content))

	if p.cache != nil {
		if err := p.cache.Put(ctx, att.ID, att.Name, text); err != nil {
			p.logf("preview cache write failed for %s: %v", att.ID, err)
		}
	}
	return text, nil
}

// excerpt normalizes line endings and truncates to the preview length.
func excerpt(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	return util.TruncateRunes(text, PreviewRunes)
}

func (p *Previewer) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
