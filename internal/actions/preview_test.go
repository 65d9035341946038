// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package actions

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat-tui/internal/cache"
	"github.com/jeranaias/docchat-tui/internal/model"
)

type fakeFetcher struct {
	content []byte
	err     error
	calls   int
}

func (f *fakeFetcher) FetchAttachmentContent(ctx context.Context, attachmentID string) ([]byte, error) {
	f.calls++
	return f.content, f.err
}

func TestPreviewFetchesOnceThenServesFromCache(t *testing.T) {
	fetcher := &fakeFetcher{content: []byte("Quarterly results were strong.\r\nRevenue grew 12%.")}
	c, err := cache.Open(filepath.Join(t.TempDir(), "previews.db"), 10)
	require.NoError(t, err)
	defer c.Close()

	p := NewPreviewer(fetcher, c, nil)
	att := &model.Attachment{ID: "att-1", Name: "report.pdf"}

	first, err := p.Preview(context.Background(), att)
	require.NoError(t, err)
	assert.Contains(t, first, "Quarterly results")
	assert.NotContains(t, first, "\r", "line endings should be normalized")

	second, err := p.Preview(context.Background(), att)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls, "second preview must come from the cache")
}

func TestPreviewWorksWithoutCache(t *testing.T) {
	fetcher := &fakeFetcher{content: []byte("short note")}
	p := NewPreviewer(fetcher, nil, nil)

	got, err := p.Preview(context.Background(), &model.Attachment{ID: "att-1", Name: "note.txt"})
	require.NoError(t, err)
	assert.Equal(t, "short note", got)
	assert.Equal(t, 1, fetcher.calls)
}

func TestPreviewTruncatesLongContent(t *testing.T) {
	fetcher := &fakeFetcher{content: []byte(strings.Repeat("x", PreviewRunes*2))}
	p := NewPreviewer(fetcher, nil, nil)

	got, err := p.Preview(context.Background(), &model.Attachment{ID: "att-1", Name: "big.txt"})
	require.NoError(t, err)
	assert.Len(t, []rune(got), PreviewRunes)
	assert.True(t, strings.HasSuffix(got, "..."))
}
