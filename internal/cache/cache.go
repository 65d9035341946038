// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache stores attachment preview text locally so reopening a
// document does not refetch its content from the backend.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS previews (
	attachment_id TEXT PRIMARY KEY,
	doc_name      TEXT NOT NULL,
	preview       TEXT NOT NULL,
	fetched_at    INTEGER NOT NULL,
	accessed_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_previews_accessed ON previews(accessed_at);
`

// =============================================================================
// PREVIEW CACHE
// =============================================================================

// PreviewCache is a SQLite-backed cache of attachment preview text, evicted
// least-recently-used once it exceeds its entry limit.
type PreviewCache struct {
	db         *sql.DB
	maxEntries int
}

// Open opens (creating if needed) the preview cache at path.
func Open(path string, maxEntries int) (*PreviewCache, error) {
	if maxEntries <= 0 {
		maxEntries = 500
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PreviewCache{db: db, maxEntries: maxEntries}, nil
}

// Close closes the underlying database.
func (c *PreviewCache) Close() error {
	return c.db.Close()
}

// Get returns the cached preview for an attachment and bumps its recency.
func (c *PreviewCache) Get(ctx context.Context, attachmentID string) (string, bool, error) {
	var preview string
	err := c.db.QueryRowContext(ctx,
		"SELECT preview FROM previews WHERE attachment_id = ?", attachmentID).Scan(&preview)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache read failed: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"UPDATE previews SET accessed_at = ? WHERE attachment_id = ?",
		time.Now().UnixMilli(), attachmentID)
	if err != nil {
		return "", false, fmt.Errorf("cache touch failed: %w", err)
	}
	return preview, true, nil
}

// Put stores a preview, then evicts the least recently used entries beyond
// the limit.
func (c *PreviewCache) Put(ctx context.Context, attachmentID, docName, preview string) error {
	now := time.Now().UnixMilli()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO previews (attachment_id, doc_name, preview, fetched_at, accessed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(attachment_id) DO UPDATE SET
			doc_name = excluded.doc_name,
			preview = excluded.preview,
			fetched_at = excluded.fetched_at,
			accessed_at = excluded.accessed_at`,
		attachmentID, docName, preview, now, now)
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return c.evict(ctx)
}

// Delete removes a single attachment's preview.
func (c *PreviewCache) Delete(ctx context.Context, attachmentID string) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM previews WHERE attachment_id = ?", attachmentID)
	if err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Purge removes all cached previews.
func (c *PreviewCache) Purge(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM previews")
	if err != nil {
		return fmt.Errorf("cache purge failed: %w", err)
	}
	return nil
}

// Len returns the number of cached previews.
func (c *PreviewCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM previews").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count failed: %w", err)
	}
	return n, nil
}

func (c *PreviewCache) evict(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM previews WHERE attachment_id IN (
			SELECT attachment_id FROM previews
			ORDER BY accessed_at DESC
			LIMIT -1 OFFSET ?
		)`, c.maxEntries)
	if err != nil {
		return fmt.Errorf("cache eviction failed: %w", err)
	}
	return nil
}
