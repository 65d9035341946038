// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package actions

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyTitle: a rename to a blank title is rejected locally.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrPinLimit: pinning past the limit, detected locally before any
	// request is made.
	ErrPinLimit = errors.New("pin limit reached")

	// ErrAttachmentLimit: uploading past the per-conversation attachment
	// limit, detected locally.
	ErrAttachmentLimit = errors.New("attachment limit reached")

	// ErrNotFound: the target conversation is not in the store.
	ErrNotFound = errors.New("conversation not found")
)

// =============================================================================
// BACKEND SURFACE
// =============================================================================

// Backend is the slice of the transport client the coordinator depends on.
type Backend interface {
	ListConversations(ctx context.Context) ([]*model.Conversation, error)
	CreateConversation(ctx context.Context) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, id string, patch api.ConversationPatch) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ReorderPinned(ctx context.Context, ids []string) error
	ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error)
	ListAttachments(ctx context.Context, conversationID string) ([]*model.Attachment, error)
	UploadAttachment(ctx context.Context, conversationID, filename string, content io.Reader) (*model.Attachment, error)
	GetSettings(ctx context.Context) (*api.Settings, error)
	UpdateSettings(ctx context.Context, patch api.SettingsPatch) (*api.Settings, error)
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator performs conversation-level operations with optimistic local
// updates: capture a snapshot, apply the change locally, issue the request,
// then reconcile with the authoritative response or roll the snapshot back.
// Each failed operation surfaces exactly one notice.
type Coordinator struct {
	backend Backend
	store   *store.Store
	notify  notify.Func
	logger  *log.Logger
}

// NewCoordinator creates an action coordinator.
func NewCoordinator(backend Backend, s *store.Store, notifyFn notify.Func, logger *log.Logger) *Coordinator {
	if notifyFn == nil {
		notifyFn = notify.Discard
	}
	return &Coordinator{backend: backend, store: s, notify: notifyFn, logger: logger}
}

// =============================================================================
// LOADING
// =============================================================================

// Refresh reconciles the store against the server's conversation listing.
func (c *Coordinator) Refresh(ctx context.Context) error {
	convs, err := c.backend.ListConversations(ctx)
	if err != nil {
		c.logf("conversation refresh failed: %v", err)
		c.notify(c.failureNotice(err, "Could not load conversations."))
		return err
	}
	c.store.ReplaceSummaries(convs)
	return nil
}

// Open switches the active conversation and lazily loads its history and
// attachments on first open.
func (c *Coordinator) Open(ctx context.Context, id string) error {
	conv, ok := c.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	c.store.SetActive(id)

	if len(conv.Messages) > 0 {
		return nil
	}

	msgs, err := c.backend.ListMessages(ctx, id)
	if err != nil {
		c.logf("history load failed for %s: %v", id, err)
		c.notify(c.failureNotice(err, "Could not load the conversation history."))
		return err
	}
	atts, err := c.backend.ListAttachments(ctx, id)
	if err != nil {
		// History still renders without the attachment list.
		c.logf("attachment load failed for %s: %v", id, err)
		atts = nil
	}

	c.store.Apply(id, func(conv *model.Conversation) *model.Conversation {
		conv.Messages = msgs
		if atts != nil {
			conv.Attachments = atts
		}
		return conv
	})
	return nil
}

// Create makes a fresh conversation on the server and switches to it.
func (c *Coordinator) Create(ctx context.Context) (*model.Conversation, error) {
	conv, err := c.backend.CreateConversation(ctx)
	if err != nil {
		c.logf("conversation create failed: %v", err)
		c.notify(c.failureNotice(err, "Could not create a conversation."))
		return nil, err
	}
	c.store.Put(conv)
	c.store.SetActive(conv.ID)
	return conv, nil
}

// =============================================================================
// RENAME
// =============================================================================

// Rename sets a conversation title. The title is normalized to NFC and
// trimmed before anything else, so visually identical strings compare equal
// server-side.
func (c *Coordinator) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(norm.NFC.String(title))
	if title == "" {
		return ErrEmptyTitle
	}

	snapshot, ok := c.snapshot(id)
	if !ok {
		return ErrNotFound
	}

	c.store.Apply(id, func(conv *model.Conversation) *model.Conversation {
		conv.Title = title
		return conv
	})

	updated, err := c.backend.UpdateConversation(ctx, id, api.ConversationPatch{Title: &title})
	if err != nil {
		c.restore(id, snapshot)
		c.logf("rename failed for %s: %v", id, err)
		c.notify(c.failureNotice(err, "Could not rename the conversation."))
		return err
	}
	c.reconcileSummary(id, updated)
	return nil
}

// =============================================================================
// PINNING
// =============================================================================

// SetPinned pins or unpins a conversation. The pin limit is checked locally
// first; the server's own rejection is handled identically in case local
// state is stale.
func (c *Coordinator) SetPinned(ctx context.Context, id string, pinned bool) error {
	snapshot, ok := c.snapshot(id)
	if !ok {
		return ErrNotFound
	}

	if pinned && !snapshot.IsPinned && c.store.PinnedCount() >= model.MaxPinned {
		c.notify(notify.Transient(pinLimitText()))
		return ErrPinLimit
	}

	now := time.Now()
	c.store.Apply(id, func(conv *model.Conversation) *model.Conversation {
		conv.IsPinned = pinned
		if pinned {
			conv.PinnedAt = now
		} else {
			conv.PinnedOrder = nil
			conv.PinnedAt = time.Time{}
		}
		return conv
	})

	updated, err := c.backend.UpdateConversation(ctx, id, api.ConversationPatch{IsPinned: &pinned})
	if err != nil {
		c.restore(id, snapshot)
		c.logf("pin update failed for %s: %v", id, err)
		if pinned && api.IsPinLimit(err) {
			c.notify(notify.Transient(pinLimitText()))
		} else {
			c.notify(c.failureNotice(err, "Could not update the pin."))
		}
		return err
	}
	c.reconcileSummary(id, updated)
	return nil
}

// Reorder replaces the explicit order of pinned conversations. ids holds
// every pinned conversation id in the desired display order.
func (c *Coordinator) Reorder(ctx context.Context, ids []string) error {
	snapshots := make(map[string]*model.Conversation, len(ids))
	for _, id := range ids {
		if snap, ok := c.snapshot(id); ok {
			snapshots[id] = snap
		}
	}

	for i, id := range ids {
		order := i
		c.store.Apply(id, func(conv *model.Conversation) *model.Conversation {
			conv.PinnedOrder = &order
			return conv
		})
	}

	if err := c.backend.ReorderPinned(ctx, ids); err != nil {
		for id, snap := range snapshots {
			c.restore(id, snap)
		}
		c.logf("pinned reorder failed: %v", err)
		c.notify(c.failureNotice(err, "Could not reorder pinned conversations."))
		return err
	}
	return nil
}

func pinLimitText() string {
	return "You can pin up to 5 conversations. Unpin one first."
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a conversation. Confirmation is the view's responsibility;
// by the time this runs the user has already said yes. Unlike the other
// operations, deletion is not optimistic: the record leaves the store only
// after the server confirms. When the active conversation is deleted, the
// next one in display order becomes active, or a fresh conversation is
// created if none remain.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if _, ok := c.store.Get(id); !ok {
		return ErrNotFound
	}
	wasActive := c.store.ActiveID() == id

	if err := c.backend.DeleteConversation(ctx, id); err != nil {
		c.logf("delete failed for %s: %v", id, err)
		c.notify(c.failureNotice(err, "Could not delete the conversation."))
		return err
	}

	c.store.Remove(id)

	if !wasActive {
		return nil
	}
	if remaining := c.store.List(); len(remaining) > 0 {
		return c.Open(ctx, remaining[0].ID)
	}
	_, err := c.Create(ctx)
	return err
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Upload sends a file to the conversation's attachment set. Creation happens
// server-side, so there is no optimistic insert; the local record is appended
// on success.
func (c *Coordinator) Upload(ctx context.Context, id, filename string, content io.Reader) (*model.Attachment, error) {
	conv, ok := c.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if len(conv.Attachments) >= model.MaxAttachments {
		c.notify(notify.Transient(attachmentLimitText()))
		return nil, ErrAttachmentLimit
	}

	att, err := c.backend.UploadAttachment(ctx, id, filename, content)
	if err != nil {
		c.logf("upload failed for %s: %v", id, err)
		if api.IsAttachmentLimit(err) {
			c.notify(notify.Transient(attachmentLimitText()))
		} else {
			c.notify(c.failureNotice(err, "Could not upload the file."))
		}
		return nil, err
	}

	c.store.Apply(id, func(conv *model.Conversation) *model.Conversation {
		conv.Attachments = append([]*model.Attachment{att}, conv.Attachments...)
		conv.LastUpdatedAt = time.Now()
		return conv
	})
	return att, nil
}

func attachmentLimitText() string {
	return "You can attach up to 5 documents per conversation."
}

// =============================================================================
// SETTINGS
// =============================================================================

// UseDocsDefault returns the server-side default for the Use Documents
// toggle.
func (c *Coordinator) UseDocsDefault(ctx context.Context) (bool, error) {
	settings, err := c.backend.GetSettings(ctx)
	if err != nil {
		return false, err
	}
	return settings.UseDocsDefault, nil
}

// SetUseDocsDefault persists the Use Documents default server-side, so other
// clients start with the same toggle state.
func (c *Coordinator) SetUseDocsDefault(ctx context.Context, useDocs bool) error {
	_, err := c.backend.UpdateSettings(ctx, api.SettingsPatch{UseDocsDefault: &useDocs})
	if err != nil {
		c.logf("settings update failed: %v", err)
		c.notify(c.failureNotice(err, "Could not save the document setting."))
		return err
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// snapshot captures a deep copy for rollback.
func (c *Coordinator) snapshot(id string) (*model.Conversation, bool) {
	conv, ok := c.store.Get(id)
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// restore puts the pre-operation snapshot back. A no-op if the conversation
// was deleted in the meantime.
func (c *Coordinator) restore(id string, snapshot *model.Conversation) {
	c.store.Apply(id, func(*model.Conversation) *model.Conversation {
		return snapshot.Clone()
	})
}

// reconcileSummary folds the authoritative summary into the local record,
// keeping the already-loaded history and attachments the listing omits.
func (c *Coordinator) reconcileSummary(id string, summary *model.Conversation) {
	if summary == nil {
		return
	}
	c.store.Apply(id, func(conv *model.Conversation) *model.Conversation {
		conv.Title = summary.Title
		conv.IsPinned = summary.IsPinned
		conv.PinnedOrder = summary.PinnedOrder
		conv.PinnedAt = summary.PinnedAt
		conv.LastUpdatedAt = summary.LastUpdatedAt
		return conv
	})
}

func (c *Coordinator) failureNotice(err error, fallback string) notify.Notice {
	if api.IsUnreachable(err) {
		return notify.Persistent("Lost connection to the assistant. Check the server and retry.")
	}
	var clientErr *api.ClientError
	if errors.As(err, &clientErr) && clientErr.Type == api.ErrTypeStatus && clientErr.Message != "" {
		return notify.Transient(clientErr.Message)
	}
	return notify.Transient(fallback)
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
