// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package actions

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/store"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	updateResult *model.Conversation
	updateErr    error
	updateCalls  int
	lastPatch    api.ConversationPatch

	createResult *model.Conversation
	createErr    error

	deleteErr   error
	deleteCalls int
	onDelete    func()

	reorderErr  error
	reorderIDs  []string
	reorderCall int

	listResult []*model.Conversation
	listErr    error

	messagesResult []*model.Message
	messagesErr    error

	attachmentsResult []*model.Attachment

	uploadResult *model.Attachment
	uploadErr    error
	uploadCalls  int

	settingsResult    *api.Settings
	settingsErr       error
	settingsCalls     int
	lastSettingsPatch api.SettingsPatch
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	return f.listResult, f.listErr
}

func (f *fakeBackend) CreateConversation(ctx context.Context) (*model.Conversation, error) {
	return f.createResult, f.createErr
}

func (f *fakeBackend) UpdateConversation(ctx context.Context, id string, patch api.ConversationPatch) (*model.Conversation, error) {
	f.updateCalls++
	f.lastPatch = patch
	return f.updateResult, f.updateErr
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, id string) error {
	f.deleteCalls++
	if f.onDelete != nil {
		f.onDelete()
	}
	return f.deleteErr
}

func (f *fakeBackend) ReorderPinned(ctx context.Context, ids []string) error {
	f.reorderCall++
	f.reorderIDs = ids
	return f.reorderErr
}

func (f *fakeBackend) ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	return f.messagesResult, f.messagesErr
}

func (f *fakeBackend) ListAttachments(ctx context.Context, conversationID string) ([]*model.Attachment, error) {
	return f.attachmentsResult, nil
}

func (f *fakeBackend) UploadAttachment(ctx context.Context, conversationID, filename string, content io.Reader) (*model.Attachment, error) {
	f.uploadCalls++
	return f.uploadResult, f.uploadErr
}

func (f *fakeBackend) GetSettings(ctx context.Context) (*api.Settings, error) {
	return f.settingsResult, f.settingsErr
}

func (f *fakeBackend) UpdateSettings(ctx context.Context, patch api.SettingsPatch) (*api.Settings, error) {
	f.settingsCalls++
	f.lastSettingsPatch = patch
	return f.settingsResult, f.settingsErr
}

type noticeLog struct {
	notices []notify.Notice
}

func (l *noticeLog) record(n notify.Notice) {
	l.notices = append(l.notices, n)
}

func rejection(status int, message string) error {
	return &api.ClientError{Type: api.ErrTypeStatus, Status: status, Message: message}
}

func newConv(id, title string) *model.Conversation {
	now := time.Now()
	return &model.Conversation{ID: id, Title: title, CreatedAt: now, LastUpdatedAt: now}
}

func setup(convs ...*model.Conversation) (*fakeBackend, *store.Store, *noticeLog, *Coordinator) {
	backend := &fakeBackend{}
	s := store.New()
	for _, conv := range convs {
		s.Put(conv)
	}
	log := &noticeLog{}
	return backend, s, log, NewCoordinator(backend, s, log.record, nil)
}

// =============================================================================
// RENAME
// =============================================================================

func TestRenameNormalizesTitleToNFC(t *testing.T) {
	backend, s, _, coord := setup(newConv("a", "Old"))
	backend.updateResult = newConv("a", "Café notes")

	// Decomposed input: e followed by a combining acute accent.
	err := coord.Rename(context.Background(), "a", "Café notes")
	require.NoError(t, err)

	assert.Equal(t, "Café notes", *backend.lastPatch.Title)
	conv, _ := s.Get("a")
	assert.Equal(t, "Café notes", conv.Title)
}

func TestRenameRejectsEmptyTitle(t *testing.T) {
	backend, _, _, coord := setup(newConv("a", "Old"))

	err := coord.Rename(context.Background(), "a", "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
	assert.Zero(t, backend.updateCalls)
}

func TestRenameRollsBackOnRejection(t *testing.T) {
	backend, s, log, coord := setup(newConv("a", "Old"))
	backend.updateErr = rejection(422, "title contains unsupported characters")

	err := coord.Rename(context.Background(), "a", "New")
	require.Error(t, err)

	conv, _ := s.Get("a")
	assert.Equal(t, "Old", conv.Title, "rejected rename must roll back")
	require.Len(t, log.notices, 1, "exactly one notice per failed operation")
	assert.Equal(t, "title contains unsupported characters", log.notices[0].Text)
}

func TestRenamePreservesLoadedMessages(t *testing.T) {
	conv := newConv("a", "Old")
	conv.Messages = []*model.Message{{ID: "m1", Role: model.RoleUser}}
	backend, s, _, coord := setup(conv)
	backend.updateResult = newConv("a", "New")

	require.NoError(t, coord.Rename(context.Background(), "a", "New"))

	got, _ := s.Get("a")
	assert.Equal(t, "New", got.Title)
	assert.Len(t, got.Messages, 1, "summary reconcile must not drop history")
}

// =============================================================================
// PINNING
// =============================================================================

func TestPinLimitCheckedLocally(t *testing.T) {
	convs := make([]*model.Conversation, 0, model.MaxPinned+1)
	for i := 0; i < model.MaxPinned; i++ {
		conv := newConv("pin-"+strconv.Itoa(i), "")
		conv.IsPinned = true
		convs = append(convs, conv)
	}
	convs = append(convs, newConv("extra", ""))
	backend, s, log, coord := setup(convs...)

	err := coord.SetPinned(context.Background(), "extra", true)
	assert.ErrorIs(t, err, ErrPinLimit)
	assert.Zero(t, backend.updateCalls, "no request when the limit is known locally")
	require.Len(t, log.notices, 1)

	conv, _ := s.Get("extra")
	assert.False(t, conv.IsPinned)
}

func TestPinRollsBackOnServerRejection(t *testing.T) {
	backend, s, log, coord := setup(newConv("a", ""))
	backend.updateErr = rejection(400, "pin limit reached")

	err := coord.SetPinned(context.Background(), "a", true)
	require.Error(t, err)

	conv, _ := s.Get("a")
	assert.False(t, conv.IsPinned, "rejected pin must roll back")
	require.Len(t, log.notices, 1)
	assert.Contains(t, log.notices[0].Text, "pin up to 5")
}

func TestUnpinClearsExplicitOrder(t *testing.T) {
	conv := newConv("a", "")
	conv.IsPinned = true
	order := 2
	conv.PinnedOrder = &order
	conv.PinnedAt = time.Now()
	backend, s, _, coord := setup(conv)
	backend.updateResult = newConv("a", "")

	require.NoError(t, coord.SetPinned(context.Background(), "a", false))

	got, _ := s.Get("a")
	assert.False(t, got.IsPinned)
	assert.Nil(t, got.PinnedOrder)
}

func TestReorderAssignsSequentialOrder(t *testing.T) {
	a, b := newConv("a", ""), newConv("b", "")
	a.IsPinned, b.IsPinned = true, true
	backend, s, _, coord := setup(a, b)

	require.NoError(t, coord.Reorder(context.Background(), []string{"b", "a"}))

	assert.Equal(t, []string{"b", "a"}, backend.reorderIDs)
	gotA, _ := s.Get("a")
	gotB, _ := s.Get("b")
	require.NotNil(t, gotB.PinnedOrder)
	require.NotNil(t, gotA.PinnedOrder)
	assert.Equal(t, 0, *gotB.PinnedOrder)
	assert.Equal(t, 1, *gotA.PinnedOrder)
}

func TestReorderRollsBackAllOnFailure(t *testing.T) {
	a, b := newConv("a", ""), newConv("b", "")
	a.IsPinned, b.IsPinned = true, true
	orderA := 0
	a.PinnedOrder = &orderA
	backend, s, log, coord := setup(a, b)
	backend.reorderErr = rejection(409, "pinned set changed")

	err := coord.Reorder(context.Background(), []string{"b", "a"})
	require.Error(t, err)

	gotA, _ := s.Get("a")
	gotB, _ := s.Get("b")
	require.NotNil(t, gotA.PinnedOrder)
	assert.Equal(t, 0, *gotA.PinnedOrder, "original order must be restored")
	assert.Nil(t, gotB.PinnedOrder)
	assert.Len(t, log.notices, 1)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteSwitchesToNextConversation(t *testing.T) {
	recent := newConv("recent", "")
	older := newConv("older", "")
	older.LastUpdatedAt = time.Now().Add(-time.Hour)
	backend, s, _, coord := setup(recent, older)
	backend.messagesResult = []*model.Message{{ID: "m1", Role: model.RoleUser}}
	s.SetActive("recent")

	require.NoError(t, coord.Delete(context.Background(), "recent"))

	_, ok := s.Get("recent")
	assert.False(t, ok)
	assert.Equal(t, "older", s.ActiveID(), "next conversation in display order becomes active")
}

func TestDeleteLastConversationCreatesFresh(t *testing.T) {
	backend, s, _, coord := setup(newConv("only", ""))
	backend.createResult = newConv("fresh", "")
	s.SetActive("only")

	require.NoError(t, coord.Delete(context.Background(), "only"))

	assert.Equal(t, "fresh", s.ActiveID())
	_, ok := s.Get("fresh")
	assert.True(t, ok)
}

func TestDeleteWaitsForServerConfirmation(t *testing.T) {
	backend, s, _, coord := setup(newConv("a", ""))
	var presentDuringRequest bool
	backend.onDelete = func() {
		_, presentDuringRequest = s.Get("a")
	}

	require.NoError(t, coord.Delete(context.Background(), "a"))

	assert.True(t, presentDuringRequest, "record must stay until the server confirms")
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestDeleteFailureKeepsConversation(t *testing.T) {
	backend, s, log, coord := setup(newConv("a", "Kept"))
	backend.deleteErr = rejection(500, "")
	s.SetActive("a")

	err := coord.Delete(context.Background(), "a")
	require.Error(t, err)

	conv, ok := s.Get("a")
	require.True(t, ok, "refused delete must leave the record in place")
	assert.Equal(t, "Kept", conv.Title)
	assert.Equal(t, "a", s.ActiveID())
	assert.Len(t, log.notices, 1)
}

func TestDeleteInactiveKeepsActive(t *testing.T) {
	backend, s, _, coord := setup(newConv("a", ""), newConv("b", ""))
	s.SetActive("a")
	_ = backend

	require.NoError(t, coord.Delete(context.Background(), "b"))
	assert.Equal(t, "a", s.ActiveID())
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func TestUploadRejectsAtLimit(t *testing.T) {
	conv := newConv("a", "")
	for i := 0; i < model.MaxAttachments; i++ {
		conv.Attachments = append(conv.Attachments, &model.Attachment{ID: strconv.Itoa(i)})
	}
	backend, _, log, coord := setup(conv)

	_, err := coord.Upload(context.Background(), "a", "extra.pdf", nil)
	assert.ErrorIs(t, err, ErrAttachmentLimit)
	assert.Zero(t, backend.uploadCalls)
	require.Len(t, log.notices, 1)
	assert.Contains(t, log.notices[0].Text, "up to 5 documents")
}

func TestUploadPrependsNewAttachment(t *testing.T) {
	conv := newConv("a", "")
	conv.Attachments = []*model.Attachment{{ID: "old"}}
	backend, s, _, coord := setup(conv)
	backend.uploadResult = &model.Attachment{ID: "new", Name: "report.pdf", Kind: model.KindPDF}

	att, err := coord.Upload(context.Background(), "a", "report.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "new", att.ID)

	got, _ := s.Get("a")
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "new", got.Attachments[0].ID, "most recent first")
}

// =============================================================================
// LOADING
// =============================================================================

func TestOpenLoadsHistoryOnce(t *testing.T) {
	backend, s, _, coord := setup(newConv("a", ""))
	backend.messagesResult = []*model.Message{{ID: "m1", Role: model.RoleUser}}
	backend.attachmentsResult = []*model.Attachment{{ID: "att1"}}

	require.NoError(t, coord.Open(context.Background(), "a"))

	conv, _ := s.Get("a")
	assert.Len(t, conv.Messages, 1)
	assert.Len(t, conv.Attachments, 1)
	assert.Equal(t, "a", s.ActiveID())

	// Second open must not refetch.
	backend.messagesErr = rejection(500, "")
	require.NoError(t, coord.Open(context.Background(), "a"))
}

func TestRefreshFailureSurfacesNotice(t *testing.T) {
	backend, _, log, coord := setup()
	backend.listErr = &api.ClientError{Type: api.ErrTypeConnection, Message: "connection refused"}

	err := coord.Refresh(context.Background())
	require.Error(t, err)
	require.Len(t, log.notices, 1)
	assert.Equal(t, notify.KindPersistent, log.notices[0].Kind)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestUseDocsDefaultReadsServerSettings(t *testing.T) {
	backend, _, _, coord := setup()
	backend.settingsResult = &api.Settings{Theme: "dark", UseDocsDefault: false}

	useDocs, err := coord.UseDocsDefault(context.Background())
	require.NoError(t, err)
	assert.False(t, useDocs)
}

func TestSetUseDocsDefaultPatchesServer(t *testing.T) {
	backend, _, log, coord := setup()
	backend.settingsResult = &api.Settings{UseDocsDefault: false}

	require.NoError(t, coord.SetUseDocsDefault(context.Background(), false))
	assert.Equal(t, 1, backend.settingsCalls)
	require.NotNil(t, backend.lastSettingsPatch.UseDocsDefault)
	assert.False(t, *backend.lastSettingsPatch.UseDocsDefault)
	assert.Empty(t, log.notices)
}

func TestSetUseDocsDefaultFailureSurfacesNotice(t *testing.T) {
	backend, _, log, coord := setup()
	backend.settingsErr = rejection(500, "settings store unavailable")

	err := coord.SetUseDocsDefault(context.Background(), true)
	require.Error(t, err)
	require.Len(t, log.notices, 1)
	assert.Contains(t, log.notices[0].Text, "settings store unavailable")
}
