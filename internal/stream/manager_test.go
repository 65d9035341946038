// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/store"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu sync.Mutex

	openStream func(ctx context.Context) (*api.StreamReader, error)

	listResult []*model.Message
	listErr    error
	listCalls  int

	sendResult *api.SendResponse
	sendErr    error
	sendCalls  int
}

func (f *fakeBackend) ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.listResult, f.listErr
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID, content string, useDocs bool) (*api.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendResult == nil && f.sendErr == nil {
		// Mirror the real client's contract: a nil error always comes
		// with a non-nil response.
		return &api.SendResponse{}, nil
	}
	return f.sendResult, f.sendErr
}

func (f *fakeBackend) OpenMessageStream(ctx context.Context, conversationID, content string, useDocs bool) (*api.StreamReader, error) {
	return f.openStream(ctx)
}

func (f *fakeBackend) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func sseEvent(name, data string) string {
	return "event: " + name + "\ndata: " + data + "\n\n"
}

func staticStream(events ...string) func(ctx context.Context) (*api.StreamReader, error) {
	body := strings.Join(events, "")
	return func(ctx context.Context) (*api.StreamReader, error) {
		return api.NewStreamReader(io.NopCloser(strings.NewReader(body))), nil
	}
}

// scriptedBody feeds chunks pushed by the test and unblocks on context
// cancellation, the way an HTTP response body does when its request dies.
type scriptedBody struct {
	ctx    context.Context
	chunks chan string
	buf    []byte
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.buf) == 0 {
		select {
		case s, ok := <-b.chunks:
			if !ok {
				return 0, io.EOF
			}
			b.buf = []byte(s)
		case <-b.ctx.Done():
			return 0, b.ctx.Err()
		}
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

func (b *scriptedBody) Close() error { return nil }

// failingBody delivers its content and then dies with a transport error
// instead of a clean EOF.
type failingBody struct {
	r io.Reader
}

func (b *failingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset by peer")
	}
	return n, err
}

func (b *failingBody) Close() error { return nil }

// =============================================================================
// HELPERS
// =============================================================================

type noticeLog struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (l *noticeLog) record(n notify.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) all() []notify.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]notify.Notice(nil), l.notices...)
}

func newTestStore(convID string) *store.Store {
	s := store.New()
	now := time.Now()
	s.Put(&model.Conversation{ID: convID, CreatedAt: now, LastUpdatedAt: now})
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// =============================================================================
// TESTS
// =============================================================================

func TestSendRejectsEmptyMessage(t *testing.T) {
	m := NewManager(Config{Backend: &fakeBackend{}, Store: newTestStore("c1"), StreamingEnabled: true})
	if err := m.Send(context.Background(), "c1", "   \n\t ", true); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestStreamingAccumulatesDeltasInOrder(t *testing.T) {
	serverList := []*model.Message{
		{ID: "srv-u1", Role: model.RoleUser, Content: "greet"},
		{ID: "srv-a1", Role: model.RoleAssistant, Content: "Hello, world"},
	}
	backend := &fakeBackend{
		openStream: staticStream(
			sseEvent(api.EventStatus, `{"status":"connected"}`),
			sseEvent(api.EventDelta, `{"delta":"Hel"}`),
			sseEvent(api.EventDelta, `{"delta":"lo, "}`),
			sseEvent(api.EventDelta, `{"delta":"world"}`),
			sseEvent(api.EventFinal, `{"message":{"id":"srv-a1","role":"assistant","content":"Hello, world"}}`),
		),
		listResult: serverList,
	}

	var (
		mu       sync.Mutex
		partials []string
	)
	m := NewManager(Config{Backend: backend, Store: newTestStore("c1"), StreamingEnabled: true})
	m.onUpdate = func(conversationID string) {
		content, ok := m.PartialContent(conversationID)
		if !ok || content == "" {
			return
		}
		mu.Lock()
		if len(partials) == 0 || partials[len(partials)-1] != content {
			partials = append(partials, content)
		}
		mu.Unlock()
	}

	if err := m.Send(context.Background(), "c1", "greet", true); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"Hel", "Hello, ", "Hello, world"}
	if len(partials) != len(want) {
		t.Fatalf("partials = %q, want %q", partials, want)
	}
	for i := range want {
		if partials[i] != want[i] {
			t.Errorf("partial[%d] = %q, want %q", i, partials[i], want[i])
		}
	}

	conv, _ := m.store.Get("c1")
	if got := len(conv.Messages); got != 2 {
		t.Fatalf("message count after reload = %d, want 2", got)
	}
	if conv.Messages[1].Content != "Hello, world" {
		t.Errorf("assistant content = %q", conv.Messages[1].Content)
	}
	if m.Streaming("c1") {
		t.Error("session must be discarded after finalize")
	}
}

func TestSecondSendRejectedWhileSessionActive(t *testing.T) {
	chunks := make(chan string, 4)
	backend := &fakeBackend{
		openStream: func(ctx context.Context) (*api.StreamReader, error) {
			return api.NewStreamReader(&scriptedBody{ctx: ctx, chunks: chunks}), nil
		},
	}
	m := NewManager(Config{Backend: backend, Store: newTestStore("c1"), StreamingEnabled: true})

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "c1", "first", true) }()
	waitFor(t, "session claim", func() bool { return m.Streaming("c1") })

	if err := m.Send(context.Background(), "c1", "second", true); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	close(chunks)
	<-done
}

func TestStopCommitsPartialWithoutRecovery(t *testing.T) {
	chunks := make(chan string, 4)
	backend := &fakeBackend{
		openStream: func(ctx context.Context) (*api.StreamReader, error) {
			return api.NewStreamReader(&scriptedBody{ctx: ctx, chunks: chunks}), nil
		},
	}
	s := newTestStore("c1")
	m := NewManager(Config{Backend: backend, Store: s, StreamingEnabled: true})

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "c1", "question", true) }()

	chunks <- sseEvent(api.EventDelta, `{"delta":"Par"}`)
	chunks <- sseEvent(api.EventDelta, `{"delta":"tial"}`)
	waitFor(t, "partial content", func() bool {
		content, _ := m.PartialContent("c1")
		return content == "Partial"
	})

	m.Stop("c1")
	if err := <-done; err != nil {
		t.Fatalf("send returned error after stop: %v", err)
	}

	conv, _ := s.Get("c1")
	last := conv.LastMessage()
	if last == nil || last.Role != model.RoleAssistant || last.Content != "Partial" {
		t.Fatalf("partial not committed, last = %+v", last)
	}
	if calls := backend.sends(); calls != 0 {
		t.Errorf("cancellation must not trigger the fallback send, got %d calls", calls)
	}
	backend.mu.Lock()
	listCalls := backend.listCalls
	backend.mu.Unlock()
	if listCalls != 0 {
		t.Errorf("cancellation must not trigger a recovery reload, got %d calls", listCalls)
	}
}

func TestStreamFailureFallsBackToBlockingSend(t *testing.T) {
	backend := &fakeBackend{
		openStream: func(ctx context.Context) (*api.StreamReader, error) {
			body := sseEvent(api.EventDelta, `{"delta":"half an ans"}`)
			return api.NewStreamReader(&failingBody{r: strings.NewReader(body)}), nil
		},
		// Reload shows only the user message: the reply never landed.
		listResult: []*model.Message{{ID: "srv-u1", Role: model.RoleUser, Content: "question"}},
		sendResult: &api.SendResponse{},
	}
	s := newTestStore("c1")
	m := NewManager(Config{Backend: backend, Store: s, StreamingEnabled: true})

	if err := m.Send(context.Background(), "c1", "question", true); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if calls := backend.sends(); calls != 1 {
		t.Fatalf("fallback send calls = %d, want 1", calls)
	}
	if m.Streaming("c1") {
		t.Error("failed session must be discarded")
	}
}

func TestStreamFailureSkipsFallbackWhenReplyLanded(t *testing.T) {
	backend := &fakeBackend{
		openStream: func(ctx context.Context) (*api.StreamReader, error) {
			// The stream dies right after the server persisted the reply.
			body := sseEvent(api.EventDelta, `{"delta":"Done"}`)
			return api.NewStreamReader(&failingBody{r: strings.NewReader(body)}), nil
		},
		listResult: []*model.Message{
			{ID: "srv-u1", Role: model.RoleUser, Content: "question"},
			{ID: "srv-a1", Role: model.RoleAssistant, Content: "Done"},
		},
	}
	s := newTestStore("c1")
	m := NewManager(Config{Backend: backend, Store: s, StreamingEnabled: true})

	if err := m.Send(context.Background(), "c1", "question", true); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if calls := backend.sends(); calls != 0 {
		t.Errorf("no fallback expected when the reload shows the reply, got %d calls", calls)
	}

	conv, _ := s.Get("c1")
	last := conv.LastMessage()
	if last == nil || last.Content != "Done" {
		t.Fatalf("reload did not reconcile, last = %+v", last)
	}
}

func TestStreamErrorEventSurfacesNotice(t *testing.T) {
	backend := &fakeBackend{
		openStream: staticStream(
			sseEvent(api.EventError, `{"message":"the index is rebuilding"}`),
		),
		listResult: []*model.Message{{ID: "srv-u1", Role: model.RoleUser}},
		sendErr:    &api.ClientError{Type: api.ErrTypeStatus, Status: 503, Message: "the index is rebuilding"},
	}
	log := &noticeLog{}
	m := NewManager(Config{Backend: backend, Store: newTestStore("c1"), StreamingEnabled: true, Notify: log.record})

	if err := m.Send(context.Background(), "c1", "question", true); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	notices := log.all()
	if len(notices) != 1 {
		t.Fatalf("notices = %+v, want exactly one", notices)
	}
	if !strings.Contains(notices[0].Text, "index is rebuilding") {
		t.Errorf("notice text = %q", notices[0].Text)
	}
}

func TestRecoveryReloadFailureSurfacesPersistentNotice(t *testing.T) {
	backend := &fakeBackend{
		openStream: func(ctx context.Context) (*api.StreamReader, error) {
			return nil, &api.ClientError{Type: api.ErrTypeConnection, Message: "connection refused", Cause: api.ErrUnreachable}
		},
		listErr: &api.ClientError{Type: api.ErrTypeConnection, Message: "connection refused", Cause: api.ErrUnreachable},
	}
	log := &noticeLog{}
	s := newTestStore("c1")
	m := NewManager(Config{Backend: backend, Store: s, StreamingEnabled: true, Notify: log.record})

	if err := m.Send(context.Background(), "c1", "question", true); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	notices := log.all()
	if len(notices) != 1 || notices[0].Kind != notify.KindPersistent {
		t.Fatalf("expected one persistent notice, got %+v", notices)
	}

	// The optimistic user message stays recoverable in local state.
	conv, _ := s.Get("c1")
	if len(conv.Messages) != 1 || conv.Messages[0].Role != model.RoleUser {
		t.Fatalf("optimistic message lost, messages = %+v", conv.Messages)
	}
	if calls := backend.sends(); calls != 0 {
		t.Errorf("fallback must be skipped when the reload itself fails, got %d calls", calls)
	}
}

func TestBlockingExchangeReloadsAuthoritativeList(t *testing.T) {
	serverList := []*model.Message{
		{ID: "srv-u1", Role: model.RoleUser, Content: "question"},
		{ID: "srv-a1", Role: model.RoleAssistant, Content: "answer"},
	}
	backend := &fakeBackend{
		sendResult: &api.SendResponse{Messages: serverList, Warning: "answered without documents"},
		listResult: serverList,
	}
	log := &noticeLog{}
	s := newTestStore("c1")
	m := NewManager(Config{Backend: backend, Store: s, StreamingEnabled: false, Notify: log.record})

	if err := m.Send(context.Background(), "c1", "question", false); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	conv, _ := s.Get("c1")
	if len(conv.Messages) != 2 || conv.Messages[0].ID != "srv-u1" {
		t.Fatalf("pending placeholder not superseded, messages = %+v", conv.Messages)
	}
	notices := log.all()
	if len(notices) != 1 || notices[0].Kind != notify.KindWarning {
		t.Fatalf("expected the warning notice, got %+v", notices)
	}
}

func TestLateEventsForDeletedConversationAreHarmless(t *testing.T) {
	release := make(chan string, 1)
	backend := &fakeBackend{
		openStream: func(ctx context.Context) (*api.StreamReader, error) {
			return api.NewStreamReader(&scriptedBody{ctx: ctx, chunks: release}), nil
		},
		listResult: []*model.Message{{ID: "srv-a1", Role: model.RoleAssistant, Content: "late"}},
	}
	s := newTestStore("c1")
	m := NewManager(Config{Backend: backend, Store: s, StreamingEnabled: true})

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "c1", "question", true) }()
	waitFor(t, "session claim", func() bool { return m.Streaming("c1") })

	// User deletes the conversation mid-flight.
	s.Remove("c1")

	release <- sseEvent(api.EventDelta, `{"delta":"late"}`) +
		sseEvent(api.EventFinal, `{"message":{"id":"srv-a1","role":"assistant","content":"late"}}`)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	if _, ok := s.Get("c1"); ok {
		t.Fatal("late finalize must not resurrect a deleted conversation")
	}
	if s.Len() != 0 {
		t.Fatalf("store should be empty, has %d conversations", s.Len())
	}
}
