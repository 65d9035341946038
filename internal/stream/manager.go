// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage: a send with no content after trimming is rejected
	// before anything is mutated.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSessionActive: an exchange is already in flight for the
	// conversation. The send is rejected rather than interleaved.
	ErrSessionActive = errors.New("a response is already in progress for this conversation")
)

// =============================================================================
// BACKEND SURFACE
// =============================================================================

// Backend is the slice of the transport client the manager depends on.
// *api.Client satisfies it; tests substitute a fake.
type Backend interface {
	ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error)
	SendMessage(ctx context.Context, conversationID, content string, useDocs bool) (*api.SendResponse, error)
	OpenMessageStream(ctx context.Context, conversationID, content string, useDocs bool) (*api.StreamReader, error)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager drives one request/response lifecycle per conversation: optimistic
// user-message insert, event-stream consumption, cancellation, fallback to
// the non-streaming path on stream failure, and reconciliation of final
// state against the store.
type Manager struct {
	backend  Backend
	store    *store.Store
	registry *Registry

	// streamingEnabled gates the streaming path; when false every send
	// uses the non-streaming exchange.
	streamingEnabled bool

	notify   notify.Func
	onUpdate func(conversationID string)
	logger   *log.Logger
}

// Config holds manager construction options.
type Config struct {
	Backend          Backend
	Store            *store.Store
	StreamingEnabled bool

	// Notify receives user-facing notices. Optional.
	Notify notify.Func

	// OnUpdate is called after every store-visible change for a
	// conversation, so the view can re-render. Optional.
	OnUpdate func(conversationID string)

	// Logger receives diagnostic detail. Optional.
	Logger *log.Logger
}

// NewManager creates a stream session manager.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		backend:          cfg.Backend,
		store:            cfg.Store,
		registry:         NewRegistry(),
		streamingEnabled: cfg.StreamingEnabled,
		notify:           cfg.Notify,
		onUpdate:         cfg.OnUpdate,
		logger:           cfg.Logger,
	}
	if m.notify == nil {
		m.notify = notify.Discard
	}
	return m
}

// Registry exposes the session registry for view-layer queries.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Streaming reports whether an exchange is in flight for the conversation.
func (m *Manager) Streaming(conversationID string) bool {
	return m.registry.Active(conversationID)
}

// PartialContent returns the live partial content for a conversation's
// in-flight exchange.
func (m *Manager) PartialContent(conversationID string) (string, bool) {
	sess := m.registry.Get(conversationID)
	if sess == nil {
		return "", false
	}
	return sess.Content(), true
}

// Stop requests cancellation of the conversation's in-flight exchange.
// Partial content is committed, not discarded; no failure recovery runs.
func (m *Manager) Stop(conversationID string) {
	if sess := m.registry.Get(conversationID); sess != nil {
		sess.RequestStop()
	}
}

// =============================================================================
// SEND
// =============================================================================

// Send performs a full exchange for the conversation. It blocks until the
// exchange reaches a terminal state, so callers run it from their own
// goroutine (a tea.Cmd in the TUI). All store mutations are keyed by
// conversationID as captured here, so a response arriving after the user
// switched or deleted the conversation can never touch another one.
func (m *Manager) Send(ctx context.Context, conversationID, text string, useDocs bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	sessCtx, cancel := context.WithCancel(ctx)
	sess := newSession(conversationID, cancel)
	if !m.registry.Claim(sess) {
		cancel()
		return ErrSessionActive
	}
	defer m.registry.Remove(conversationID)

	// Optimistic insert: the user message appears immediately with a
	// pending id; the authoritative reload supersedes it later.
	userMsg := model.NewUserMessage(text, useDocs)
	m.store.Apply(conversationID, func(c *model.Conversation) *model.Conversation {
		c.Messages = append(c.Messages, userMsg)
		c.LastUpdatedAt = time.Now()
		return c
	})
	m.update(conversationID)

	// Snapshot the assistant count before the exchange; the failure path
	// compares against it to decide whether the fallback send is needed.
	preCount := 0
	if conv, ok := m.store.Get(conversationID); ok {
		preCount = conv.AssistantCount()
	}

	if !m.streamingEnabled {
		return m.exchangeBlocking(ctx, sess, conversationID, text, useDocs)
	}
	return m.exchangeStreaming(ctx, sessCtx, sess, conversationID, text, useDocs, preCount)
}

// =============================================================================
// STREAMING EXCHANGE
// =============================================================================

func (m *Manager) exchangeStreaming(ctx, sessCtx context.Context, sess *Session, conversationID, text string, useDocs bool, preCount int) error {
	reader, err := m.backend.OpenMessageStream(sessCtx, conversationID, text, useDocs)
	if err != nil {
		if sess.StopRequested() || api.IsCanceled(err) {
			m.finishAborted(sess, conversationID)
			return nil
		}
		m.logf("stream open failed for %s: %v", conversationID, err)
		sess.finish(StateFailed)
		m.recover(ctx, conversationID, text, useDocs, preCount, err)
		return nil
	}

	var (
		final     *api.FinalPayload
		streamErr error
	)

	err = reader.Process(sessCtx, func(ev api.Event) {
		// Events arriving after a stop are dropped wholesale.
		if sess.StopRequested() {
			return
		}
		switch ev.Name {
		case api.EventStatus:
			sess.MarkStreaming()
		case api.EventDelta:
			var payload api.DeltaPayload
			if decodeErr := ev.Decode(&payload); decodeErr != nil {
				m.logf("bad delta payload for %s: %v", conversationID, decodeErr)
				return
			}
			sess.Append(payload.Delta)
			m.update(conversationID)
		case api.EventFinal:
			var payload api.FinalPayload
			if decodeErr := ev.Decode(&payload); decodeErr != nil {
				streamErr = decodeErr
				return
			}
			final = &payload
		case api.EventError:
			var payload api.ErrorPayload
			if decodeErr := ev.Decode(&payload); decodeErr == nil && payload.Message != "" {
				streamErr = &api.ClientError{Type: api.ErrTypeStatus, Message: payload.Message}
			} else {
				streamErr = &api.ClientError{Type: api.ErrTypeStatus, Message: "the assistant reported an error"}
			}
		}
	})

	switch {
	case sess.StopRequested() || (err != nil && api.IsCanceled(err)):
		m.finishAborted(sess, conversationID)
		return nil

	case err != nil || streamErr != nil || final == nil:
		// Transport error, explicit error event, or the stream ended
		// without a final event.
		cause := streamErr
		if cause == nil {
			cause = err
		}
		if cause == nil {
			cause = &api.ClientError{Type: api.ErrTypeInvalidResponse, Message: "the response stream ended unexpectedly"}
		}
		m.logf("stream failed for %s: %v", conversationID, cause)
		sess.finish(StateFailed)
		m.recover(ctx, conversationID, text, useDocs, preCount, cause)
		return nil

	default:
		m.finishFinalized(ctx, sess, conversationID, final)
		return nil
	}
}

// finishFinalized commits the authoritative assistant message, surfaces the
// warning, and reloads the message list to match server-side ordering and
// ids.
func (m *Manager) finishFinalized(ctx context.Context, sess *Session, conversationID string, final *api.FinalPayload) {
	if final.Message != nil {
		m.store.Apply(conversationID, func(c *model.Conversation) *model.Conversation {
			c.Messages = append(c.Messages, final.Message)
			c.LastUpdatedAt = time.Now()
			return c
		})
	}
	if final.Warning != "" {
		m.notify(notify.Warning(final.Warning))
	}
	sess.finish(StateFinalized)
	m.update(conversationID)

	m.reloadMessages(ctx, conversationID)
}

// finishAborted commits non-empty partial content as a final assistant
// message. Cancellation is user intent, not a failure: no reload, no
// fallback.
func (m *Manager) finishAborted(sess *Session, conversationID string) {
	if partial := sess.Content(); partial != "" {
		committed := model.NewAssistantMessage(partial)
		m.store.Apply(conversationID, func(c *model.Conversation) *model.Conversation {
			c.Messages = append(c.Messages, committed)
			c.LastUpdatedAt = time.Now()
			return c
		})
	}
	sess.finish(StateAborted)
	m.update(conversationID)
}

// =============================================================================
// FAILURE RECOVERY
// =============================================================================

// recover runs the reload-then-fallback sequence: fetch the authoritative
// message list, and if it shows no assistant reply beyond what existed
// before the send, retry once through the non-streaming path. The user's
// message is never silently dropped; at worst it remains without a reply,
// recoverable by resend.
func (m *Manager) recover(ctx context.Context, conversationID, text string, useDocs bool, preCount int, cause error) {
	msgs, err := m.backend.ListMessages(ctx, conversationID)
	if err != nil {
		// Can't even reload: the server is gone. Surface a persistent
		// notice and leave local state intact.
		m.logf("recovery reload failed for %s: %v", conversationID, err)
		m.notify(notify.Persistent("Lost connection to the assistant. Check the server and retry."))
		return
	}
	m.applyMessages(conversationID, msgs)

	count := 0
	for _, msg := range msgs {
		if msg.Role == model.RoleAssistant {
			count++
		}
	}
	if count > preCount {
		// The reply actually landed server-side; the reload already
		// reconciled it. Nothing further to do.
		return
	}

	resp, err := m.backend.SendMessage(ctx, conversationID, text, useDocs)
	if err != nil {
		m.logf("fallback send failed for %s: %v", conversationID, err)
		m.notify(m.failureNotice(cause))
		return
	}
	if resp.Warning != "" {
		m.notify(notify.Warning(resp.Warning))
	}
	m.reloadMessages(ctx, conversationID)
}

// failureNotice maps a failure to the short human-readable notice.
func (m *Manager) failureNotice(err error) notify.Notice {
	if api.IsUnreachable(err) {
		return notify.Persistent("Lost connection to the assistant. Check the server and retry.")
	}
	var clientErr *api.ClientError
	if errors.As(err, &clientErr) && clientErr.Message != "" {
		return notify.Transient(clientErr.Message)
	}
	return notify.Transient("The assistant could not complete the response. Try resending.")
}

// =============================================================================
// NON-STREAMING EXCHANGE
// =============================================================================

// exchangeBlocking is the send-and-wait path, used when streaming is
// disabled by configuration.
func (m *Manager) exchangeBlocking(ctx context.Context, sess *Session, conversationID, text string, useDocs bool) error {
	resp, err := m.backend.SendMessage(ctx, conversationID, text, useDocs)
	if err != nil {
		if sess.StopRequested() || api.IsCanceled(err) {
			sess.finish(StateAborted)
			m.update(conversationID)
			return nil
		}
		m.logf("send failed for %s: %v", conversationID, err)
		sess.finish(StateFailed)
		m.notify(m.failureNotice(err))
		return nil
	}

	if resp.Warning != "" {
		m.notify(notify.Warning(resp.Warning))
	}
	sess.finish(StateFinalized)
	// The server response replaces the full list, superseding the
	// optimistic placeholder.
	m.reloadMessages(ctx, conversationID)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// reloadMessages replaces the conversation's message list with the
// authoritative server list.
func (m *Manager) reloadMessages(ctx context.Context, conversationID string) {
	msgs, err := m.backend.ListMessages(ctx, conversationID)
	if err != nil {
		m.logf("message reload failed for %s: %v", conversationID, err)
		return
	}
	m.applyMessages(conversationID, msgs)
}

func (m *Manager) applyMessages(conversationID string, msgs []*model.Message) {
	m.store.Apply(conversationID, func(c *model.Conversation) *model.Conversation {
		c.Messages = msgs
		return c
	})
	m.update(conversationID)
}

func (m *Manager) update(conversationID string) {
	if m.onUpdate != nil {
		m.onUpdate(conversationID)
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
