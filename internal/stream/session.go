// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream orchestrates one streaming exchange per conversation.
package stream

import (
	"context"
	"strings"
	"sync"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the lifecycle phase of a streaming exchange.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFinalized
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the transient state of one in-flight exchange: the accumulated
// partial content, the cancellation handle, and the stop flag. Sessions are
// keyed by conversation id and live only for the duration of the exchange.
type Session struct {
	conversationID string

	mu      sync.Mutex
	content strings.Builder
	state   State
	stopped bool

	cancel context.CancelFunc
}

func newSession(conversationID string, cancel context.CancelFunc) *Session {
	return &Session{
		conversationID: conversationID,
		state:          StateSending,
		cancel:         cancel,
	}
}

// ConversationID returns the conversation this session belongs to.
func (s *Session) ConversationID() string {
	return s.conversationID
}

// Append adds a delta to the accumulated content, in arrival order.
// Deltas arriving after a stop request are dropped.
func (s *Session) Append(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.content.WriteString(delta)
	s.state = StateStreaming
}

// MarkStreaming records that the stream connection is open. A status event
// never touches accumulated content, so a duplicate status cannot reset
// progress already received.
func (s *Session) MarkStreaming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSending {
		s.state = StateStreaming
	}
}

// Content returns the accumulated partial content.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String()
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestStop flags the session as stopped and aborts the underlying
// network operation. Idempotent.
func (s *Session) RequestStop() {
	s.mu.Lock()
	already := s.stopped
	s.stopped = true
	s.mu.Unlock()

	if !already && s.cancel != nil {
		s.cancel()
	}
}

// StopRequested reports whether an explicit stop was requested.
func (s *Session) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// finish records the terminal state and releases the cancellation handle.
func (s *Session) finish(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry tracks the active session per conversation. Access is
// centralized here so per-conversation concurrency stays in one place
// instead of ambient maps scattered through the UI.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Claim registers the session for its conversation if no session is active.
// Returns false when another exchange is already in flight; the caller must
// treat that as a rejection, never interleave two sessions' deltas.
func (r *Registry) Claim(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[sess.conversationID]; exists {
		return false
	}
	r.sessions[sess.conversationID] = sess
	return true
}

// Get returns the active session for a conversation, or nil.
func (r *Registry) Get(conversationID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[conversationID]
}

// Remove discards the session for a conversation.
func (r *Registry) Remove(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, conversationID)
}

// Active reports whether a session is in flight for the conversation.
func (r *Registry) Active(conversationID string) bool {
	return r.Get(conversationID) != nil
}
