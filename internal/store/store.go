// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Transform derives the next state of a conversation from the current one.
// It receives a private clone of the latest snapshot and may mutate it
// freely; returning nil leaves the conversation unchanged.
//
// Transforms must derive everything from the argument, never from state
// captured before Apply was called, so back-to-back mutations to the same
// conversation each see the other's effect.
type Transform func(*model.Conversation) *model.Conversation

// Store is the single source of truth for conversations, messages, and
// attachments. All mutation goes through the atomic replace primitive; the
// records handed out by readers are frozen snapshots that are never edited
// in place.
type Store struct {
	mu     sync.RWMutex
	convs  map[string]*model.Conversation
	active string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		convs: make(map[string]*model.Conversation),
	}
}

// =============================================================================
// READ ACCESS
// =============================================================================

// List returns all conversations in display order. The returned records are
// shared snapshots and must not be modified.
func (s *Store) List() []*model.Conversation {
	s.mu.RLock()
	convs := make([]*model.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, c)
	}
	s.mu.RUnlock()

	model.SortConversations(convs)
	return convs
}

// Get returns the conversation snapshot for id.
func (s *Store) Get(id string) (*model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	return c, ok
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// PinnedCount returns how many conversations are currently pinned.
func (s *Store) PinnedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.convs {
		if c.IsPinned {
			n++
		}
	}
	return n
}

// =============================================================================
// ACTIVE CONVERSATION
// =============================================================================

// ActiveID returns the id of the conversation currently displayed.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive switches the displayed conversation.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

// Active returns the displayed conversation snapshot, or nil.
func (s *Store) Active() *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convs[s.active]
}

// =============================================================================
// MUTATION
// =============================================================================

// Apply atomically replaces the conversation with the transform's output.
// The transform runs under the store lock on a clone of the latest snapshot,
// so no two mutations interleave and a mutation keyed to a deleted
// conversation is a harmless no-op. Returns false when the conversation does
// not exist or the transform declined.
func (s *Store) Apply(id string, transform Transform) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.convs[id]
	if !ok {
		return false
	}
	next := transform(current.Clone())
	if next == nil {
		return false
	}
	s.convs[id] = next
	return true
}

// Put inserts or replaces a conversation record wholesale. Used for creates
// and for authoritative server responses.
func (s *Store) Put(conv *model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv
}

// Remove deletes a conversation. The active id is cleared if it pointed at
// the removed conversation; selecting a replacement is the caller's job.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	if s.active == id {
		s.active = ""
	}
}

// ReplaceSummaries reconciles the store against an authoritative listing.
// Summary fields are replaced; messages and attachments already loaded for a
// surviving conversation are carried over, since listings do not include
// them. Conversations absent from the listing are dropped.
func (s *Store) ReplaceSummaries(convs []*model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*model.Conversation, len(convs))
	for _, conv := range convs {
		record := conv
		if existing, ok := s.convs[conv.ID]; ok && len(conv.Messages) == 0 {
			record = conv.Clone()
			record.Messages = existing.Messages
			record.Attachments = existing.Attachments
		}
		next[record.ID] = record
	}
	s.convs = next

	if _, ok := s.convs[s.active]; !ok {
		s.active = ""
	}
}
