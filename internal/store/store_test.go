// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat-tui/internal/model"
)

func newConv(id, title string) *model.Conversation {
	now := time.Now()
	return &model.Conversation{
		ID:            id,
		Title:         title,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func TestApplyReplacesOnlyTarget(t *testing.T) {
	s := New()
	s.Put(newConv("a", "Alpha"))
	s.Put(newConv("b", "Beta"))

	ok := s.Apply("a", func(c *model.Conversation) *model.Conversation {
		c.Title = "Renamed"
		return c
	})
	require.True(t, ok)

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.Equal(t, "Renamed", a.Title)
	assert.Equal(t, "Beta", b.Title)
}

func TestApplyOnMissingConversationIsNoop(t *testing.T) {
	s := New()
	ok := s.Apply("ghost", func(c *model.Conversation) *model.Conversation {
		t.Error("transform must not run for a missing conversation")
		return c
	})
	assert.False(t, ok)
}

func TestApplySeesPriorMutation(t *testing.T) {
	s := New()
	s.Put(newConv("a", ""))

	// Back-to-back mutations must chain, not clobber.
	s.Apply("a", func(c *model.Conversation) *model.Conversation {
		c.Messages = append(c.Messages, &model.Message{ID: "m1", Role: model.RoleUser})
		return c
	})
	s.Apply("a", func(c *model.Conversation) *model.Conversation {
		c.Messages = append(c.Messages, &model.Message{ID: "m2", Role: model.RoleAssistant})
		return c
	})

	a, _ := s.Get("a")
	require.Len(t, a.Messages, 2)
	assert.Equal(t, "m1", a.Messages[0].ID)
	assert.Equal(t, "m2", a.Messages[1].ID)
}

func TestApplyDoesNotMutateSharedSnapshot(t *testing.T) {
	s := New()
	s.Put(newConv("a", "Before"))

	snapshot, _ := s.Get("a")
	s.Apply("a", func(c *model.Conversation) *model.Conversation {
		c.Title = "After"
		return c
	})

	assert.Equal(t, "Before", snapshot.Title, "reader-held snapshot must stay frozen")
}

func TestConcurrentApplyToDistinctConversations(t *testing.T) {
	s := New()
	s.Put(newConv("a", ""))
	s.Put(newConv("b", ""))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Apply("a", func(c *model.Conversation) *model.Conversation {
				c.Messages = append(c.Messages, &model.Message{Role: model.RoleUser})
				return c
			})
		}()
		go func() {
			defer wg.Done()
			s.Apply("b", func(c *model.Conversation) *model.Conversation {
				c.Messages = append(c.Messages, &model.Message{Role: model.RoleUser})
				return c
			})
		}()
	}
	wg.Wait()

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.Len(t, a.Messages, 50)
	assert.Len(t, b.Messages, 50)
}

func TestRemoveClearsActive(t *testing.T) {
	s := New()
	s.Put(newConv("a", ""))
	s.SetActive("a")

	s.Remove("a")

	assert.Empty(t, s.ActiveID())
	assert.False(t, s.Apply("a", func(c *model.Conversation) *model.Conversation { return c }),
		"late mutation against a deleted conversation must be a no-op")
}

func TestReplaceSummariesPreservesLoadedMessages(t *testing.T) {
	s := New()
	conv := newConv("a", "Old title")
	conv.Messages = []*model.Message{{ID: "m1", Role: model.RoleUser, Content: "hi"}}
	s.Put(conv)

	s.ReplaceSummaries([]*model.Conversation{newConv("a", "New title")})

	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "New title", a.Title)
	require.Len(t, a.Messages, 1, "loaded messages must survive a summary reload")
	assert.Equal(t, "m1", a.Messages[0].ID)
}

func TestReplaceSummariesDropsDeleted(t *testing.T) {
	s := New()
	s.Put(newConv("a", ""))
	s.Put(newConv("b", ""))
	s.SetActive("b")

	s.ReplaceSummaries([]*model.Conversation{newConv("a", "")})

	_, ok := s.Get("b")
	assert.False(t, ok)
	assert.Empty(t, s.ActiveID(), "active id pointing at a dropped conversation is cleared")
}

func TestListIsSorted(t *testing.T) {
	s := New()
	older := newConv("old", "")
	older.LastUpdatedAt = time.Now().Add(-time.Hour)
	pinned := newConv("pin", "")
	pinned.IsPinned = true
	s.Put(older)
	s.Put(newConv("new", ""))
	s.Put(pinned)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "pin", list[0].ID)
	assert.Equal(t, "new", list[1].ID)
	assert.Equal(t, "old", list[2].ID)
}
