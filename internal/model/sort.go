// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// =============================================================================
// CONVERSATION ORDERING
// =============================================================================

// Less reports whether conversation a sorts before b under the display
// ordering policy:
//
//  1. Pinned conversations before unpinned ones.
//  2. Among pinned: explicit PinnedOrder ascending; conversations without an
//     order sort after those with one, broken by PinnedAt descending.
//  3. Among unpinned: LastUpdatedAt descending, then CreatedAt descending.
//
// Ties fall through to ID so the ordering is total and sorting is idempotent.
func Less(a, b *Conversation) bool {
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}

	if a.IsPinned {
		switch {
		case a.PinnedOrder != nil && b.PinnedOrder != nil:
			if *a.PinnedOrder != *b.PinnedOrder {
				return *a.PinnedOrder < *b.PinnedOrder
			}
		case a.PinnedOrder != nil:
			return true
		case b.PinnedOrder != nil:
			return false
		default:
			if !a.PinnedAt.Equal(b.PinnedAt) {
				return a.PinnedAt.After(b.PinnedAt)
			}
		}
		return a.ID < b.ID
	}

	if !a.LastUpdatedAt.Equal(b.LastUpdatedAt) {
		return a.LastUpdatedAt.After(b.LastUpdatedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortConversations sorts the slice in place under the display ordering.
func SortConversations(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return Less(convs[i], convs[j])
	})
}
