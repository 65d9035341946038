// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package actions implements conversation-level operations as optimistic
// updates: the local store changes first, the request follows, and a
// rejection rolls the store back to the captured snapshot with a single
// user-visible notice.
package actions
