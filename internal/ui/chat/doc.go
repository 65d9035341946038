// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive terminal UI: the bubbletea model
// that composes the sidebar, message viewport, input area, and status bar,
// and routes key input to the conversation and stream layers.
package chat
