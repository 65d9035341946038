// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable view pieces of the docchat TUI:
// message bubbles with evidence, the conversation sidebar, the input area,
// toasts, the status bar, and code block rendering.
package components
