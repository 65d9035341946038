// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal mode: a readline-style REPL over
// the same conversation and stream layers as the TUI, for terminals and
// pipelines where the full-screen interface is unwanted.
package cli
