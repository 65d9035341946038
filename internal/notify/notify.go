// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify defines the user-facing notice values emitted by the
// orchestration layers and rendered by the UI as toasts.
package notify

// Kind classifies a notice for presentation.
type Kind int

const (
	// KindTransient: short-lived toast, auto-dismissed.
	KindTransient Kind = iota
	// KindPersistent: stays until acted on; used for network failures
	// where the user gets a retry affordance.
	KindPersistent
	// KindWarning: non-fatal advisory attached to an answer.
	KindWarning
)

// Notice is a short human-readable message for the end user. Diagnostic
// detail stays in the log; only Text reaches the screen.
type Notice struct {
	Kind Kind
	Text string
}

// Func receives notices. Implementations must be safe to call from any
// goroutine.
type Func func(Notice)

// Discard is a no-op notice sink, useful in tests and headless runs.
func Discard(Notice) {}

// Transient builds a transient notice.
func Transient(text string) Notice {
	return Notice{Kind: KindTransient, Text: text}
}

// Persistent builds a persistent notice.
func Persistent(text string) Notice {
	return Notice{Kind: KindPersistent, Text: text}
}

// Warning builds a warning notice.
func Warning(text string) Notice {
	return Notice{Kind: KindWarning, Text: text}
}
