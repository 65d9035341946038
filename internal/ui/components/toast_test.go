// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
	"time"

	"github.com/jeranaias/docchat-tui/internal/notify"
)

func TestTransientToastExpires(t *testing.T) {
	m := NewToastManager()
	id := m.Add(notify.Transient("done"))
	if id == 0 {
		t.Fatal("expected a toast id")
	}

	// Force expiry.
	m.toasts[0].CreatedAt = time.Now().Add(-time.Minute)
	if remaining := m.Tick(); len(remaining) != 0 {
		t.Errorf("expired toast survived: %+v", remaining)
	}
}

func TestPersistentToastSurvivesTicks(t *testing.T) {
	m := NewToastManager()
	m.Add(notify.Persistent("connection lost"))

	m.toasts[0].CreatedAt = time.Now().Add(-time.Hour)
	if remaining := m.Tick(); len(remaining) != 1 {
		t.Fatal("persistent toast must not expire")
	}
}

func TestDuplicateNoticeRefreshesInsteadOfStacking(t *testing.T) {
	m := NewToastManager()
	first := m.Add(notify.Transient("saved"))
	second := m.Add(notify.Transient("saved"))

	if first != second {
		t.Errorf("duplicate notice created a second toast: %d, %d", first, second)
	}
	if len(m.Tick()) != 1 {
		t.Error("expected a single toast")
	}
}

func TestDismiss(t *testing.T) {
	m := NewToastManager()
	id := m.Add(notify.Persistent("connection lost"))
	m.Dismiss(id)
	if m.HasToasts() {
		t.Error("dismissed toast still present")
	}
}
