// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"strings"
	"testing"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParseEventsSingleBlock(t *testing.T) {
	buf := []byte("event: message.delta\ndata: {\"delta\":\"Hel\"}\n\n")

	events, rest := ParseEvents(buf)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != EventDelta {
		t.Errorf("expected name %q, got %q", EventDelta, events[0].Name)
	}
	if !events[0].IsJSON {
		t.Error("expected JSON payload")
	}
	var payload DeltaPayload
	if err := events[0].Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Delta != "Hel" {
		t.Errorf("expected delta %q, got %q", "Hel", payload.Delta)
	}
	if len(rest) != 0 {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseEventsDefaultName(t *testing.T) {
	events, _ := ParseEvents([]byte("data: hello\n\n"))

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != EventDefault {
		t.Errorf("expected default name %q, got %q", EventDefault, events[0].Name)
	}
	if events[0].IsJSON {
		t.Error("plain text payload should not be flagged as JSON")
	}
	if events[0].Data != "hello" {
		t.Errorf("expected %q, got %q", "hello", events[0].Data)
	}
}

func TestParseEventsMultiLineData(t *testing.T) {
	buf := []byte("data: line one\ndata: line two\n\n")

	events, _ := ParseEvents(buf)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Data != "line one\nline two" {
		t.Errorf("data lines should be newline-joined, got %q", events[0].Data)
	}
}

func TestParseEventsPartialTrailingBlock(t *testing.T) {
	buf := []byte("event: message.delta\ndata: {\"delta\":\"a\"}\n\nevent: message.del")

	events, rest := ParseEvents(buf)

	if len(events) != 1 {
		t.Fatalf("expected 1 complete event, got %d", len(events))
	}
	if string(rest) != "event: message.del" {
		t.Errorf("partial block must be retained, got %q", rest)
	}

	// Completing the block on the next feed yields the second event.
	rest = append(rest, []byte("ta\ndata: {\"delta\":\"b\"}\n\n")...)
	events, rest = ParseEvents(rest)
	if len(events) != 1 {
		t.Fatalf("expected 1 event after completion, got %d", len(events))
	}
	var payload DeltaPayload
	if err := events[0].Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Delta != "b" {
		t.Errorf("expected delta %q, got %q", "b", payload.Delta)
	}
	if len(rest) != 0 {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseEventsCRLF(t *testing.T) {
	buf := []byte("event: message.status\r\ndata: {}\r\n\r\n")

	events, rest := ParseEvents(buf)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != EventStatus {
		t.Errorf("expected %q, got %q", EventStatus, events[0].Name)
	}
	if len(rest) != 0 {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseEventsStatusWithoutData(t *testing.T) {
	events, _ := ParseEvents([]byte("event: message.status\n\n"))

	if len(events) != 1 {
		t.Fatalf("status event with no data must still be dispatched, got %d events", len(events))
	}
	if events[0].Data != "" {
		t.Errorf("expected empty data, got %q", events[0].Data)
	}
}

func TestParseEventsEmptyBlockSkipped(t *testing.T) {
	events, rest := ParseEvents([]byte("\n\ndata: x\n\n"))

	if len(events) != 1 {
		t.Fatalf("expected only the data block, got %d events", len(events))
	}
	if len(rest) != 0 {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

// chunkedReadCloser delivers the payload in fixed-size chunks to exercise
// partial-block buffering across reads.
type chunkedReadCloser struct {
	data  string
	pos   int
	chunk int
}

func (c *chunkedReadCloser) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.chunk
	if end > len(c.data) {
		end = len(c.data)
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += n
	return n, nil
}

func (c *chunkedReadCloser) Close() error { return nil }

func TestStreamReaderProcessOrder(t *testing.T) {
	stream := "event: message.status\ndata: {}\n\n" +
		"event: message.delta\ndata: {\"delta\":\"Hel\"}\n\n" +
		"event: message.delta\ndata: {\"delta\":\"lo\"}\n\n" +
		"event: message.final\ndata: {\"message\":{\"id\":\"m9\",\"role\":\"assistant\",\"content\":\"Hello\"}}\n\n"

	// A 7-byte chunk size guarantees blocks straddle read boundaries.
	reader := NewStreamReader(&chunkedReadCloser{data: stream, chunk: 7})

	var names []string
	var content strings.Builder
	err := reader.Process(context.Background(), func(ev Event) {
		names = append(names, ev.Name)
		if ev.Name == EventDelta {
			var payload DeltaPayload
			if err := ev.Decode(&payload); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			content.WriteString(payload.Delta)
		}
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	wantNames := []string{EventStatus, EventDelta, EventDelta, EventFinal}
	if len(names) != len(wantNames) {
		t.Fatalf("expected %d events, got %d (%v)", len(wantNames), len(names), names)
	}
	for i, want := range wantNames {
		if names[i] != want {
			t.Errorf("event %d: expected %q, got %q", i, want, names[i])
		}
	}
	if content.String() != "Hello" {
		t.Errorf("accumulated deltas = %q, want %q", content.String(), "Hello")
	}
}

func TestStreamReaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(io.NopCloser(strings.NewReader("data: x\n\n")))
	err := reader.Process(ctx, func(Event) {})

	if !IsCanceled(err) {
		t.Errorf("expected canceled error, got %v", err)
	}
}
