// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// =============================================================================
// EVENT TYPE
// =============================================================================

// Event is one decoded server-sent event: a name and a payload string.
// IsJSON reports whether Data holds a valid JSON document; otherwise the
// payload is passed through as plain text.
type Event struct {
	Name   string
	Data   string
	IsJSON bool
}

// Decode unmarshals the JSON payload into v.
func (e Event) Decode(v any) error {
	if !e.IsJSON {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "event payload is not JSON"}
	}
	if err := json.Unmarshal([]byte(e.Data), v); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode event payload", Cause: err}
	}
	return nil
}

// =============================================================================
// EVENT DECODING
// =============================================================================

// ParseEvents splits buffered stream bytes into complete events and returns
// the unconsumed remainder. Events are delimited by blank lines; partial
// trailing bytes that do not yet form a complete block are returned as rest
// and must be carried into the next call.
//
// This is a pure function of the buffer so it can be tested without a
// transport.
func ParseEvents(buf []byte) (events []Event, rest []byte) {
	rest = buf
	for {
		idx, skip := blankLineIndex(rest)
		if idx < 0 {
			return events, rest
		}
		block := rest[:idx]
		rest = rest[idx+skip:]
		if ev, ok := parseBlock(block); ok {
			events = append(events, ev)
		}
	}
}

// blankLineIndex locates the first blank-line boundary in buf. Returns the
// index where the block ends and the number of bytes the delimiter spans, or
// (-1, 0) when no complete block is present.
func blankLineIndex(buf []byte) (idx, skip int) {
	lf := bytes.Index(buf, []byte("\n\n"))
	crlf := bytes.Index(buf, []byte("\n\r\n"))
	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, 3
	default:
		return lf, 2
	}
}

// parseBlock decodes a single event block. Within a block, "event:" lines set
// the event name (default "message") and "data:" lines are newline-joined
// into the payload. Comment lines and unknown fields are ignored. A block
// with neither field yields no event.
func parseBlock(block []byte) (Event, bool) {
	var (
		name      string
		dataLines []string
		sawField  bool
	)

	for _, raw := range strings.Split(string(block), "\n") {
		line := strings.TrimSuffix(raw, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
			sawField = true
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			sawField = true
		}
	}

	if !sawField {
		return Event{}, false
	}
	if name == "" {
		name = EventDefault
	}

	data := strings.Join(dataLines, "\n")
	return Event{
		Name:   name,
		Data:   data,
		IsJSON: data != "" && json.Valid([]byte(data)),
	}, true
}

// =============================================================================
// STREAM READER
// =============================================================================

// EventCallback is called for each event received, in arrival order.
type EventCallback func(Event)

// StreamReader consumes a server-sent event body incrementally. The sequence
// it produces is finite and non-restartable: once Process returns, the
// underlying body is closed.
type StreamReader struct {
	body io.ReadCloser
	buf  []byte
}

// NewStreamReader creates a stream reader over a response body.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	return &StreamReader{body: body}
}

// Process reads the stream and calls the callback for each decoded event.
// Blocks until the stream ends or the context is cancelled. A normal
// transport end returns nil; cancellation returns a canceled ClientError so
// callers can distinguish it from genuine stream failures.
func (r *StreamReader) Process(ctx context.Context, callback EventCallback) error {
	defer r.body.Close()

	// Cancelling the context aborts the blocking Read via the request's
	// lifetime, but check explicitly so the loop exits at the next
	// suspension point even if the transport lingers.
	chunk := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return connectionError(ctx.Err())
		default:
		}

		n, err := r.body.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
			var events []Event
			events, r.buf = ParseEvents(r.buf)
			for _, ev := range events {
				callback(ev)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return connectionError(ctx.Err())
			}
			return connectionError(err)
		}
	}
}

// Events adapts the reader to a channel of events. The channel is closed when
// the stream completes; a terminal read failure is delivered on the error
// channel (buffered, at most one value).
func (r *StreamReader) Events(ctx context.Context) (<-chan Event, <-chan error) {
	out := make(chan Event)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		err := r.Process(ctx, func(ev Event) {
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil {
			errc <- err
		}
		close(errc)
	}()

	return out, errc
}
