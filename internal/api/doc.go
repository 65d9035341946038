// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the transport client for the document assistant backend.
//
// It wraps the backend's REST surface (conversations, messages, attachments,
// settings) and its streaming send endpoint, normalizing failures into typed
// ClientError values so callers can distinguish network unreachability from
// server rejections from explicit cancellation.
//
// # Event Streams
//
// The streaming send produces a line-oriented event format: blocks separated
// by blank lines, with "event:" and "data:" fields. ParseEvents is the pure
// decoder from buffered bytes to complete events plus unconsumed remainder;
// StreamReader drives it over a response body and delivers events in arrival
// order via callback or channel. The sequence is finite and non-restartable.
//
// # Errors
//
//	err := client.DeleteConversation(ctx, id)
//	switch {
//	case api.IsCanceled(err):    // user intent, not a failure
//	case api.IsUnreachable(err): // network down, retry affordance
//	case api.IsRejection(err):   // server said no, inspect status
//	}
package api
