// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream owns the lifecycle of a message exchange: the optimistic
// user-message insert, consumption of the server's event stream, user
// cancellation, and the fallback path when the stream fails.
//
// One session may be active per conversation; a second send while one is in
// flight is rejected. Every mutation a session makes is keyed by the
// conversation id captured at send time, so late responses for a switched or
// deleted conversation land harmlessly.
package stream
