// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the in-memory source of truth for conversation state.
//
// The store exposes exactly one mutation primitive, Apply: given a
// conversation id and a transform, it atomically replaces that record with
// the transform's output. Transforms operate on clones of the latest
// snapshot under the store lock, which gives two guarantees the rest of the
// client is built on:
//
//   - mutations to different conversations never interfere, and
//   - mutations to the same conversation are applied in issue order, each
//     seeing the previous one's effect.
//
// A mutation keyed by a conversation id that has since been deleted is a
// no-op rather than an error, which is what makes stale in-flight responses
// harmless.
package store
