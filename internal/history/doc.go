// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history archives conversation transcripts in SQLite.
//
// A Store is attached to a live conversation through its subscription and
// records every appended message, so the archive mirrors the transcript
// exactly and in order. Archived conversations can be listed and replayed
// by the CLI.
//
// # Usage
//
//	store, err := history.Open(filepath.Join(dir, "history.db"))
//	if err != nil { ... }
//	defer store.Close()
//	detach := store.Attach(conv, "agent@example.com")
//	defer detach()
package history
