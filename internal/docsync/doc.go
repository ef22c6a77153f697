// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docsync keeps the knowledge base in step with a local folder.
//
// A Watcher observes one directory with fsnotify. Eligible files that are
// created or written are debounced, then uploaded and reindexed together as
// one batch.
package docsync
