// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes archived conversations to files.
//
// # Key Types
//
//   - Transcript: one archived conversation with its messages
//   - Exporter: format interface, implemented by MarkdownExporter and
//     JSONExporter
//   - Options: metadata and timestamp switches
//
// # Usage
//
//	exp, err := export.ForFormat("md", nil)
//	path, err := export.ToFile(transcript, exp, ".")
//
// Table blocks are written as Markdown tables, so a reply that showed a
// table on screen stays a table in the exported file.
package export
