// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across kefu packages.
//
// # Key Functions
//
// Observation:
//   - Subject: synchronous, ordered fan-out of state-change events
//
// String Utilities:
//   - Preview: single-line, display-width aware preview of a message
//   - TruncateWidth: CJK-aware truncation with ellipsis
//
// File Operations:
//   - AtomicWrite, AtomicWriteFile: crash-safe file replacement with fsync
//
// # Usage
//
//	var s util.Subject[int]
//	unsubscribe := s.Subscribe(func(v int) { fmt.Println(v) })
//	defer unsubscribe()
//	s.Publish(42)
package util
