// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the full-screen bubbletea program.
//
// Screens:
//   - login: e-mail and password form
//   - chat: transcript viewport and input box (F1)
//   - orders: order lookup and e-mail dispatch (F2)
//   - docs: knowledge-base maintenance, rag_access only (F3)
//
// Views never hold their own copy of the transcript. The conversation and the
// session publish events into a buffered channel that the program drains, and
// every view re-reads the store when woken.
package app
