// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the kefu command tree.
//
// Running kefu without a subcommand starts the full-screen TUI. The
// subcommands drive the same orchestrator flows from a plain terminal or a
// script:
//
//   - ask: one question, one rendered answer
//   - chat: interactive line-mode conversation with input history
//   - order: lookup and e-mail dispatch
//   - docs: knowledge-base list, upload, reindex, clear and folder watch
//   - history: list, show and export archived conversations
//   - config: show, init, path, get, set and keys
//   - version
//
// Commands that talk to the backend log in first. Credentials come from
// --email/--password, then KEFU_EMAIL/KEFU_PASSWORD, then an interactive
// prompt. Most commands accept --json for machine-readable output.
package cli
