// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator drives every user-initiated network action: the chat
// send cycle, login, order lookups and knowledge-base maintenance.
//
// Each flow validates input before touching state or the network, brackets
// the call, and normalizes every failure into a Notice (and, for chat, a
// durable assistant-side error message). No transport fault escapes to the
// caller as an unhandled error.
//
// # Chat send cycle
//
//	ex, err := chat.Start(input)   // user message visible, pending=true
//	if err != nil { ... }          // ErrEmptyInput or ErrBusy, no mutation
//	reply := ex.Complete(ctx)      // reply or error appended, pending=false
//
// The conversation's pending flag is advisory. By default Chat refuses a
// second Start while a request is outstanding (ErrBusy). With
// WithAdvisoryGate(false) it does not, and two rapid sends race: both user
// messages append in send order, and the replies append in the order their
// requests settle.
package orchestrator
