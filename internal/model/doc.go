// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation transcript and its messages.
//
// A Conversation is an append-only, strictly ordered transcript plus the
// advisory pending flag that brackets an outstanding backend request.
// Assistant replies are segmented into content blocks on append; user
// input is stored verbatim.
//
// # Key Types
//
//   - Conversation: the transcript store, safe for concurrent use
//   - Message: one immutable transcript entry
//   - Annotations: optional backend metadata carried by assistant replies
//   - Role: message role enumeration (user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	unsubscribe := conv.Subscribe(func(e model.Event) { redraw() })
//	defer unsubscribe()
//
//	conv.AppendUserMessage("订单 ORD-1 到哪了？")
//	conv.BeginRequest()
//	conv.AppendAssistantMessage(reply, model.Annotations{Intent: "order"})
//	conv.EndRequest()
package model
