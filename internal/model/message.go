// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "我"
	case RoleAssistant:
		return "智能客服"
	default:
		return string(r)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// ANNOTATIONS
// =============================================================================

// Annotations is backend metadata attached to an assistant reply. The
// payloads are kept as raw JSON; the transcript never interprets them.
type Annotations struct {
	Intent           string
	RelatedOrder     json.RawMessage
	RelatedDocuments json.RawMessage
}

// IsZero reports whether no annotation is set.
func (a Annotations) IsZero() bool {
	return a.Intent == "" && len(a.RelatedOrder) == 0 && len(a.RelatedDocuments) == 0
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one transcript entry. Messages are values; the store hands out
// deep copies so a caller can never mutate a stored entry.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the raw text exactly as typed or received.
	Content string `json:"content"`

	// Blocks is the rendering of an assistant message. Nil for user messages.
	Blocks []content.Block `json:"-"`

	// Backend annotations (assistant messages only)
	Intent           string          `json:"intent,omitempty"`
	RelatedOrder     json.RawMessage `json:"related_order,omitempty"`
	RelatedDocuments json.RawMessage `json:"related_documents,omitempty"`

	// Failed marks an assistant entry recording a failed request.
	Failed bool `json:"failed,omitempty"`
}

// Annotations returns the message's backend metadata.
func (m Message) Annotations() Annotations {
	return Annotations{
		Intent:           m.Intent,
		RelatedOrder:     m.RelatedOrder,
		RelatedDocuments: m.RelatedDocuments,
	}
}

// Preview returns a single-line preview of at most maxWidth columns.
func (m Message) Preview(maxWidth int) string {
	return util.Preview(m.Content, maxWidth)
}

// Clone returns a deep copy.
func (m Message) Clone() Message {
	m.Blocks = content.CloneBlocks(m.Blocks)
	m.RelatedOrder = cloneRaw(m.RelatedOrder)
	m.RelatedDocuments = cloneRaw(m.RelatedDocuments)
	return m
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewMessageID returns a fresh, never reused message ID.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

// NewConversationID returns a fresh conversation ID. It doubles as the
// backend thread ID.
func NewConversationID() string {
	return "conv_" + uuid.NewString()
}
