// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// titleWidth bounds the auto-generated title.
const titleWidth = 50

// DefaultTitle is shown until the first user message arrives.
const DefaultTitle = "新会话"

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a conversation change.
type EventKind int

const (
	// EventAppended: Message was appended at Index.
	EventAppended EventKind = iota
	// EventPending: the pending flag changed to Pending.
	EventPending
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAppended:
		return "appended"
	case EventPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after the change is visible.
type Event struct {
	Kind           EventKind
	ConversationID string
	Message        Message
	Index          int
	Pending        bool
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the append-only transcript of one chat thread. All methods
// are safe for concurrent use; each mutation is atomic and becomes visible
// before it returns.
type Conversation struct {
	mu        sync.RWMutex
	id        string
	title     string
	createdAt time.Time
	updatedAt time.Time
	messages  []Message
	pending   bool

	parser *content.Parser
	now    func() time.Time

	subject util.Subject[Event]
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithParser sets the parser used for assistant replies.
func WithParser(p *content.Parser) Option {
	return func(c *Conversation) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		if now != nil {
			c.now = now
		}
	}
}

// WithID sets the conversation ID instead of generating one.
func WithID(id string) Option {
	return func(c *Conversation) {
		if id != "" {
			c.id = id
		}
	}
}

// NewConversation creates an empty conversation.
func NewConversation(opts ...Option) *Conversation {
	c := &Conversation{
		id:     NewConversationID(),
		parser: content.NewParser(content.DefaultOptions()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.createdAt = c.now()
	c.updatedAt = c.createdAt
	return c
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AppendUserMessage appends text verbatim as a user message.
func (c *Conversation) AppendUserMessage(text string) Message {
	return c.append(Message{Role: RoleUser, Content: text})
}

// AppendAssistantMessage segments raw into blocks and appends it with the
// given annotations.
func (c *Conversation) AppendAssistantMessage(raw string, ann Annotations) Message {
	return c.append(Message{
		Role:             RoleAssistant,
		Content:          raw,
		Blocks:           c.parser.Parse(raw),
		Intent:           ann.Intent,
		RelatedOrder:     cloneRaw(ann.RelatedOrder),
		RelatedDocuments: cloneRaw(ann.RelatedDocuments),
	})
}

// AppendAssistantError records a failed request as an assistant message.
// The text is shown as a single text block without table detection.
func (c *Conversation) AppendAssistantError(text string) Message {
	var blocks []content.Block
	if t := strings.TrimSpace(text); t != "" {
		blocks = []content.Block{content.Text{Text: t}}
	}
	return c.append(Message{
		Role:    RoleAssistant,
		Content: text,
		Blocks:  blocks,
		Failed:  true,
	})
}

func (c *Conversation) append(msg Message) Message {
	c.mu.Lock()
	msg.ID = NewMessageID()
	msg.Timestamp = c.now()
	// Transcript timestamps never go backwards, even if the wall clock does.
	if n := len(c.messages); n > 0 && msg.Timestamp.Before(c.messages[n-1].Timestamp) {
		msg.Timestamp = c.messages[n-1].Timestamp
	}
	c.messages = append(c.messages, msg)
	c.updatedAt = msg.Timestamp
	if c.title == "" && msg.Role == RoleUser {
		c.title = msg.Preview(titleWidth)
	}
	ev := Event{
		Kind:           EventAppended,
		ConversationID: c.id,
		Message:        msg.Clone(),
		Index:          len(c.messages) - 1,
		Pending:        c.pending,
	}
	publish := c.subject.Hold()
	c.mu.Unlock()

	publish(ev)
	return ev.Message.Clone()
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// BeginRequest sets the pending flag. The flag is advisory: a second call
// while pending is not rejected, and wasPending tells the caller it raced.
func (c *Conversation) BeginRequest() (wasPending bool) {
	return c.setPending(true)
}

// EndRequest clears the pending flag.
func (c *Conversation) EndRequest() {
	c.setPending(false)
}

func (c *Conversation) setPending(v bool) bool {
	c.mu.Lock()
	was := c.pending
	c.pending = v
	ev := Event{Kind: EventPending, ConversationID: c.id, Index: len(c.messages) - 1, Pending: v}
	publish := c.subject.Hold()
	c.mu.Unlock()

	publish(ev)
	return was
}

// Pending reports whether a request is outstanding.
func (c *Conversation) Pending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// =============================================================================
// READERS
// =============================================================================

// ID returns the conversation ID.
func (c *Conversation) ID() string {
	return c.id
}

// Title returns the first user message preview, or DefaultTitle.
func (c *Conversation) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.title == "" {
		return DefaultTitle
	}
	return c.title
}

// CreatedAt returns the creation time.
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// Transcript returns a deep copy of all messages in insertion order.
func (c *Conversation) Transcript() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the newest message, if any.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].Clone(), true
}

// Subscribe registers fn for every change. Observers run synchronously
// before the mutating call returns and may read the conversation, but must
// not mutate it from inside the callback.
func (c *Conversation) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.subject.Subscribe(fn)
}

// =============================================================================
// METADATA
// =============================================================================

// Meta returns lightweight metadata for listing.
func (c *Conversation) Meta() ConversationMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta := ConversationMeta{
		ID:           c.id,
		Title:        c.title,
		MessageCount: len(c.messages),
		CreatedAt:    c.createdAt,
		UpdatedAt:    c.updatedAt,
	}
	if meta.Title == "" {
		meta.Title = DefaultTitle
	}
	if n := len(c.messages); n > 0 {
		meta.Preview = c.messages[n-1].Preview(100)
	}
	return meta
}

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}
