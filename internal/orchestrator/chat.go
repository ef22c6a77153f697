// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/model"
)

var (
	// ErrEmptyInput rejects blank input before any mutation.
	ErrEmptyInput = errors.New("input is empty")

	// ErrBusy rejects a send while another request is outstanding.
	ErrBusy = errors.New("a request is already in flight")
)

// QueryAPI is the backend call behind the chat cycle. *api.Client
// implements it.
type QueryAPI interface {
	Query(ctx context.Context, req api.QueryRequest) (*api.Envelope[api.QueryResult], error)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat runs send cycles against one conversation.
type Chat struct {
	conv *model.Conversation
	api  QueryAPI
	opts options
	log  *zap.Logger

	// startMu makes the pending check and the user append one step.
	startMu sync.Mutex
}

// NewChat creates a send-cycle driver for conv.
func NewChat(conv *model.Conversation, q QueryAPI, opts ...Option) *Chat {
	o := buildOptions(opts)
	return &Chat{
		conv: conv,
		api:  q,
		opts: o,
		log:  o.logger.Named("chat").With(zap.String("conversation", conv.ID())),
	}
}

// Conversation returns the driven conversation.
func (c *Chat) Conversation() *model.Conversation {
	return c.conv
}

// Start validates input, appends it as a user message and marks the
// conversation pending. Both happen before Start returns. It fails without
// mutating anything on blank input, or with ErrBusy when the advisory gate
// is on and a request is outstanding.
func (c *Chat) Start(input string) (*Exchange, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.opts.advisoryGate && c.conv.Pending() {
		return nil, ErrBusy
	}

	user := c.conv.AppendUserMessage(text)
	if raced := c.conv.BeginRequest(); raced {
		c.log.Warn("send started while another request is pending")
	}
	return &Exchange{chat: c, query: text, user: user}, nil
}

// Send is Start followed by Complete.
func (c *Chat) Send(ctx context.Context, input string) (model.Message, error) {
	ex, err := c.Start(input)
	if err != nil {
		return model.Message{}, err
	}
	return ex.Complete(ctx), nil
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Exchange is one started send cycle.
type Exchange struct {
	chat  *Chat
	query string
	user  model.Message

	once  sync.Once
	reply model.Message
}

// UserMessage returns the appended user message.
func (e *Exchange) UserMessage() model.Message {
	return e.user
}

// Complete performs the query and appends its outcome: the reply on
// success, otherwise an error message plus an error notice. The pending
// flag is cleared afterwards. Complete never fails; calling it again
// returns the first result.
func (e *Exchange) Complete(ctx context.Context) model.Message {
	e.once.Do(func() {
		e.reply = e.complete(ctx)
	})
	return e.reply
}

func (e *Exchange) complete(ctx context.Context) model.Message {
	c := e.chat
	defer c.conv.EndRequest()

	env, err := c.api.Query(ctx, api.QueryRequest{Query: e.query, ThreadID: c.conv.ID()})
	if err == nil && env.OK() {
		data := env.Data
		if data.Error != "" {
			c.log.Warn("query answered with an error annotation", zap.String("error", data.Error))
		}
		c.log.Debug("query answered", zap.String("intent", data.Intent))
		return c.conv.AppendAssistantMessage(data.Response, model.Annotations{
			Intent:           data.Intent,
			RelatedOrder:     data.Order,
			RelatedDocuments: data.Documents,
		})
	}

	fallback := MsgQueryFailed
	if err != nil {
		fallback = MsgNetworkError
	}
	msg := api.ErrorText(env, err, fallback)
	c.log.Warn("query failed", zap.String("reason", msg), zap.Error(err))

	reply := c.conv.AppendAssistantError(ErrorReplyPrefix + msg)
	c.opts.notifier.Notify(errorNotice(TitleQueryFailed, msg))
	return reply
}
