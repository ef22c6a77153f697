// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/model"
)

func pendingTrail(conv *model.Conversation) *[]bool {
	var trail []bool
	conv.Subscribe(func(e model.Event) {
		if e.Kind == model.EventPending {
			trail = append(trail, e.Pending)
		}
	})
	return &trail
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestChat_EmptyInputIsRejectedWithoutMutation(t *testing.T) {
	q := &fakeQuery{}
	conv := model.NewConversation()
	trail := pendingTrail(conv)
	chat := NewChat(conv, q)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := chat.Start(in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	assert.Zero(t, conv.Len())
	assert.Empty(t, *trail)
	assert.Zero(t, q.calls.Load())
}

// =============================================================================
// SEND CYCLE
// =============================================================================

func TestChat_SuccessfulSend(t *testing.T) {
	conv := model.NewConversation()
	trail := pendingTrail(conv)
	q := &fakeQuery{fn: func(_ context.Context, req api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		assert.Equal(t, "苹果库存？", req.Query)
		assert.Equal(t, conv.ID(), req.ThreadID)
		return ok(api.QueryResult{
			Response:  "价格 | 库存\n苹果 | 10\n香蕉 | 5",
			Intent:    "product",
			Documents: json.RawMessage(`[{"source":"stock.md"}]`),
		}), nil
	}}
	notes := &recorder{}
	chat := NewChat(conv, q, WithNotifier(notes))

	ex, err := chat.Start("  苹果库存？ ")
	require.NoError(t, err)

	// Optimistic append: the user message is already visible.
	last, _ := conv.Last()
	assert.Equal(t, "苹果库存？", last.Content)
	assert.Equal(t, ex.UserMessage().ID, last.ID)
	assert.True(t, conv.Pending())

	reply := ex.Complete(context.Background())
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "product", reply.Intent)
	require.Len(t, reply.Blocks, 1)
	assert.IsType(t, content.Table{}, reply.Blocks[0])
	assert.JSONEq(t, `[{"source":"stock.md"}]`, string(reply.RelatedDocuments))

	assert.False(t, conv.Pending())
	assert.Equal(t, 2, conv.Len())
	assert.Equal(t, []bool{true, false}, *trail)
	assert.Empty(t, notes.all())
}

func TestChat_RateLimitedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":false,"message":"限流"}`)
	}))
	defer srv.Close()

	conv := model.NewConversation()
	trail := pendingTrail(conv)
	notes := &recorder{}
	chat := NewChat(conv, api.NewClient(srv.URL), WithNotifier(notes))

	reply, err := chat.Send(context.Background(), "你好")
	require.NoError(t, err)

	transcript := conv.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, reply.ID, transcript[1].ID)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.True(t, reply.Failed)
	assert.Contains(t, reply.Content, "限流")
	assert.Equal(t, ErrorReplyPrefix+"限流", reply.Content)

	assert.False(t, conv.Pending())
	assert.Equal(t, []bool{true, false}, *trail)

	require.Len(t, notes.all(), 1)
	assert.Equal(t, Notice{Level: LevelError, Title: TitleQueryFailed, Message: "限流"}, notes.last())
}

func TestChat_TransportFaultBecomesAssistantMessage(t *testing.T) {
	conv := model.NewConversation()
	q := &fakeQuery{fn: func(context.Context, api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		return nil, errors.New("connection reset")
	}}
	notes := &recorder{}
	chat := NewChat(conv, q, WithNotifier(notes))

	reply, err := chat.Send(context.Background(), "hi")
	require.NoError(t, err, "transport faults never escape")

	assert.Equal(t, ErrorReplyPrefix+"connection reset", reply.Content)
	assert.Equal(t, []content.Block{content.Text{Text: reply.Content}}, reply.Blocks)
	assert.Equal(t, LevelError, notes.last().Level)
	assert.False(t, conv.Pending())
}

func TestChat_SuccessWithoutDataUsesFallback(t *testing.T) {
	conv := model.NewConversation()
	q := &fakeQuery{fn: func(context.Context, api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		return &api.Envelope[api.QueryResult]{Success: true}, nil
	}}
	chat := NewChat(conv, q)

	reply, err := chat.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, ErrorReplyPrefix+MsgQueryFailed, reply.Content)
}

func TestExchange_CompleteIsIdempotent(t *testing.T) {
	conv := model.NewConversation()
	q := &fakeQuery{fn: func(context.Context, api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		return ok(api.QueryResult{Response: "好的"}), nil
	}}
	ex, err := NewChat(conv, q).Start("hi")
	require.NoError(t, err)

	first := ex.Complete(context.Background())
	second := ex.Complete(context.Background())

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, conv.Len())
	assert.EqualValues(t, 1, q.calls.Load())
}

// =============================================================================
// SINGLE-FLIGHT
// =============================================================================

func TestChat_GateRejectsSecondSend(t *testing.T) {
	conv := model.NewConversation()
	q := &fakeQuery{fn: func(context.Context, api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		return ok(api.QueryResult{Response: "ok"}), nil
	}}
	chat := NewChat(conv, q)

	ex, err := chat.Start("first")
	require.NoError(t, err)

	_, err = chat.Start("second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, conv.Len(), "a refused send does not append")

	ex.Complete(context.Background())
	_, err = chat.Start("third")
	assert.NoError(t, err)
}

func TestChat_AdvisoryGateOffLetsSendsRace(t *testing.T) {
	conv := model.NewConversation()
	release := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	q := &fakeQuery{fn: func(_ context.Context, req api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		<-release[req.Query]
		return ok(api.QueryResult{Response: "reply to " + req.Query}), nil
	}}
	chat := NewChat(conv, q, WithAdvisoryGate(false))

	ex1, err := chat.Start("first")
	require.NoError(t, err)
	ex2, err := chat.Start("second")
	require.NoError(t, err)

	// Both user messages are visible immediately, in send order.
	transcript := conv.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "first", transcript[0].Content)
	assert.Equal(t, "second", transcript[1].Content)

	var wg sync.WaitGroup
	for _, ex := range []*Exchange{ex1, ex2} {
		wg.Add(1)
		go func(ex *Exchange) {
			defer wg.Done()
			ex.Complete(context.Background())
		}(ex)
	}
	close(release["second"])
	close(release["first"])
	wg.Wait()

	// Replies land in settle order, which is not asserted; both must be there.
	transcript = conv.Transcript()
	require.Len(t, transcript, 4)
	var replies []string
	for _, m := range transcript[2:] {
		assert.Equal(t, model.RoleAssistant, m.Role)
		replies = append(replies, m.Content)
	}
	assert.ElementsMatch(t, []string{"reply to first", "reply to second"}, replies)
	assert.False(t, conv.Pending())
}

func TestChat_ErrorReplyDoesNotDetectTables(t *testing.T) {
	conv := model.NewConversation()
	q := &fakeQuery{fn: func(context.Context, api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
		return failed[api.QueryResult]("a | b\nc | d"), nil
	}}

	reply, err := NewChat(conv, q).Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, reply.Blocks, 1)
	assert.True(t, strings.HasPrefix(reply.Blocks[0].(content.Text).Text, ErrorReplyPrefix))
}
