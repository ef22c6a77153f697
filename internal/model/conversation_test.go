// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kefu-tui/internal/content"
)

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestAppendUserMessage_VisibleImmediately(t *testing.T) {
	conv := NewConversation()
	msg := conv.AppendUserMessage("  价格 | 库存\n苹果 | 10  ")

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, msg.ID, last.ID)
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "  价格 | 库存\n苹果 | 10  ", last.Content, "user text is stored verbatim")
	assert.Nil(t, last.Blocks, "user text is never parsed")
	assert.True(t, strings.HasPrefix(last.ID, "msg_"))
}

func TestAppendAssistantMessage_ParsesAndAnnotates(t *testing.T) {
	conv := NewConversation()
	msg := conv.AppendAssistantMessage("价格 | 库存\n苹果 | 10\n香蕉 | 5", Annotations{
		Intent:       "product",
		RelatedOrder: json.RawMessage(`{"order_id":"ORD-1"}`),
	})

	require.Len(t, msg.Blocks, 1)
	table, ok := msg.Blocks[0].(content.Table)
	require.True(t, ok)
	assert.Equal(t, []string{"价格", "库存"}, table.Header())
	assert.Equal(t, "product", msg.Intent)
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(msg.RelatedOrder))
	assert.Nil(t, msg.RelatedDocuments)
	assert.False(t, msg.Failed)
}

func TestAppendAssistantError_SingleTextBlock(t *testing.T) {
	conv := NewConversation()
	msg := conv.AppendAssistantError("抱歉 | 出错\n请 | 重试")

	require.Len(t, msg.Blocks, 1)
	assert.Equal(t, content.Text{Text: "抱歉 | 出错\n请 | 重试"}, msg.Blocks[0])
	assert.True(t, msg.Failed)
	assert.Equal(t, RoleAssistant, msg.Role)

	assert.Empty(t, NewConversation().AppendAssistantError("  ").Blocks)
}

func TestWithParser(t *testing.T) {
	conv := NewConversation(WithParser(content.NewParser(content.Options{MinTableRows: 3})))
	msg := conv.AppendAssistantMessage("a | b\n1 | 2", Annotations{})

	require.Len(t, msg.Blocks, 1)
	assert.IsType(t, content.Text{}, msg.Blocks[0])
}

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestTranscript_InsertionOrderAndUniqueIDs(t *testing.T) {
	conv := NewConversation()
	conv.AppendUserMessage("one")
	conv.AppendAssistantMessage("two", Annotations{})
	conv.AppendUserMessage("three")
	conv.AppendAssistantError("four")

	transcript := conv.Transcript()
	require.Len(t, transcript, 4)
	seen := map[string]bool{}
	for i, want := range []string{"one", "two", "three", "four"} {
		assert.Equal(t, want, transcript[i].Content)
		assert.False(t, seen[transcript[i].ID], "duplicate id")
		seen[transcript[i].ID] = true
	}
}

func TestTranscript_TimestampsNeverDecrease(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(time.Second), base.Add(-time.Hour), base.Add(2 * time.Second)}
	i := 0
	clock := func() time.Time {
		if i >= len(ticks) {
			return ticks[len(ticks)-1]
		}
		ts := ticks[i]
		i++
		return ts
	}

	conv := NewConversation(WithClock(clock))
	conv.AppendUserMessage("a")
	conv.AppendUserMessage("b")
	conv.AppendUserMessage("c")

	transcript := conv.Transcript()
	assert.Equal(t, base.Add(time.Second), transcript[0].Timestamp)
	assert.Equal(t, base.Add(time.Second), transcript[1].Timestamp, "clock went backwards")
	assert.Equal(t, base.Add(2*time.Second), transcript[2].Timestamp)
}

func TestTranscript_ReturnsCopies(t *testing.T) {
	conv := NewConversation()
	conv.AppendAssistantMessage("a | b\n1 | 2", Annotations{RelatedOrder: json.RawMessage(`{"x":1}`)})

	copy1 := conv.Transcript()
	copy1[0].Content = "changed"
	copy1[0].Blocks[0].(content.Table).Rows[0][0] = "changed"
	copy1[0].RelatedOrder[0] = '['

	fresh := conv.Transcript()
	assert.Equal(t, "a | b\n1 | 2", fresh[0].Content)
	assert.Equal(t, "a", fresh[0].Blocks[0].(content.Table).Rows[0][0])
	assert.JSONEq(t, `{"x":1}`, string(fresh[0].RelatedOrder))
}

func TestConcurrentAppends_AllPresent(t *testing.T) {
	conv := NewConversation()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv.AppendUserMessage("hi")
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, conv.Len())
}

func TestConcurrentAppends_ObserverMayReadConversation(t *testing.T) {
	conv := NewConversation()
	var (
		mu    sync.Mutex
		index []int
	)
	conv.Subscribe(func(e Event) {
		meta := conv.Meta()
		_ = conv.Transcript()
		if e.Kind != EventAppended {
			return
		}
		assert.GreaterOrEqual(t, meta.MessageCount, e.Index+1)
		mu.Lock()
		index = append(index, e.Index)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					conv.BeginRequest()
					conv.AppendAssistantMessage("a | b\n1 | 2", Annotations{})
					conv.EndRequest()
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent appends with a reading observer did not finish")
	}

	assert.Equal(t, 200, conv.Len())
	require.Len(t, index, 200)
	for i, v := range index {
		assert.Equal(t, i, v, "events arrive in append order")
	}
}

// =============================================================================
// PENDING FLAG TESTS
// =============================================================================

func TestPendingIsAdvisory(t *testing.T) {
	conv := NewConversation()

	assert.False(t, conv.BeginRequest())
	assert.True(t, conv.Pending())
	assert.True(t, conv.BeginRequest(), "second begin is reported, not rejected")

	conv.EndRequest()
	assert.False(t, conv.Pending())
}

// =============================================================================
// OBSERVER TESTS
// =============================================================================

func TestSubscribe_EventsInMutationOrder(t *testing.T) {
	conv := NewConversation()
	var events []Event
	var lens []int
	unsubscribe := conv.Subscribe(func(e Event) {
		events = append(events, e)
		lens = append(lens, conv.Len())
	})

	conv.AppendUserMessage("q")
	conv.BeginRequest()
	conv.AppendAssistantMessage("a", Annotations{})
	conv.EndRequest()
	unsubscribe()
	conv.AppendUserMessage("ignored")

	require.Len(t, events, 4)
	assert.Equal(t, EventAppended, events[0].Kind)
	assert.Equal(t, "q", events[0].Message.Content)
	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, EventPending, events[1].Kind)
	assert.True(t, events[1].Pending)
	assert.Equal(t, EventAppended, events[2].Kind)
	assert.True(t, events[2].Pending)
	assert.Equal(t, EventPending, events[3].Kind)
	assert.False(t, events[3].Pending)
	assert.Equal(t, []int{1, 1, 2, 2}, lens, "observers see the change already applied")
	for _, e := range events {
		assert.Equal(t, conv.ID(), e.ConversationID)
	}
}

// =============================================================================
// METADATA TESTS
// =============================================================================

func TestMeta(t *testing.T) {
	conv := NewConversation(WithID("conv_fixed"))
	assert.Equal(t, DefaultTitle, conv.Title())

	conv.AppendAssistantMessage("欢迎", Annotations{})
	conv.AppendUserMessage("我的订单\nORD-1 到哪了")
	conv.AppendUserMessage("second")

	meta := conv.Meta()
	assert.Equal(t, "conv_fixed", meta.ID)
	assert.Equal(t, "我的订单 ORD-1 到哪了", meta.Title)
	assert.Equal(t, 3, meta.MessageCount)
	assert.Equal(t, "second", meta.Preview)
	assert.False(t, meta.UpdatedAt.Before(meta.CreatedAt))
}

func TestRole(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("system").Valid())
	assert.Equal(t, "智能客服", RoleAssistant.DisplayName())
}
