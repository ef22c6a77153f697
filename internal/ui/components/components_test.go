// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/model"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/ui/styles"
)

// =============================================================================
// TOASTS
// =============================================================================

func TestToastManager_NotifyAndExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewToastManager()
	m.now = func() time.Time { return now }

	changes := 0
	m.OnChange(func() { changes++ })

	var n orchestrator.Notifier = m
	n.Notify(orchestrator.Notice{Level: orchestrator.LevelSuccess, Title: "登录成功"})
	n.Notify(orchestrator.Notice{Level: orchestrator.LevelError, Title: "查询失败", Message: "限流"})

	toasts := m.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, "查询失败", toasts[0].Notice.Title, "newest first")
	assert.Equal(t, 2, changes)

	now = now.Add(DefaultToastDuration)
	toasts = m.Tick()
	require.Len(t, toasts, 1, "success toast expires first")
	assert.Equal(t, orchestrator.LevelError, toasts[0].Notice.Level)

	now = now.Add(ErrorToastDuration)
	assert.Empty(t, m.Tick())
}

func TestToastManager_CapsAndDismiss(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < maxToasts+3; i++ {
		m.Notify(orchestrator.Notice{Title: strings.Repeat("x", i+1)})
	}
	assert.Len(t, m.Toasts(), maxToasts)

	m.Dismiss()
	assert.Len(t, m.Toasts(), maxToasts-1)
}

func TestRenderToastStack(t *testing.T) {
	assert.Empty(t, RenderToastStack(nil, 80))

	out := RenderToastStack([]Toast{{
		Notice:   orchestrator.Notice{Level: orchestrator.LevelError, Title: "查询失败", Message: "限流"},
		Duration: time.Second,
	}}, 80)
	assert.Contains(t, out, "查询失败")
	assert.Contains(t, out, "限流")
	assert.Contains(t, out, styles.StatusIndicators.Error)
}

// =============================================================================
// BLOCKS
// =============================================================================

func TestBlockRenderer_Table(t *testing.T) {
	r := NewBlockRenderer(styles.NewTheme("dark"), 60, false)
	out := r.Render(content.Parse("价格 | 库存\n苹果 | 10\n香蕉"))

	// "香蕉" alone is prose, so this is a table then a text block.
	for _, want := range []string{"价格", "库存", "苹果", "10", "香蕉"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "苹果"), strings.Index(out, "香蕉"))
}

func TestBlockRenderer_RaggedTable(t *testing.T) {
	r := NewBlockRenderer(styles.NewTheme("dark"), 0, false)
	out := r.Render([]content.Block{content.Table{Rows: [][]string{
		{"a", "b", "c"},
		{"1"},
		{"2", "3", "4", "5"},
	}}})
	for _, want := range []string{"a", "1", "5"} {
		assert.Contains(t, out, want)
	}
}

func TestBlockRenderer_TruncatesWideCells(t *testing.T) {
	r := NewBlockRenderer(styles.NewTheme("dark"), 30, false)
	long := strings.Repeat("很长的描述", 10)
	out := r.Render([]content.Block{content.Table{Rows: [][]string{{"名称", "说明"}, {"A", long}}}})
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "...")
}

func TestBlockRenderer_Markdown(t *testing.T) {
	r := NewBlockRenderer(styles.NewTheme("light"), 60, true)
	out := r.Render([]content.Block{content.Text{Text: "请 **尽快** 付款"}})
	assert.NotEmpty(t, out)
	assert.NotContains(t, out, "**")
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestRenderMessage(t *testing.T) {
	r := NewBlockRenderer(styles.NewTheme("dark"), 80, false)
	ts := time.Date(2025, 1, 1, 9, 30, 0, 0, time.Local)

	user := RenderMessage(model.Message{Role: model.RoleUser, Content: "查订单", Timestamp: ts}, r)
	assert.Contains(t, user, "我")
	assert.Contains(t, user, "查订单")
	assert.Contains(t, user, "09:30:00")

	reply := model.Message{
		Role:             model.RoleAssistant,
		Timestamp:        ts,
		Blocks:           content.Parse("订单 | 状态\nORD-1 | 已发货"),
		Intent:           "order",
		RelatedOrder:     json.RawMessage(`{"order_id":"ORD-1"}`),
		RelatedDocuments: json.RawMessage(`[{"source":"faq.md"},{"source":"a.md"}]`),
	}
	out := RenderMessage(reply, r)
	assert.Contains(t, out, "智能客服")
	assert.Contains(t, out, "已发货")
	assert.Contains(t, out, "意图: order")
	assert.Contains(t, out, "相关订单: ORD-1")
	assert.Contains(t, out, "参考文档: 2")
	assert.Equal(t, 80, r.Width(), "width restored after rendering")

	failed := RenderMessage(model.Message{
		Role:   model.RoleAssistant,
		Failed: true,
		Blocks: []content.Block{content.Text{Text: "抱歉，处理您的请求时出现错误：限流"}},
	}, r)
	assert.Contains(t, failed, "限流")
}

func TestAnnotationLine_IgnoresMalformed(t *testing.T) {
	assert.Empty(t, AnnotationLine(model.Annotations{
		RelatedOrder:     json.RawMessage(`"ORD-1"`),
		RelatedDocuments: json.RawMessage(`{}`),
	}))
}
