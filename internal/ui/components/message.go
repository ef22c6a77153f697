// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/model"
)

// RenderMessage draws one transcript entry. User messages are shown
// verbatim; assistant messages go through r block by block.
func RenderMessage(msg model.Message, r *BlockRenderer) string {
	theme := r.theme
	inner := r.Width() - 4
	if inner < 10 {
		inner = 10
	}

	head := theme.Speaker.Render(msg.Role.DisplayName()) + "  " +
		theme.Timestamp.Render(msg.Timestamp.Local().Format("15:04:05"))

	var body string
	style := theme.AssistantBubble
	align := lipgloss.Left
	switch {
	case msg.Role == model.RoleUser:
		style = theme.UserBubble
		align = lipgloss.Right
		body = lipgloss.NewStyle().Width(inner).Render(msg.Content)
	case msg.Failed:
		style = theme.FailedBubble
		body = lipgloss.NewStyle().Width(inner).Render(content.PlainText(msg.Blocks))
	default:
		saved := r.Width()
		r.SetWidth(inner)
		body = r.Render(msg.Blocks)
		r.SetWidth(saved)
	}

	if note := AnnotationLine(msg.Annotations()); note != "" {
		body += "\n" + theme.Annotation.Render(note)
	}

	bubble := lipgloss.JoinVertical(align, head, style.Render(body))
	if align == lipgloss.Right && r.Width() > 0 {
		return lipgloss.PlaceHorizontal(r.Width(), lipgloss.Right, bubble)
	}
	return bubble
}

// RenderPending is the placeholder shown while a reply is outstanding.
func RenderPending(r *BlockRenderer, frame string) string {
	theme := r.theme
	return theme.Speaker.Render(model.RoleAssistant.DisplayName()) + "  " +
		theme.Muted.Render(frame+" 正在思考...")
}

// AnnotationLine summarizes the backend annotations of a reply.
func AnnotationLine(a model.Annotations) string {
	var parts []string
	if a.Intent != "" {
		parts = append(parts, "意图: "+a.Intent)
	}
	if id := relatedOrderID(a.RelatedOrder); id != "" {
		parts = append(parts, "相关订单: "+id)
	}
	if n := countDocuments(a.RelatedDocuments); n > 0 {
		parts = append(parts, fmt.Sprintf("参考文档: %d", n))
	}
	return strings.Join(parts, " · ")
}

func relatedOrderID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var o struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return ""
	}
	return o.OrderID
}

func countDocuments(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return 0
	}
	return len(docs)
}
