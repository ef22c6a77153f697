// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
)

type (
	orderMsg struct {
		order api.Order
		err   error
	}
	emailMsg struct{ err error }
)

type ordersView struct {
	m          *Model
	input      textinput.Model
	order      *api.Order
	busy       bool
	confirming bool
}

func newOrdersView(m *Model) *ordersView {
	in := textinput.New()
	in.Placeholder = "例如 ORD-20240001"
	in.CharLimit = 64
	in.Width = 30
	return &ordersView{m: m, input: in}
}

func (v *ordersView) focus() tea.Cmd {
	return v.input.Focus()
}

func (v *ordersView) reset() {
	v.input.Reset()
	v.order = nil
	v.busy = false
	v.confirming = false
}

func (v *ordersView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case orderMsg:
		v.busy = false
		if msg.err != nil {
			v.order = nil
			return nil
		}
		order := msg.order
		v.order = &order
		return nil

	case emailMsg:
		v.busy = false
		return nil

	case tea.KeyMsg:
		if v.busy {
			return nil
		}
		if v.confirming {
			switch strings.ToLower(msg.String()) {
			case "y", "enter":
				v.confirming = false
				return v.sendEmail()
			case "n", "esc":
				v.confirming = false
			}
			return nil
		}
		switch msg.String() {
		case "enter":
			return v.lookup()
		case "ctrl+e":
			if v.order != nil && v.order.CanSendEmail {
				v.confirming = true
			}
			return nil
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

func (v *ordersView) lookup() tea.Cmd {
	v.busy = true
	ctx, flow, id := v.m.ctx, v.m.deps.Orders, v.input.Value()
	return func() tea.Msg {
		order, err := flow.Lookup(ctx, id)
		return orderMsg{order: order, err: err}
	}
}

func (v *ordersView) sendEmail() tea.Cmd {
	v.busy = true
	ctx, flow, order := v.m.ctx, v.m.deps.Orders, *v.order
	return func() tea.Msg {
		return emailMsg{err: flow.SendEmail(ctx, order)}
	}
}

func (v *ordersView) view(width int) string {
	theme := v.m.deps.Theme
	rows := []string{
		theme.Title.Render("订单查询"),
		"",
		theme.Label.Render("订单号") + theme.Input.Render(v.input.View()),
		"",
	}

	if v.busy {
		rows = append(rows, theme.Muted.Render("处理中..."))
	}

	if o := v.order; o != nil {
		field := func(k, val string) string {
			return theme.Label.Render(k) + val
		}
		rows = append(rows,
			field("订单号", o.OrderID),
			field("客户", o.CustomerName),
			field("邮箱", o.CustomerEmail),
			field("商品", o.Product),
			field("状态", o.Status),
			field("金额", string(o.Amount)),
			field("创建", o.CreatedAt),
			field("更新", o.UpdatedAt),
		)
		if v.confirming {
			rows = append(rows, "", theme.Confirm.Render(orchestrator.EmailConfirmPrompt(*o)+" (y/n)"))
		}
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (v *ordersView) help() string {
	if v.confirming {
		return "y 确认发送 · n 取消"
	}
	h := "enter 查询"
	if v.order != nil && v.order.CanSendEmail {
		h += " · ctrl+e 发送邮件"
	}
	return h + " · F1 对话 · F3 知识库"
}
