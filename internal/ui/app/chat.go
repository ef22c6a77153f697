// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/model"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/ui/components"
)

const inputHeight = 3

// replyMsg reports that an exchange settled. The reply itself arrives as a
// conversation event.
type replyMsg struct{ convID string }

type chatView struct {
	m        *Model
	renderer *components.BlockRenderer

	chat   *orchestrator.Chat
	detach func()
	unsub  func()

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// rendered caches message bubbles by ID for the current width.
	rendered      map[string]string
	renderedWidth int
}

func newChatView(m *Model, r *components.BlockRenderer) *chatView {
	input := textarea.New()
	input.Placeholder = "请输入您的问题，enter 发送，alt+enter 换行"
	input.ShowLineNumbers = false
	input.CharLimit = 2000
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &chatView{
		m:        m,
		renderer: r,
		viewport: viewport.New(80, 10),
		input:    input,
		spinner:  sp,
		rendered: make(map[string]string),
	}
}

// open starts a new conversation for the signed-in user, releasing any
// previous one.
func (v *chatView) open() {
	v.release()
	owner := ""
	if id, ok := v.m.deps.Session.Identity(); ok {
		owner = id.Email
	}
	chat, detach := v.m.deps.NewChat(owner)
	if detach == nil {
		detach = func() {}
	}
	v.chat, v.detach = chat, detach
	v.unsub = chat.Conversation().Subscribe(func(e model.Event) {
		v.m.post(conversationMsg{convID: e.ConversationID, event: e})
	})
	v.rendered = make(map[string]string)
	v.input.Reset()
	v.refresh()
}

// release detaches the current conversation. Safe to call repeatedly.
func (v *chatView) release() {
	if v.unsub != nil {
		v.unsub()
		v.unsub = nil
	}
	if v.detach != nil {
		v.detach()
		v.detach = nil
	}
	v.chat = nil
}

func (v *chatView) conversation() *model.Conversation {
	if v.chat == nil {
		return nil
	}
	return v.chat.Conversation()
}

func (v *chatView) focus() tea.Cmd {
	return v.input.Focus()
}

func (v *chatView) resize(width, height int) {
	v.input.SetWidth(width)
	v.viewport.Width = width
	h := height - inputHeight - 1
	if h < 1 {
		h = 1
	}
	v.viewport.Height = h
	v.refresh()
}

// onEvent redraws when the current conversation changes. Events from a
// conversation that was replaced are ignored.
func (v *chatView) onEvent(msg conversationMsg) {
	conv := v.conversation()
	if conv == nil || msg.convID != conv.ID() {
		return
	}
	v.refresh()
}

func (v *chatView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case replyMsg:
		v.refresh()
		return nil

	case spinner.TickMsg:
		if conv := v.conversation(); conv == nil || !conv.Pending() {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return v.send()
		case "ctrl+n":
			v.open()
			return nil
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			v.viewport, cmd = v.viewport.Update(msg)
			return cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

// send appends the user message synchronously, then completes the exchange
// in a command.
func (v *chatView) send() tea.Cmd {
	if v.chat == nil {
		return nil
	}
	ex, err := v.chat.Start(v.input.Value())
	switch {
	case errors.Is(err, orchestrator.ErrEmptyInput):
		return nil
	case errors.Is(err, orchestrator.ErrBusy):
		v.m.deps.Toasts.Notify(orchestrator.Notice{
			Level:   orchestrator.LevelInfo,
			Title:   "请稍候",
			Message: "上一条消息仍在处理中",
		})
		return nil
	case err != nil:
		v.m.log.Warn("send failed", zap.Error(err))
		return nil
	}

	v.input.Reset()
	ctx := v.m.ctx
	convID := v.chat.Conversation().ID()
	complete := func() tea.Msg {
		ex.Complete(ctx)
		return replyMsg{convID: convID}
	}
	return tea.Batch(complete, v.spinner.Tick)
}

// refresh rebuilds the viewport from the conversation. The viewport stays
// pinned to the bottom unless the user scrolled up.
func (v *chatView) refresh() {
	conv := v.conversation()
	if conv == nil {
		v.viewport.SetContent("")
		return
	}
	width := v.viewport.Width
	if width != v.renderedWidth {
		v.rendered = make(map[string]string)
		v.renderedWidth = width
		v.renderer.SetWidth(width)
	}

	atBottom := v.viewport.AtBottom()
	transcript := conv.Transcript()
	parts := make([]string, 0, len(transcript)+1)
	if len(transcript) == 0 {
		parts = append(parts, v.m.deps.Theme.Muted.Render("您好！我是智能客服，可以帮您查询订单、解答产品问题。"))
	}
	for _, msg := range transcript {
		out, ok := v.rendered[msg.ID]
		if !ok {
			out = components.RenderMessage(msg, v.renderer)
			v.rendered[msg.ID] = out
		}
		parts = append(parts, out)
	}
	if conv.Pending() {
		parts = append(parts, components.RenderPending(v.renderer, v.spinner.View()))
	}

	v.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, parts...))
	if atBottom || conv.Pending() {
		v.viewport.GotoBottom()
	}
}

func (v *chatView) view() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		v.viewport.View(),
		v.m.deps.Theme.Input.Width(v.viewport.Width).Render(v.input.View()),
	)
}

func (v *chatView) help() string {
	return "enter 发送 · ctrl+n 新会话 · pgup/pgdown 滚动 · F2 订单 · F3 知识库"
}
