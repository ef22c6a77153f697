// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kefu-tui/internal/auth"
)

type loginResultMsg struct {
	identity auth.Identity
	err      error
}

type loginView struct {
	m        *Model
	email    textinput.Model
	password textinput.Model
	focused  int
	busy     bool
	err      string
}

func newLoginView(m *Model) *loginView {
	email := textinput.New()
	email.Placeholder = "name@example.com"
	email.CharLimit = 254
	email.Width = 32

	password := textinput.New()
	password.Placeholder = "至少6个字符"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Width = 32

	return &loginView{m: m, email: email, password: password}
}

func (v *loginView) focus() tea.Cmd {
	if v.focused == 0 {
		v.password.Blur()
		return v.email.Focus()
	}
	v.email.Blur()
	return v.password.Focus()
}

func (v *loginView) reset() {
	v.password.Reset()
	v.busy = false
	v.err = ""
	v.focused = 0
}

func (v *loginView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginResultMsg:
		v.busy = false
		v.password.Reset()
		if msg.err != nil {
			v.err = msg.err.Error()
			v.focused = 1
			return v.focus()
		}
		v.err = ""
		return nil

	case tea.KeyMsg:
		if v.busy {
			return nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			v.focused = 1 - v.focused
			return v.focus()
		case "enter":
			if v.focused == 0 {
				v.focused = 1
				return v.focus()
			}
			return v.submit()
		}
	}

	var cmd tea.Cmd
	if v.focused == 0 {
		v.email, cmd = v.email.Update(msg)
	} else {
		v.password, cmd = v.password.Update(msg)
	}
	return cmd
}

// submit runs the login flow off the update loop. Validation failures come
// back without a network call.
func (v *loginView) submit() tea.Cmd {
	v.busy = true
	v.err = ""
	ctx, flow := v.m.ctx, v.m.deps.Auth
	email, password := v.email.Value(), v.password.Value()
	return func() tea.Msg {
		id, err := flow.Login(ctx, email, password)
		return loginResultMsg{identity: id, err: err}
	}
}

func (v *loginView) view(width, height int) string {
	theme := v.m.deps.Theme
	label := func(i int, s string) string {
		if v.focused == i {
			return theme.Focused.Inherit(theme.Label).Render(s)
		}
		return theme.Label.Render(s)
	}

	rows := []string{
		theme.Title.Render("登录"),
		"",
		label(0, "邮箱") + theme.Input.Render(v.email.View()),
		label(1, "密码") + theme.Input.Render(v.password.View()),
		"",
	}
	switch {
	case v.busy:
		rows = append(rows, theme.Muted.Render("登录中..."))
	case v.err != "":
		rows = append(rows, theme.Error.Render(v.err))
	default:
		rows = append(rows, "")
	}

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if width > 0 && height > 4 {
		return lipgloss.Place(width, height-4, lipgloss.Center, lipgloss.Center, form)
	}
	return form
}

func (v *loginView) help() string {
	return "tab 切换 · enter 登录"
}
