// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/auth"
	"github.com/jeranaias/kefu-tui/internal/model"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/ui/components"
	"github.com/jeranaias/kefu-tui/internal/ui/styles"
)

// ChatFactory starts a fresh conversation for owner. The returned release
// function detaches anything attached to it (such as the history archive).
type ChatFactory func(owner string) (chat *orchestrator.Chat, release func())

// Deps are the collaborators the program drives.
type Deps struct {
	Theme     *styles.Theme
	Session   *auth.Session
	Auth      *orchestrator.Authenticator
	Orders    *orchestrator.Orders
	Documents *orchestrator.Documents
	Toasts    *components.ToastManager
	NewChat   ChatFactory
	Markdown  bool
	Logger    *zap.Logger
}

type screen int

const (
	screenLogin screen = iota
	screenChat
	screenOrders
	screenDocs
)

var screenNames = map[screen]string{
	screenChat:   "F1 对话",
	screenOrders: "F2 订单",
	screenDocs:   "F3 知识库",
}

// eventBuffer bounds conversation and toast events waiting for the program.
// A dropped one only delays a redraw because views re-read the store.
// Session changes never go through it.
const eventBuffer = 256

// =============================================================================
// MESSAGES
// =============================================================================

type (
	conversationMsg struct {
		convID string
		event  model.Event
	}
	sessionMsg   struct{}
	toastWakeMsg struct{}
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the root bubbletea model.
type Model struct {
	deps   Deps
	ctx    context.Context
	log    *zap.Logger
	events chan tea.Msg

	// sessionChanged holds at most one pending wake-up. The handler
	// re-reads the session, so changes that coalesce are never lost.
	sessionChanged chan struct{}
	owner          string // account the open chat belongs to

	screen        screen
	width, height int

	login  *loginView
	chat   *chatView
	orders *ordersView
	docs   *docsView

	unsubscribe func()
}

// New builds the root model. ctx bounds every backend call it starts.
func New(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Toasts == nil {
		deps.Toasts = components.NewToastManager()
	}
	m := &Model{
		deps:   deps,
		ctx:    ctx,
		log:    deps.Logger.Named("tui"),
		events: make(chan tea.Msg, eventBuffer),
		screen: screenLogin,

		sessionChanged: make(chan struct{}, 1),
	}
	renderer := components.NewBlockRenderer(deps.Theme, 80, deps.Markdown)
	m.login = newLoginView(m)
	m.chat = newChatView(m, renderer)
	m.orders = newOrdersView(m)
	m.docs = newDocsView(m)

	m.unsubscribe = deps.Session.Subscribe(func(auth.Event) {
		select {
		case m.sessionChanged <- struct{}{}:
		default:
		}
	})
	deps.Toasts.OnChange(func() { m.post(toastWakeMsg{}) })

	if deps.Session.IsAuthenticated() {
		m.enterChat()
	}
	return m
}

// post queues msg for the program without blocking the publisher.
func (m *Model) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		m.log.Debug("event dropped", zap.Any("msg", msg))
	}
}

// waitForEvent delivers the next store event to Update.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.sessionChanged:
			return sessionMsg{}
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Close releases subscriptions.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.chat.release()
}

// Run starts the program in the alternate screen and blocks until it quits.
func Run(ctx context.Context, deps Deps) error {
	m := New(ctx, deps)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), components.ToastTickCmd(), m.login.focus())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case components.ToastTickMsg:
		before := len(m.deps.Toasts.Toasts())
		if len(m.deps.Toasts.Tick()) != before {
			m.layout()
		}
		return m, components.ToastTickCmd()

	case toastWakeMsg:
		m.layout()
		return m, m.waitForEvent()

	case sessionMsg:
		m.onSession()
		return m, tea.Batch(m.waitForEvent(), m.focusCmd())

	case conversationMsg:
		m.chat.onEvent(msg)
		return m, m.waitForEvent()

	case tea.KeyMsg:
		if cmd, handled := m.globalKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.screen {
	case screenLogin:
		cmd = m.login.update(msg)
	case screenChat:
		cmd = m.chat.update(msg)
	case screenOrders:
		cmd = m.orders.update(msg)
	case screenDocs:
		cmd = m.docs.update(msg)
	}
	return m, cmd
}

func (m *Model) globalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true
	case "ctrl+x":
		m.deps.Toasts.Dismiss()
		m.layout()
		return nil, true
	}
	if m.screen == screenLogin {
		return nil, false
	}
	switch msg.String() {
	case "f1":
		return m.switchTo(screenChat), true
	case "f2":
		return m.switchTo(screenOrders), true
	case "f3":
		return m.switchTo(screenDocs), true
	case "ctrl+l":
		m.deps.Auth.Logout()
		return nil, true
	}
	return nil, false
}

func (m *Model) switchTo(s screen) tea.Cmd {
	if s == screenDocs {
		if err := auth.Gate(m.deps.Session, auth.CapRAGAccess); err != nil {
			msg := orchestrator.MsgNoAccess
			if errors.Is(err, auth.ErrNotAuthenticated) {
				msg = orchestrator.MsgLoginRequired
			}
			m.deps.Toasts.Notify(orchestrator.Notice{Level: orchestrator.LevelError, Title: orchestrator.TitleNoAccess, Message: msg})
			m.layout()
			return nil
		}
	}
	m.screen = s
	cmd := m.focusCmd()
	if s == screenDocs {
		cmd = tea.Batch(cmd, m.docs.refresh())
	}
	return cmd
}

func (m *Model) focusCmd() tea.Cmd {
	switch m.screen {
	case screenLogin:
		return m.login.focus()
	case screenChat:
		return m.chat.focus()
	case screenOrders:
		return m.orders.focus()
	}
	return nil
}

// onSession follows login and logout: a login opens a fresh conversation,
// a logout drops back to the login form from any screen.
// onSession moves the screens to match the current session state.
func (m *Model) onSession() {
	id, ok := m.deps.Session.Identity()
	switch {
	case !ok:
		if m.screen != screenLogin || m.chat.conversation() != nil {
			m.leave()
		}
	case m.screen == screenLogin:
		m.enterChat()
	case id.Email != m.owner:
		m.leave()
		m.enterChat()
	}
}

func (m *Model) enterChat() {
	m.chat.open()
	m.owner = ""
	if id, ok := m.deps.Session.Identity(); ok {
		m.owner = id.Email
	}
	m.screen = screenChat
	m.layout()
}

func (m *Model) leave() {
	m.chat.release()
	m.orders.reset()
	m.docs.reset()
	m.login.reset()
	m.owner = ""
	m.screen = screenLogin
}

// =============================================================================
// LAYOUT AND VIEW
// =============================================================================

func (m *Model) toastView() string {
	return components.RenderToastStack(m.deps.Toasts.Toasts(), m.width)
}

// layout recomputes the body size left over after header, toasts and footer.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
	if t := m.toastView(); t != "" {
		chrome += lipgloss.Height(t)
	}
	body := m.height - chrome
	if body < 3 {
		body = 3
	}
	m.chat.resize(m.width, body)
	m.docs.resize(m.width, body)
}

func (m *Model) headerView() string {
	theme := m.deps.Theme
	left := theme.Title.Render("智能客服")
	if id, ok := m.deps.Session.Identity(); ok {
		left += "  " + theme.Subtitle.Render(id.Name())
	}

	var tabs []string
	if m.screen != screenLogin {
		for _, s := range []screen{screenChat, screenOrders, screenDocs} {
			style := theme.Tab
			if s == m.screen {
				style = theme.TabOn
			}
			tabs = append(tabs, style.Render(screenNames[s]))
		}
	}
	right := strings.Join(tabs, "")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) footerView() string {
	var help string
	switch m.screen {
	case screenLogin:
		help = m.login.help()
	case screenChat:
		help = m.chat.help()
	case screenOrders:
		help = m.orders.help()
	case screenDocs:
		help = m.docs.help()
	}
	if m.screen != screenLogin {
		help += " · ctrl+l 退出登录"
	}
	help += " · ctrl+c 退出"
	return m.deps.Theme.StatusBar.Width(m.width).Render(help)
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenLogin:
		body = m.login.view(m.width, m.height)
	case screenChat:
		body = m.chat.view()
	case screenOrders:
		body = m.orders.view(m.width)
	case screenDocs:
		body = m.docs.view()
	}

	parts := []string{m.headerView(), body}
	if t := m.toastView(); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
