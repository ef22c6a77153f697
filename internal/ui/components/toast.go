// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/ui/styles"
)

// =============================================================================
// TOAST
// =============================================================================

// DefaultToastDuration is how long info and success toasts stay up.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is longer so errors can be read.
const ErrorToastDuration = 8 * time.Second

// maxToasts caps the visible stack.
const maxToasts = 5

// Toast is one visible notice.
type Toast struct {
	ID        int
	Notice    orchestrator.Notice
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should be dismissed at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the active toasts, newest first. It is safe for
// concurrent use.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	now    func() time.Time

	// onChange, when set, is called after a notice is added.
	onChange func()
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, now: time.Now}
}

// OnChange registers a callback run after each Notify, outside the lock.
// The TUI uses it to wake the program.
func (m *ToastManager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Notify implements orchestrator.Notifier.
func (m *ToastManager) Notify(n orchestrator.Notice) {
	d := DefaultToastDuration
	if n.Level == orchestrator.LevelError {
		d = ErrorToastDuration
	}

	m.mu.Lock()
	t := Toast{ID: m.nextID, Notice: n, CreatedAt: m.now(), Duration: d}
	m.nextID++
	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[:maxToasts]
	}
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Dismiss removes the newest toast.
func (m *ToastManager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) > 0 {
		m.toasts = m.toasts[1:]
	}
}

// Tick drops expired toasts and returns the remaining ones.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return append([]Toast(nil), m.toasts...)
}

// Toasts returns a copy of the active toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// ToastTickMsg drives expiry.
type ToastTickMsg time.Time

// ToastTickCmd schedules the next expiry check.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg(t)
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderToast draws one toast at most width cells wide.
func RenderToast(t Toast, width int) string {
	maxWidth := 48
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	color, icon := styles.Info, styles.StatusIndicators.Info
	switch t.Notice.Level {
	case orchestrator.LevelError:
		color, icon = styles.Danger, styles.StatusIndicators.Error
	case orchestrator.LevelSuccess:
		color, icon = styles.Success, styles.StatusIndicators.Success
	}

	head := lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon + " " + t.Notice.Title)
	body := lipgloss.NewStyle().Foreground(styles.TextPrimary).Width(maxWidth - 4).Render(t.Notice.Message)

	content := head
	if strings.TrimSpace(t.Notice.Message) != "" {
		content += "\n" + body
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(maxWidth).
		Render(content)
}

// RenderToastStack stacks toasts right-aligned, newest at the bottom.
func RenderToastStack(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		rendered = append(rendered, RenderToast(toasts[i], width))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
	}
	return stack
}
