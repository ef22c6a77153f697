// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient, user-facing notification.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier presents notices. The TUI shows them as toasts, the CLI prints
// them.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}

func errorNotice(title, msg string) Notice {
	return Notice{Level: LevelError, Title: title, Message: msg}
}

func successNotice(title, msg string) Notice {
	return Notice{Level: LevelSuccess, Title: title, Message: msg}
}
