// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the kefu TUI.

# Display Components

BlockRenderer (blocks.go) - draws parsed reply blocks: prose through glamour,
tables through lipgloss/table.
RenderMessage (message.go) - one transcript entry as a bubble with speaker,
time and annotations.

# Feedback

ToastManager (toast.go) - auto-dismissing notices in the bottom-right corner.
It implements orchestrator.Notifier, so flows can report directly to the
screen from any goroutine.
*/
package components
