// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the kefu TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values, so the same palette works on
light and dark terminals:

	Brand, Accent     - header, focus, selections
	Success, Danger   - notices and failed replies
	UserBubble*       - the customer's messages
	AssistantBubble*  - the assistant's messages
	TableHeader*      - header row of reply tables

# Theme System (theme.go)

Theme bundles the lipgloss styles used by the screens. NewTheme detects the
background with termenv unless the configured theme forces one:

	theme := styles.NewTheme("auto")
	fmt.Println(theme.Title.Render("智能客服"))
*/
package styles
