// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
)

type docsMode int

const (
	docsBrowse docsMode = iota
	docsUpload
	docsConfirmClear
)

type (
	docsListMsg struct {
		files []api.Document
		err   error
	}
	// docsDoneMsg follows any mutation; the list is reloaded.
	docsDoneMsg struct{ err error }
)

type docsView struct {
	m     *Model
	table table.Model
	paths textinput.Model
	files []api.Document
	mode  docsMode
	busy  bool

	// clearTarget is the file to delete; empty clears everything.
	clearTarget string
}

func newDocsView(m *Model) *docsView {
	t := table.New(
		table.WithColumns(docsColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	in := textinput.New()
	in.Placeholder = "文件路径，多个用空格分隔 (.txt .md .pdf)"
	in.Width = 60
	return &docsView{m: m, table: t, paths: in}
}

func docsColumns(width int) []table.Column {
	name := width - 12 - 16 - 8
	if name < 16 {
		name = 16
	}
	return []table.Column{
		{Title: "文件名", Width: name},
		{Title: "大小", Width: 12},
		{Title: "修改时间", Width: 16},
	}
}

func (v *docsView) resize(width, height int) {
	v.table.SetColumns(docsColumns(width))
	h := height - 4
	if h < 3 {
		h = 3
	}
	v.table.SetHeight(h)
}

func (v *docsView) reset() {
	v.files = nil
	v.table.SetRows(nil)
	v.paths.Reset()
	v.mode = docsBrowse
	v.busy = false
}

func (v *docsView) refresh() tea.Cmd {
	v.busy = true
	ctx, flow := v.m.ctx, v.m.deps.Documents
	return func() tea.Msg {
		files, err := flow.List(ctx)
		return docsListMsg{files: files, err: err}
	}
}

func (v *docsView) run(op func() error) tea.Cmd {
	v.busy = true
	return func() tea.Msg { return docsDoneMsg{err: op()} }
}

func (v *docsView) setFiles(files []api.Document) {
	v.files = files
	rows := make([]table.Row, 0, len(files))
	for _, f := range files {
		modified := ""
		if !f.Modified.IsZero() {
			modified = humanize.Time(f.Modified.Time)
		}
		rows = append(rows, table.Row{f.Filename, humanize.IBytes(uint64(f.Size)), modified})
	}
	v.table.SetRows(rows)
}

func (v *docsView) update(msg tea.Msg) tea.Cmd {
	ctx, flow := v.m.ctx, v.m.deps.Documents

	switch msg := msg.(type) {
	case docsListMsg:
		v.busy = false
		if msg.err == nil {
			v.setFiles(msg.files)
		}
		return nil

	case docsDoneMsg:
		v.busy = false
		return v.refresh()

	case tea.KeyMsg:
		if v.busy {
			return nil
		}
		switch v.mode {
		case docsUpload:
			switch msg.String() {
			case "esc":
				v.mode = docsBrowse
				v.paths.Blur()
				return nil
			case "enter":
				paths := splitPaths(v.paths.Value())
				v.paths.Reset()
				v.paths.Blur()
				v.mode = docsBrowse
				return v.run(func() error {
					_, err := flow.UploadAndReindex(ctx, paths)
					return err
				})
			}
			var cmd tea.Cmd
			v.paths, cmd = v.paths.Update(msg)
			return cmd

		case docsConfirmClear:
			switch strings.ToLower(msg.String()) {
			case "y", "enter":
				v.mode = docsBrowse
				target := v.clearTarget
				return v.run(func() error {
					_, err := flow.Clear(ctx, target)
					return err
				})
			case "n", "esc":
				v.mode = docsBrowse
			}
			return nil
		}

		switch msg.String() {
		case "r":
			return v.refresh()
		case "u":
			v.mode = docsUpload
			return v.paths.Focus()
		case "i":
			return v.run(func() error { return flow.Reindex(ctx) })
		case "d":
			if row := v.table.SelectedRow(); row != nil {
				v.clearTarget = row[0]
				v.mode = docsConfirmClear
			}
			return nil
		case "D":
			v.clearTarget = ""
			v.mode = docsConfirmClear
			return nil
		}
	}

	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return cmd
}

// splitPaths accepts space, comma or newline separated paths.
func splitPaths(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	})
}

func (v *docsView) view() string {
	theme := v.m.deps.Theme
	title := theme.Title.Render("知识库") + "  " +
		theme.Muted.Render(humanize.Comma(int64(len(v.files)))+" 个文件")

	var line string
	switch {
	case v.busy:
		line = theme.Muted.Render("处理中...")
	case v.mode == docsUpload:
		line = theme.Label.Render("上传") + v.paths.View()
	case v.mode == docsConfirmClear:
		line = theme.Confirm.Render(orchestrator.ClearConfirmPrompt(v.clearTarget) + " (y/n)")
	case len(v.files) == 0:
		line = theme.Muted.Render("暂无文件")
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, v.table.View(), line)
}

func (v *docsView) help() string {
	switch v.mode {
	case docsUpload:
		return "enter 上传并更新 · esc 取消"
	case docsConfirmClear:
		return "y 确认 · n 取消"
	}
	return "r 刷新 · u 上传 · i 重建索引 · d 删除所选 · D 清空 · F1 对话"
}
