// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/auth"
)

var (
	// ErrDocumentsFailed is the Kind of knowledge-base failures.
	ErrDocumentsFailed = errors.New("knowledge base request failed")

	// ErrUnsupportedFile rejects a file whose extension is not accepted.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// DefaultExtensions returns the file types the backend indexes.
func DefaultExtensions() []string {
	return []string{".txt", ".md", ".pdf"}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// DocumentAPI is the knowledge-base backend. *api.Client implements it.
type DocumentAPI interface {
	ListDocuments(ctx context.Context) (*api.Envelope[api.DocumentList], error)
	UploadDocuments(ctx context.Context, paths []string) (*api.Envelope[api.UploadResult], error)
	UploadAndReindex(ctx context.Context, paths []string) (*api.Envelope[api.UploadResult], error)
	Reindex(ctx context.Context) (*api.Envelope[api.ReindexResult], error)
	ClearDocuments(ctx context.Context, filename string) (*api.Envelope[api.ClearResult], error)
}

// Documents runs knowledge-base maintenance. Every operation requires the
// rag_access capability from the checker it was built with.
type Documents struct {
	api     DocumentAPI
	checker auth.Checker
	opts    options
	log     *zap.Logger
}

// NewDocuments creates the knowledge-base flow gated by checker.
func NewDocuments(d DocumentAPI, checker auth.Checker, opts ...Option) *Documents {
	o := buildOptions(opts)
	return &Documents{api: d, checker: checker, opts: o, log: o.logger.Named("documents")}
}

// Eligible reports whether path has an accepted extension.
func (d *Documents) Eligible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range d.opts.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Extensions returns the accepted extensions.
func (d *Documents) Extensions() []string {
	return append([]string(nil), d.opts.extensions...)
}

func (d *Documents) gate() error {
	err := auth.Gate(d.checker, auth.CapRAGAccess)
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		d.opts.notifier.Notify(errorNotice(TitleNoAccess, MsgLoginRequired))
	case errors.Is(err, auth.ErrForbidden):
		d.opts.notifier.Notify(errorNotice(TitleNoAccess, MsgNoAccess))
	}
	return err
}

// failure reduces, logs and notifies a failed call.
func failure[T any](d *Documents, title, fallback string, env *api.Envelope[T], err error) error {
	if err != nil {
		fallback = MsgNetworkError
	}
	msg := api.ErrorText(env, err, fallback)
	d.log.Info("knowledge base request failed", zap.String("op", title), zap.String("reason", msg))
	d.opts.notifier.Notify(errorNotice(title, msg))
	return fail(ErrDocumentsFailed, msg, err)
}

// List returns the indexed files.
func (d *Documents) List(ctx context.Context) ([]api.Document, error) {
	if err := d.gate(); err != nil {
		return nil, err
	}
	env, err := d.api.ListDocuments(ctx)
	if err != nil || !env.OK() {
		return nil, failure(d, TitleListFailed, MsgListFailed, env, err)
	}
	return env.Data.Files, nil
}

// Upload stores files without reindexing.
func (d *Documents) Upload(ctx context.Context, paths []string) (api.UploadResult, error) {
	return d.upload(ctx, paths, d.api.UploadDocuments)
}

// UploadAndReindex stores files and rebuilds the index.
func (d *Documents) UploadAndReindex(ctx context.Context, paths []string) (api.UploadResult, error) {
	return d.upload(ctx, paths, d.api.UploadAndReindex)
}

func (d *Documents) upload(
	ctx context.Context,
	paths []string,
	send func(context.Context, []string) (*api.Envelope[api.UploadResult], error),
) (api.UploadResult, error) {
	if err := d.gate(); err != nil {
		return api.UploadResult{}, err
	}
	if len(paths) == 0 {
		d.opts.notifier.Notify(errorNotice(TitleNoFiles, MsgNoFiles))
		return api.UploadResult{}, api.ErrNoFiles
	}
	// Ineligible files are dropped with a notice; the rest still upload.
	valid := make([]string, 0, len(paths))
	for _, p := range paths {
		if d.Eligible(p) {
			valid = append(valid, p)
		}
	}
	if len(valid) != len(paths) {
		d.opts.notifier.Notify(errorNotice(TitleBadFormat, MsgBadFormat))
		d.log.Info("skipped unsupported files", zap.Int("skipped", len(paths)-len(valid)))
	}
	if len(valid) == 0 {
		return api.UploadResult{}, ErrUnsupportedFile
	}

	env, err := send(ctx, valid)
	if err != nil || !env.OK() {
		return api.UploadResult{}, failure(d, TitleUploadFailed, "上传失败", env, err)
	}

	res := *env.Data
	d.log.Info("documents uploaded", zap.Int("uploaded", len(res.Uploaded)), zap.Int("failed", len(res.Failed)))
	d.opts.notifier.Notify(successNotice(TitleUploadOK, UploadSummary(res)))
	return res, nil
}

// Reindex rebuilds the index from the stored files.
func (d *Documents) Reindex(ctx context.Context) error {
	if err := d.gate(); err != nil {
		return err
	}
	env, err := d.api.Reindex(ctx)
	if err != nil || env == nil || !env.Success {
		return failure(d, TitleReindexFailed, "更新失败", env, err)
	}
	d.log.Info("index rebuilt")
	d.opts.notifier.Notify(successNotice(TitleReindexOK, MsgReindexOK))
	return nil
}

// Clear deletes one file and its index entries, or everything when
// filename is empty. Callers confirm with the user first.
func (d *Documents) Clear(ctx context.Context, filename string) (int, error) {
	if err := d.gate(); err != nil {
		return 0, err
	}
	filename = strings.TrimSpace(filename)
	env, err := d.api.ClearDocuments(ctx, filename)

	title, failTitle, fallback := TitleDeleteOK, TitleDeleteFailed, "删除失败"
	if filename == "" {
		title, failTitle, fallback = TitleClearOK, TitleClearFailed, "清空失败"
	}
	if err != nil || env == nil || !env.Success {
		return 0, failure(d, failTitle, fallback, env, err)
	}

	deleted := 0
	if env.Data != nil {
		deleted = env.Data.DeletedCount
	}
	d.log.Info("knowledge base cleared", zap.String("filename", filename), zap.Int("deleted", deleted))
	d.opts.notifier.Notify(successNotice(title, ClearSummary(filename, deleted)))
	return deleted, nil
}

// UploadSummary describes an upload result.
func UploadSummary(res api.UploadResult) string {
	s := fmt.Sprintf("成功上传 %d 个文件", len(res.Uploaded))
	if res.IndexUpdated != nil && *res.IndexUpdated {
		s += "，知识库已更新"
	}
	if n := len(res.Failed); n > 0 {
		s += fmt.Sprintf("，%d 个文件上传失败", n)
	}
	return s
}

// ClearSummary describes a clear result.
func ClearSummary(filename string, deleted int) string {
	switch {
	case filename != "" && deleted > 0:
		return fmt.Sprintf("已删除文件 %q，删除了 %d 条记录", filename, deleted)
	case filename != "":
		return fmt.Sprintf("已删除文件 %q", filename)
	case deleted > 0:
		return fmt.Sprintf("已删除 %d 条记录", deleted)
	default:
		return MsgClearOK
	}
}

// ClearConfirmPrompt is the question asked before Clear.
func ClearConfirmPrompt(filename string) string {
	if filename == "" {
		return "确定要清空整个知识库吗？此操作将删除所有已索引的文档，且无法恢复！"
	}
	return fmt.Sprintf("确定要删除文件 %q 吗？此操作将删除该文件及其所有索引，且无法恢复！", filename)
}
