// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/kefu-tui/internal/api"
)

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func ok[T any](data T) *api.Envelope[T] {
	return &api.Envelope[T]{Success: true, Data: &data, Status: 200}
}

func failed[T any](msg string) *api.Envelope[T] {
	return &api.Envelope[T]{Success: false, Message: msg, Status: 200}
}

// fakeQuery answers queries through fn.
type fakeQuery struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req api.QueryRequest) (*api.Envelope[api.QueryResult], error)
}

func (f *fakeQuery) Query(ctx context.Context, req api.QueryRequest) (*api.Envelope[api.QueryResult], error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

type fakeLogin struct {
	calls atomic.Int32
	env   *api.Envelope[api.LoginResult]
	err   error
}

func (f *fakeLogin) Login(ctx context.Context, req api.LoginRequest) (*api.Envelope[api.LoginResult], error) {
	f.calls.Add(1)
	return f.env, f.err
}

type fakeOrders struct {
	calls     atomic.Int32
	order     func(ctx context.Context, id string) (*api.Envelope[api.Order], error)
	emailEnv  *api.Envelope[api.SendEmailResult]
	emailErr  error
	emailSent []string
}

func (f *fakeOrders) Order(ctx context.Context, id string) (*api.Envelope[api.Order], error) {
	f.calls.Add(1)
	return f.order(ctx, id)
}

func (f *fakeOrders) SendOrderEmail(ctx context.Context, id string) (*api.Envelope[api.SendEmailResult], error) {
	f.emailSent = append(f.emailSent, id)
	return f.emailEnv, f.emailErr
}

type fakeDocs struct {
	calls    atomic.Int32
	uploaded [][]string
	list     *api.Envelope[api.DocumentList]
	upload   *api.Envelope[api.UploadResult]
	reindex  *api.Envelope[api.ReindexResult]
	clear    *api.Envelope[api.ClearResult]
	cleared  []string
	err      error
}

func (f *fakeDocs) ListDocuments(ctx context.Context) (*api.Envelope[api.DocumentList], error) {
	f.calls.Add(1)
	return f.list, f.err
}

func (f *fakeDocs) UploadDocuments(ctx context.Context, paths []string) (*api.Envelope[api.UploadResult], error) {
	f.calls.Add(1)
	f.uploaded = append(f.uploaded, paths)
	return f.upload, f.err
}

func (f *fakeDocs) UploadAndReindex(ctx context.Context, paths []string) (*api.Envelope[api.UploadResult], error) {
	return f.UploadDocuments(ctx, paths)
}

func (f *fakeDocs) Reindex(ctx context.Context) (*api.Envelope[api.ReindexResult], error) {
	f.calls.Add(1)
	return f.reindex, f.err
}

func (f *fakeDocs) ClearDocuments(ctx context.Context, filename string) (*api.Envelope[api.ClearResult], error) {
	f.calls.Add(1)
	f.cleared = append(f.cleared, filename)
	return f.clear, f.err
}
