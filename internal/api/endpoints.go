// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ErrNoFiles is returned by the upload calls when paths is empty.
var ErrNoFiles = errors.New("no files to upload")

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Envelope[LoginResult], error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	return call[LoginResult](ctx, c, request{
		method: http.MethodPost, path: "/auth/login", body: body, contentType: "application/json",
	})
}

// Query asks the assistant a question within a thread.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*Envelope[QueryResult], error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	return call[QueryResult](ctx, c, request{
		method: http.MethodPost, path: "/query/", body: body, contentType: "application/json",
	})
}

// Order looks up one order.
func (c *Client) Order(ctx context.Context, orderID string) (*Envelope[Order], error) {
	return call[Order](ctx, c, request{
		method: http.MethodGet, path: "/order/query", query: url.Values{"order_id": {orderID}},
	})
}

// SendOrderEmail asks the backend to mail the order summary to the customer.
func (c *Client) SendOrderEmail(ctx context.Context, orderID string) (*Envelope[SendEmailResult], error) {
	body, err := jsonBody(SendEmailRequest{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return call[SendEmailResult](ctx, c, request{
		method: http.MethodPost, path: "/order/send-email", body: body, contentType: "application/json",
	})
}

// ListDocuments lists the knowledge-base files.
func (c *Client) ListDocuments(ctx context.Context) (*Envelope[DocumentList], error) {
	return call[DocumentList](ctx, c, request{method: http.MethodGet, path: "/rag/files"})
}

// UploadDocuments stores files without reindexing.
func (c *Client) UploadDocuments(ctx context.Context, paths []string) (*Envelope[UploadResult], error) {
	return c.upload(ctx, "/rag/upload", paths)
}

// UploadAndReindex stores files and rebuilds the index in one call.
func (c *Client) UploadAndReindex(ctx context.Context, paths []string) (*Envelope[UploadResult], error) {
	return c.upload(ctx, "/rag/upload-and-update", paths)
}

// Reindex rebuilds the index from the stored files.
func (c *Client) Reindex(ctx context.Context) (*Envelope[ReindexResult], error) {
	return call[ReindexResult](ctx, c, request{method: http.MethodPost, path: "/rag/update"})
}

// ClearDocuments deletes one file and its index entries, or the whole
// knowledge base when filename is empty.
func (c *Client) ClearDocuments(ctx context.Context, filename string) (*Envelope[ClearResult], error) {
	var q url.Values
	if filename != "" {
		q = url.Values{"filename": {filename}}
	}
	return call[ClearResult](ctx, c, request{method: http.MethodDelete, path: "/rag/clear", query: q})
}

// upload sends paths as a multipart form with one "files" part per file.
func (c *Client) upload(ctx context.Context, path string, paths []string) (*Envelope[UploadResult], error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
	}

	// Build the form once; the request is never retried.
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range paths {
		if err := addFile(w, p); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	data := buf.Bytes()
	return call[UploadResult](ctx, c, request{
		method:      http.MethodPost,
		path:        path,
		body:        func() (io.Reader, error) { return bytes.NewReader(data), nil },
		contentType: w.FormDataContentType(),
	})
}

func addFile(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
