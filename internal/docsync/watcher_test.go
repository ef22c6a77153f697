// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docsync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kefu-tui/internal/api"
)

type fakeUploader struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeUploader) Eligible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".txt" || ext == ".pdf"
}

func (f *fakeUploader) UploadAndReindex(_ context.Context, paths []string) (api.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]string(nil), paths...))
	res := api.UploadResult{}
	for _, p := range paths {
		res.Uploaded = append(res.Uploaded, api.UploadedFile{Filename: filepath.Base(p)})
	}
	return res, nil
}

func TestDue_Debounce(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, &fakeUploader{}, Options{Debounce: time.Second})
	require.NoError(t, err)
	defer w.watcher.Close()

	now := time.Now()
	w.touch(filepath.Join(dir, "b.md"), now)
	w.touch(filepath.Join(dir, "a.txt"), now.Add(-2*time.Second))
	w.touch(filepath.Join(dir, "image.png"), now.Add(-2*time.Second))
	w.touch(filepath.Join(dir, ".hidden.md"), now.Add(-2*time.Second))

	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, w.due(now))
	assert.Empty(t, w.due(now))
	assert.Equal(t, []string{filepath.Join(dir, "b.md")}, w.due(now.Add(time.Second)))
}

func TestRun_UploadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.md"), []byte("old"), 0600))

	up := &fakeUploader{}
	batches := make(chan Batch, 4)
	w, err := New(dir, up, Options{
		Debounce:    50 * time.Millisecond,
		InitialSync: true,
		OnBatch:     func(b Batch) { batches <- b },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first := waitBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(dir, "existing.md")}, first.Paths)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.md"), []byte("# FAQ"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.png"), []byte("x"), 0600))

	second := waitBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(dir, "faq.md")}, second.Paths)
	require.NoError(t, second.Err)
	assert.Len(t, second.Result.Uploaded, 1)

	cancel()
	assert.NoError(t, <-done)
}

func waitBatch(t *testing.T, ch <-chan Batch) Batch {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for upload")
		return Batch{}
	}
}

func TestNew_RejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(f, nil, 0600))

	_, err := New(f, &fakeUploader{}, Options{})
	assert.Error(t, err)
}
