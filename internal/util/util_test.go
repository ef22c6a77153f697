// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SUBJECT TESTS
// =============================================================================

func TestSubject_DeliversInSubscriptionOrder(t *testing.T) {
	var s Subject[string]
	var got []string
	s.Subscribe(func(v string) { got = append(got, "a:"+v) })
	s.Subscribe(func(v string) { got = append(got, "b:"+v) })

	s.Publish("x")
	s.Publish("y")

	assert.Equal(t, []string{"a:x", "b:x", "a:y", "b:y"}, got)
}

func TestSubject_Unsubscribe(t *testing.T) {
	var s Subject[int]
	calls := 0
	unsubscribe := s.Subscribe(func(int) { calls++ })

	s.Publish(1)
	unsubscribe()
	unsubscribe()
	s.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Zero(t, s.Len())
}

func TestSubject_UnsubscribeInsideCallback(t *testing.T) {
	var s Subject[int]
	var unsubscribe func()
	calls := 0
	unsubscribe = s.Subscribe(func(int) {
		calls++
		unsubscribe()
	})

	s.Publish(1)
	s.Publish(2)
	assert.Equal(t, 1, calls)
}

func TestSubject_HoldPreservesOrder(t *testing.T) {
	var (
		s     Subject[int]
		state sync.Mutex
		seq   int
		got   []int
	)
	s.Subscribe(func(v int) { got = append(got, v) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.Lock()
			seq++
			v := seq
			publish := s.Hold()
			state.Unlock()
			publish(v)
		}()
	}
	wg.Wait()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

func TestSubject_HoldDoesNotBlockStateLock(t *testing.T) {
	var (
		s     Subject[int]
		state sync.RWMutex
		seq   int
		got   []int
	)
	s.Subscribe(func(v int) {
		state.RLock()
		_ = seq
		state.RUnlock()
		got = append(got, v)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					state.Lock()
					seq++
					v := seq
					publish := s.Hold()
					state.Unlock()
					publish(v)
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publishers deadlocked with an observer reading state")
	}
	require.Len(t, got, 400)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"ascii cut", "hello world", 8, "hello..."},
		{"cjk cut", "您好订单已发货", 9, "您好订..."},
		{"zero width", "hello", 0, ""},
		{"narrow width", "hello", 2, "he"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TruncateWidth(tc.in, tc.width))
		})
	}
}

func TestPreview_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "查询 订单 ORD-1", Preview("  查询\n订单\t ORD-1 ", 40))
	assert.Equal(t, 4, StringWidth("订单"))
}

func TestPadWidth_CountsWideRunes(t *testing.T) {
	assert.Equal(t, "订单  ", PadWidth("订单", 6))
	assert.Equal(t, "abc", PadWidth("abc", 2))
}

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("a = 1\n"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("a = 2\n"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a = 2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestAtomicWrite_FailedWriteKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.md")
	require.NoError(t, AtomicWriteFile(path, []byte("old"), 0600))

	boom := errors.New("encode failed")
	err := AtomicWrite(path, 0600, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWrite_AppliesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, AtomicWrite(path, 0600, func(w io.Writer) error {
		_, err := io.WriteString(w, "a = 1\n")
		return err
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
