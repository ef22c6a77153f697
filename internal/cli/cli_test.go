// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kefu-tui/internal/auth"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

const (
	adminEmail = "admin@example.com"
	userEmail  = "user@example.com"
	password   = "secret1"
)

type backend struct {
	mu        sync.Mutex
	queries   []string
	emails    []string
	uploads   [][]string
	cleared   []string
	reindexed int

	onUpload func()
}

func reply(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, body)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.URL.Path == "/auth/login" {
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != password {
			reply(w, `{"success":false,"message":"邮箱或密码错误"}`)
			return
		}
		role := auth.RoleUser
		if req.Email == adminEmail {
			role = auth.RoleAdmin
		}
		reply(w, fmt.Sprintf(`{"success":true,"data":{"token":"tok-%s","email":%q,"name":"测试","role":%q}}`, role, req.Email, role))
		return
	}

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
		w.WriteHeader(http.StatusUnauthorized)
		reply(w, `{"detail":"unauthorized"}`)
		return
	}

	switch r.URL.Path {
	case "/query/":
		var req struct {
			Query    string `json:"query"`
			ThreadID string `json:"thread_id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.queries = append(b.queries, req.Query)
		reply(w, `{"success":true,"data":{"response":"库存如下\n商品 | 数量\n苹果 | 10","intent":"product","order":{"order_id":"ORD-1001"}}}`)

	case "/order/query":
		if r.URL.Query().Get("order_id") != "ORD-1001" {
			reply(w, `{"success":false,"message":"订单不存在"}`)
			return
		}
		reply(w, `{"success":true,"data":{"id":1,"order_id":"ORD-1001","customer_name":"张三","customer_email":"zhang@example.com","product":"苹果","status":"已发货","amount":99.5,"can_send_email":true}}`)

	case "/order/send-email":
		var req struct {
			OrderID string `json:"order_id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.emails = append(b.emails, req.OrderID)
		reply(w, `{"success":true,"data":{"order_id":"ORD-1001"}}`)

	case "/rag/files":
		reply(w, `{"success":true,"data":{"files":[{"filename":"faq.md","size":2048,"modified":1700000000.5}]}}`)

	case "/rag/upload-and-update", "/rag/upload":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var names []string
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
		}
		b.uploads = append(b.uploads, names)
		reply(w, fmt.Sprintf(`{"success":true,"data":{"uploaded":[{"filename":%q,"size":5}],"failed":[],"index_updated":true}}`, names[0]))
		if b.onUpload != nil {
			go b.onUpload()
		}

	case "/rag/update":
		b.reindexed++
		reply(w, `{"success":true,"data":{"status":"ok"}}`)

	case "/rag/clear":
		b.cleared = append(b.cleared, r.URL.Query().Get("filename"))
		reply(w, `{"success":true,"data":{"deleted_count":3}}`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// setup starts a fake backend and points an isolated kefu home at it.
func setup(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	t.Setenv("KEFU_HOME", t.TempDir())
	for _, k := range []string{"KEFU_EMAIL", "KEFU_PASSWORD", "KEFU_TIMEOUT", "KEFU_LOG_LEVEL", "KEFU_LOG_FILE", "KEFU_HISTORY", "KEFU_HISTORY_PATH", "KEFU_THEME"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("KEFU_API_URL", srv.URL)
	return b
}

type result struct {
	stdout string
	stderr string
	err    error
}

func runCtx(ctx context.Context, stdin string, args ...string) result {
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func run(stdin string, args ...string) result {
	return runCtx(context.Background(), stdin, args...)
}

func as(email string, args ...string) []string {
	return append([]string{"--email", email, "--password", password}, args...)
}

// =============================================================================
// ASK / CHAT
// =============================================================================

func TestAsk_RendersTableAndAnnotations(t *testing.T) {
	b := setup(t)

	res := run("", as(userEmail, "ask", "  苹果还有货吗  ")...)
	require.NoError(t, res.err, res.stderr)

	assert.Contains(t, res.stdout, "库存如下")
	assert.Contains(t, res.stdout, "苹果")
	assert.Contains(t, res.stdout, "意图: product")
	assert.Contains(t, res.stdout, "相关订单: ORD-1001")
	assert.Contains(t, res.stderr, orchestrator.TitleLoginOK)
	assert.Equal(t, []string{"苹果还有货吗"}, b.queries)
}

func TestAsk_JSONAndHistory(t *testing.T) {
	setup(t)

	res := run("", as(userEmail, "--json", "ask", "库存")...)
	require.NoError(t, res.err, res.stderr)

	var out struct {
		Success bool
		Data    struct {
			ConversationID string `json:"conversation_id"`
			Blocks         []struct {
				Kind string     `json:"kind"`
				Rows [][]string `json:"rows"`
			} `json:"blocks"`
		}
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.True(t, out.Success)
	require.Len(t, out.Data.Blocks, 2)
	assert.Equal(t, "table", out.Data.Blocks[1].Kind)
	assert.Equal(t, [][]string{{"商品", "数量"}, {"苹果", "10"}}, out.Data.Blocks[1].Rows)

	res = run("", "history", "list", "--all")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, shortID(out.Data.ConversationID))
	assert.Contains(t, res.stdout, "库存")

	res = run("", "history", "show", out.Data.ConversationID[:6])
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "库存如下")
	assert.Contains(t, res.stdout, "意图: product")
}

func TestHistoryExport_Markdown(t *testing.T) {
	setup(t)

	res := run("", as(userEmail, "--json", "ask", "库存")...)
	require.NoError(t, res.err, res.stderr)
	var out struct {
		Data struct {
			ConversationID string `json:"conversation_id"`
		}
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))

	dir := t.TempDir()
	res = run("", "history", "export", out.Data.ConversationID, "-o", dir)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "已导出 2 条消息")

	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 商品 | 数量 |")
	assert.Contains(t, string(data), "*意图: product*")

	res = run("", "history", "export", out.Data.ConversationID, "--format", "pdf")
	assert.Error(t, res.err)
}

func TestAsk_ReadsQuestionFromStdin(t *testing.T) {
	b := setup(t)

	res := run("退货政策是什么？\n", as(userEmail, "ask")...)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, []string{"退货政策是什么？"}, b.queries)
}

func TestAsk_PromptsForCredentials(t *testing.T) {
	b := setup(t)

	res := run(userEmail+"\n"+password+"\n", "ask", "你好")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stderr, "邮箱: ")
	assert.Len(t, b.queries, 1)
}

func TestAsk_LoginRejected(t *testing.T) {
	b := setup(t)

	res := run("", "--email", userEmail, "--password", "wrong-password", "ask", "你好")
	require.Error(t, res.err)

	var lerr *orchestrator.LoginError
	require.ErrorAs(t, res.err, &lerr)
	assert.Equal(t, "邮箱或密码错误", lerr.Reason)
	assert.Empty(t, b.queries)
}

func TestAsk_InvalidEmailNeverReachesBackend(t *testing.T) {
	b := setup(t)

	res := run("", "--email", "not-an-email", "--password", password, "ask", "你好")
	assert.ErrorIs(t, res.err, orchestrator.ErrInvalidEmail)
	assert.Empty(t, b.queries)
}

func TestChat_REPL(t *testing.T) {
	b := setup(t)

	res := run("你好\n\n/new\n/history\n/bogus\n/exit\n", as(userEmail, "chat")...)
	require.NoError(t, res.err, res.stderr)

	assert.Equal(t, []string{"你好"}, b.queries)
	assert.Contains(t, res.stdout, "测试，您好！")
	assert.Contains(t, res.stdout, "库存如下")
	assert.Contains(t, res.stdout, "已开始新对话")
	assert.Contains(t, res.stdout, "2 条")
	assert.Contains(t, res.stdout, "unknown command /bogus")
}

func TestChat_EOFEnds(t *testing.T) {
	setup(t)

	res := run("", as(userEmail, "chat")...)
	assert.NoError(t, res.err)
}

// =============================================================================
// ORDERS
// =============================================================================

func TestOrderLookup(t *testing.T) {
	setup(t)

	res := run("", as(userEmail, "order", "lookup", "ORD-1001")...)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "张三")
	assert.Contains(t, res.stdout, "99.5")

	res = run("", as(userEmail, "order", "lookup", "ORD-404")...)
	assert.ErrorIs(t, res.err, orchestrator.ErrOrderFailed)
}

func TestOrderEmail_AsksFirst(t *testing.T) {
	b := setup(t)

	res := run("n\n", as(userEmail, "order", "email", "ORD-1001")...)
	assert.ErrorIs(t, res.err, ErrNotConfirmed)
	assert.Contains(t, res.stderr, "zhang@example.com")
	assert.Empty(t, b.emails)

	res = run("y\n", as(userEmail, "order", "email", "ORD-1001")...)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, []string{"ORD-1001"}, b.emails)

	res = run("", as(userEmail, "order", "email", "ORD-1001", "--yes")...)
	require.NoError(t, res.err)
	assert.Len(t, b.emails, 2)
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

func TestDocs_RequiresCapability(t *testing.T) {
	b := setup(t)

	res := run("", as(userEmail, "docs", "list")...)
	assert.ErrorIs(t, res.err, auth.ErrForbidden)
	assert.Zero(t, b.reindexed)
}

func TestDocs_ListUploadReindex(t *testing.T) {
	b := setup(t)

	res := run("", as(adminEmail, "docs", "list")...)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "faq.md")
	assert.Contains(t, res.stdout, "2.0 KiB")

	dir := t.TempDir()
	md := filepath.Join(dir, "faq.md")
	png := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(md, []byte("hello"), 0600))
	require.NoError(t, os.WriteFile(png, []byte("x"), 0600))

	res = run("", as(adminEmail, "docs", "upload", md, png)...)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, [][]string{{"faq.md"}}, b.uploads)
	assert.Contains(t, res.stdout, "+ faq.md")

	res = run("", as(adminEmail, "docs", "reindex")...)
	require.NoError(t, res.err)
	assert.Equal(t, 1, b.reindexed)
}

func TestDocs_ClearAsksFirst(t *testing.T) {
	b := setup(t)

	res := run("\n", as(adminEmail, "docs", "clear")...)
	assert.ErrorIs(t, res.err, ErrNotConfirmed)
	assert.Empty(t, b.cleared)

	res = run("", as(adminEmail, "--json", "docs", "clear", "faq.md", "--yes")...)
	require.NoError(t, res.err)
	assert.Equal(t, []string{"faq.md"}, b.cleared)
	assert.Contains(t, res.stdout, `"deleted_count": 3`)
}

func TestDocs_WatchUploadsExistingFiles(t *testing.T) {
	b := setup(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.md"), []byte("hello"), 0600))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.onUpload = cancel

	res := runCtx(ctx, "", as(adminEmail, "docs", "watch", dir, "--initial", "--debounce", "10ms")...)
	require.NoError(t, res.err, res.stderr)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, [][]string{{"faq.md"}}, b.uploads)
}

// =============================================================================
// CONFIG / VERSION
// =============================================================================

func TestConfig_InitSetGet(t *testing.T) {
	setup(t)

	res := run("", "config", "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "config.toml")

	res = run("", "config", "init")
	assert.Error(t, res.err)

	res = run("", "config", "set", "api.timeout_secs", "30")
	require.NoError(t, res.err, res.stderr)

	res = run("", "config", "get", "api.timeout_secs")
	require.NoError(t, res.err)
	assert.Equal(t, "30\n", res.stdout)

	res = run("", "config", "set", "api.timeout_secs", "0")
	assert.Error(t, res.err)

	// Environment overrides are not persisted.
	res = run("", "config", "get", "api.base_url")
	require.NoError(t, res.err)
	home := os.Getenv("KEFU_HOME")
	data, err := os.ReadFile(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), strings.TrimSpace(res.stdout))
}

func TestConfig_KeysAndShow(t *testing.T) {
	setup(t)

	res := run("", "config", "keys")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "api.base_url\n")

	res = run("", "--json", "config", "show")
	require.NoError(t, res.err)
	var out JSONResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "config show", out.Command)
}

func TestVersion(t *testing.T) {
	res := run("", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "kefu "+Version)
}

func TestDisplayError_Hints(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, ErrNoCredentials)
	assert.Contains(t, buf.String(), "Error: ")
	assert.Contains(t, buf.String(), "KEFU_EMAIL")

	buf.Reset()
	DisplayError(&buf, fmt.Errorf("docs: %w", auth.ErrForbidden))
	assert.Contains(t, buf.String(), "knowledge-base access")
}
