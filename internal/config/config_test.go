// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/kefu-tui/internal/auth"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KEFU_HOME", dir)
	for _, k := range []string{"KEFU_API_URL", "KEFU_TIMEOUT", "KEFU_LOG_LEVEL", "KEFU_LOG_FILE", "KEFU_HISTORY", "KEFU_HISTORY_PATH", "KEFU_THEME"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout())
	assert.Equal(t, []string{".txt", ".md", ".pdf"}, cfg.Docs.Extensions)
	assert.True(t, cfg.Auth.RoleMap().Resolve("admin").Has(auth.CapRAGAccess))
	assert.False(t, cfg.Auth.RoleMap().Resolve("user").Has(auth.CapRAGAccess))
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default().API, cfg.API)
}

func TestLoad_PrefersTOML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[api]\nbase_url = \"http://toml:8000\"\n")
	writeFile(t, filepath.Join(dir, "config.json"), `{"api":{"base_url":"http://json:8000"}}`)

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), path)
	assert.Equal(t, "http://toml:8000", cfg.API.BaseURL)
}

func TestLoadFromPath_Formats(t *testing.T) {
	dir := isolate(t)
	tests := []struct {
		name string
		file string
		data string
	}{
		{"toml", "c.toml", "[parser]\ndelimiters = \"|\\t\"\nmin_table_rows = 3\n[auth.roles]\nagent = [\"rag_access\"]\n"},
		{"json", "c.json", `{"parser":{"delimiters":"|\t","min_table_rows":3},"auth":{"roles":{"agent":["rag_access"]}}}`},
		{"yaml", "c.yaml", "parser:\n  delimiters: \"|\\t\"\n  min_table_rows: 3\nauth:\n  roles:\n    agent: [rag_access]\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			writeFile(t, path, tc.data)

			cfg, err := LoadFromPath(path)
			require.NoError(t, err)

			opts := cfg.Parser.Options()
			assert.Equal(t, []rune{'|', '\t'}, opts.Delimiters)
			assert.Equal(t, 3, opts.MinTableRows)
			// Untouched keys keep their defaults.
			assert.True(t, opts.FoldWidth)
			assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)

			roles := cfg.Auth.RoleMap()
			assert.True(t, roles.Resolve("Agent").Has(auth.CapRAGAccess))
		})
	}
}

func TestLoadFromPath_RejectsUnknownKeys(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "c.toml")
	writeFile(t, path, "[api]\nbase_ulr = \"http://x\"\n")
	_, err := LoadFromPath(path)
	assert.ErrorContains(t, err, "api.base_ulr")

	path = filepath.Join(dir, "c.yaml")
	writeFile(t, path, "api:\n  base_ulr: http://x\n")
	_, err = LoadFromPath(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "localhost:8000"
	cfg.API.TimeoutSecs = 0
	cfg.Parser.MinTableRows = 1
	cfg.Docs.Extensions = []string{"md"}
	cfg.Log.Level = "verbose"
	cfg.UI.Theme = "pink"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{
		"api.base_url", "api.timeout_secs", "parser.min_table_rows",
		"docs.extensions", "log.level", "ui.theme",
	}, fields)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("KEFU_API_URL", "https://kefu.example.com")
	t.Setenv("KEFU_TIMEOUT", "15")
	t.Setenv("KEFU_HISTORY", "false")
	t.Setenv("KEFU_LOG_LEVEL", "DEBUG")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://kefu.example.com", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout())
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "KEFU_THEME=light\nKEFU_API_URL=http://dotenv:8000\n")
	t.Setenv("KEFU_API_URL", "http://env:8000")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, "http://env:8000", cfg.API.BaseURL)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Orders.CacheTTLSecs = 5
	cfg.Docs.Extensions = []string{".md"}

	path, err := Save(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), path)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, SaveJSON(cfg, jsonPath))
	loaded, err = LoadFromPath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveTo_PicksFormatByExtension(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.API.BaseURL = "http://kefu.internal:9000"
	cfg.Docs.Extensions = []string{".md", ".txt"}

	for _, name := range []string{"c.toml", "c.json", "c.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveTo(cfg, path))

			loaded, err := LoadFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.API, loaded.API)
			assert.Equal(t, cfg.Docs, loaded.Docs)
			assert.Equal(t, cfg.Log, loaded.Log)
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("api.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", v)

	require.NoError(t, cfg.Set("api.max_retries", "4"))
	require.NoError(t, cfg.Set("api.rate_limit", "2.5"))
	require.NoError(t, cfg.Set("history.enabled", "no"))
	require.NoError(t, cfg.Set("docs.extensions", ".md, .txt"))
	assert.Equal(t, 4, cfg.API.MaxRetries)
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, []string{".md", ".txt"}, cfg.Docs.Extensions)

	assert.Error(t, cfg.Set("api.max_retries", "many"))
	assert.Error(t, cfg.Set("api", "x"))
	assert.Error(t, cfg.Set("api.nope", "x"))
	assert.Error(t, cfg.Set("auth.roles", "x"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "api.base_url")
	assert.Contains(t, keys, "auth.roles")
	assert.Contains(t, keys, "ui.markdown")
	assert.Equal(t, "api.base_url", keys[0])
}

func TestPaths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	p, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), p)

	cfg.Log.File = "/var/log/kefu.log"
	p, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/log/kefu.log", p)
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"http://file:1\"\n"), 0600))
	t.Setenv("KEFU_API_URL", "http://env:2")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file:1", cfg.API.BaseURL)

	cfg, err = ReadFile(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
