// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/kefu-tui/internal/api"
	"github.com/jeranaias/kefu-tui/internal/auth"
	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/orchestrator"
	"github.com/jeranaias/kefu-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kefu configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api" yaml:"api"`
	Parser  ParserConfig  `toml:"parser" json:"parser" yaml:"parser"`
	Auth    AuthConfig    `toml:"auth" json:"auth" yaml:"auth"`
	Orders  OrdersConfig  `toml:"orders" json:"orders" yaml:"orders"`
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`
	Docs    DocsConfig    `toml:"docs" json:"docs" yaml:"docs"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui"`
}

// APIConfig describes the backend connection.
type APIConfig struct {
	// BaseURL is the backend root, e.g. http://localhost:8000
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	// TimeoutSecs bounds each HTTP request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `toml:"burst" json:"burst" yaml:"burst"`
	// MaxRetries applies to idempotent requests only.
	MaxRetries int `toml:"max_retries" json:"max_retries" yaml:"max_retries"`
}

// ParserConfig tunes table detection in assistant replies.
type ParserConfig struct {
	// Delimiters lists cell separators, tried in order.
	Delimiters   string `toml:"delimiters" json:"delimiters" yaml:"delimiters"`
	MinTableRows int    `toml:"min_table_rows" json:"min_table_rows" yaml:"min_table_rows"`
	FoldWidth    bool   `toml:"fold_width" json:"fold_width" yaml:"fold_width"`
	SkipRuleRows bool   `toml:"skip_rule_rows" json:"skip_rule_rows" yaml:"skip_rule_rows"`
}

// AuthConfig maps backend roles to client capabilities.
type AuthConfig struct {
	Roles map[string][]string `toml:"roles" json:"roles" yaml:"roles"`
}

// OrdersConfig controls order lookups.
type OrdersConfig struct {
	// CacheTTLSecs is how long a looked-up order is reused; 0 disables.
	CacheTTLSecs int `toml:"cache_ttl_secs" json:"cache_ttl_secs" yaml:"cache_ttl_secs"`
}

// HistoryConfig controls the local transcript archive.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	// Path is the SQLite file (empty = ~/.kefu/history.db)
	Path string `toml:"path" json:"path" yaml:"path"`
	// RetentionDays prunes older conversations at startup; 0 keeps all.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// DocsConfig controls knowledge-base uploads.
type DocsConfig struct {
	Extensions      []string `toml:"extensions" json:"extensions" yaml:"extensions"`
	WatchDebounceMs int      `toml:"watch_debounce_ms" json:"watch_debounce_ms" yaml:"watch_debounce_ms"`
}

// LogConfig controls the rotated log file.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level" yaml:"level"`
	// File is the log path (empty = ~/.kefu/kefu.log)
	File       string `toml:"file" json:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
	// Console mirrors logs to stderr. Ignored while the TUI runs.
	Console bool `toml:"console" json:"console" yaml:"console"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// Markdown renders text blocks through glamour.
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	roles := make(map[string][]string)
	for role, caps := range auth.DefaultRoleMap() {
		tags := make([]string, 0, len(caps))
		for _, c := range caps {
			tags = append(tags, string(c))
		}
		roles[role] = tags
	}

	return &Config{
		API: APIConfig{
			BaseURL:     api.DefaultBaseURL,
			TimeoutSecs: int(api.DefaultTimeout / time.Second),
			RateLimit:   5,
			Burst:       5,
			MaxRetries:  api.DefaultMaxRetries,
		},
		Parser: ParserConfig{
			Delimiters:   string(content.DefaultDelimiter),
			MinTableRows: content.DefaultMinTableRows,
			FoldWidth:    true,
			SkipRuleRows: true,
		},
		Auth: AuthConfig{Roles: roles},
		Orders: OrdersConfig{
			CacheTTLSecs: int(orchestrator.DefaultOrderCacheTTL / time.Second),
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Docs: DocsConfig{
			Extensions:      orchestrator.DefaultExtensions(),
			WatchDebounceMs: 2000,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the request timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// Options converts the section to parser options.
func (p ParserConfig) Options() content.Options {
	return content.Options{
		Delimiters:   []rune(p.Delimiters),
		MinTableRows: p.MinTableRows,
		FoldWidth:    p.FoldWidth,
		SkipRuleRows: p.SkipRuleRows,
	}
}

// RoleMap converts the configured roles.
func (a AuthConfig) RoleMap() auth.RoleMap {
	if len(a.Roles) == 0 {
		return auth.DefaultRoleMap()
	}
	return auth.RoleMapFromStrings(a.Roles)
}

// CacheTTL returns the order cache lifetime.
func (o OrdersConfig) CacheTTL() time.Duration {
	return time.Duration(o.CacheTTLSecs) * time.Second
}

// WatchDebounce returns the docsync quiet period.
func (d DocsConfig) WatchDebounce() time.Duration {
	return time.Duration(d.WatchDebounceMs) * time.Millisecond
}

// Retention returns the history cutoff relative to now, or zero when
// retention is unlimited.
func (h HistoryConfig) Retention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// HistoryPath resolves the archive location.
func (c *Config) HistoryPath() (string, error) {
	return resolvePath(c.History.Path, "history.db")
}

// LogPath resolves the log file location.
func (c *Config) LogPath() (string, error) {
	return resolvePath(c.Log.File, "kefu.log")
}

func resolvePath(configured, name string) (string, error) {
	if configured != "" {
		return expandHome(configured)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the kefu configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("KEFU_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".kefu"), nil
}

// Candidates returns the config files Load looks for, in order.
func Candidates() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.yaml"),
	}, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file found, then .env and environment
// overrides, and validates the result. With no file present the defaults
// are used. The second return is the path that was loaded, if any.
func Load() (*Config, string, error) {
	loadDotEnv()

	paths, err := Candidates()
	if err != nil {
		return nil, "", err
	}
	for _, path := range paths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		return cfg, path, err
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// LoadFromPath loads configuration from one file, picking the format from
// the extension (.json, .yaml/.yml, otherwise TOML). Keys missing from the
// file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := decode(cfg, path, data); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile loads one file without .env or environment overrides, for
// editing and saving back. A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := decode(cfg, path, data); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return cfg, nil
}

func decode(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		return nil
	}
}

func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadDotEnv reads ./.env and ~/.kefu/.env. Variables already present in
// the environment win.
func loadDotEnv() {
	files := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const fileHeader = "# kefu configuration file\n# Generated by kefu - edit with care\n\n"

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.toml")
	return path, SaveTOML(cfg, path)
}

// SaveTOML writes cfg atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	return writeConfig(path, func(w io.Writer) error {
		io.WriteString(w, fileHeader)
		return toml.NewEncoder(w).Encode(cfg)
	})
}

// SaveJSON writes cfg atomically with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	return writeConfig(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	})
}

// SaveYAML writes cfg atomically with 0600 permissions.
func SaveYAML(cfg *Config, path string) error {
	return writeConfig(path, func(w io.Writer) error {
		io.WriteString(w, fileHeader)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	})
}

func writeConfig(path string, encode func(io.Writer) error) error {
	if err := util.AtomicWrite(path, 0600, encode); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// SaveTo writes cfg to path in the format its extension names, the same
// rule LoadFromPath reads with.
func SaveTo(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(cfg, path)
	case ".yaml", ".yml":
		return SaveYAML(cfg, path)
	default:
		return SaveTOML(cfg, path)
	}
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
