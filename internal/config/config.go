/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the server configuration persisted as YAML.
// Environment variables are treated as read-only overrides at runtime.
// The JWT signing secret is never written to the file; it lives in the OS
// keyring or in RDL_AUTH_SECRET.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Server        ServerConfig   `yaml:"server"`
	Database      DatabaseConfig `yaml:"database"`
	Store         StoreConfig    `yaml:"store"`
	Fonts         FontsConfig    `yaml:"fonts"`
	Canvas        CanvasConfig   `yaml:"canvas"`
	History       HistoryConfig  `yaml:"history"`
	Session       SessionConfig  `yaml:"session"`
	Auth          AuthConfig     `yaml:"auth"`
	Logging       LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	BodyLimitKB    int    `yaml:"body_limit_kb"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, URL for postgres
}

type StoreConfig struct {
	Kind     string `yaml:"kind"` // "fs" | "redis"
	Dir      string `yaml:"dir"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

type FontsConfig struct {
	Dir         string `yaml:"dir"`
	APIURL      string `yaml:"api_url"` // Google Fonts css2 endpoint; empty disables remote fetch
	CacheTTLMin int    `yaml:"cache_ttl_min"`
}

type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
	MaxBytes   int `yaml:"max_bytes"`
}

type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_min"`
}

type AuthConfig struct {
	Issuer          string `yaml:"issuer"`
	TokenTTLMinutes int    `yaml:"token_ttl_min"`
	DevTokens       bool   `yaml:"dev_tokens"` // enables POST /api/auth/token
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Server:        ServerConfig{Addr: ":8080", ReadTimeoutMs: 15000, WriteTimeoutMs: 30000, BodyLimitKB: 4096},
		Database:      DatabaseConfig{Driver: "sqlite", DSN: "rendless.db"},
		Store:         StoreConfig{Kind: "fs", Dir: "cache", Prefix: "renders/"},
		Fonts:         FontsConfig{APIURL: "https://fonts.googleapis.com/css2", CacheTTLMin: 24 * 60},
		Canvas:        CanvasConfig{Width: 1200, Height: 630},
		History:       HistoryConfig{MaxEntries: 100, MaxBytes: 16 * 1024 * 1024},
		Session:       SessionConfig{TTLMinutes: 60},
		Auth:          AuthConfig{Issuer: "rendless", TokenTTLMinutes: 12 * 60},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath   = "RDL_CONFIG"
	EnvAddr         = "RDL_ADDR"
	EnvDBDriver     = "RDL_DB_DRIVER"
	EnvDBDSN        = "RDL_DB_DSN"
	EnvStoreKind    = "RDL_STORE_KIND"
	EnvStoreDir     = "RDL_STORE_DIR"
	EnvRedisURL     = "RDL_REDIS_URL"
	EnvFontDir      = "RDL_FONT_DIR"
	EnvFontAPI      = "RDL_FONT_API"
	EnvCanvasWidth  = "RDL_CANVAS_WIDTH"
	EnvCanvasHeight = "RDL_CANVAS_HEIGHT"
	EnvHistoryMax   = "RDL_HISTORY_MAX"
	EnvSessionTTL   = "RDL_SESSION_TTL_MIN"
	EnvAuthSecret   = "RDL_AUTH_SECRET"
	EnvDevTokens    = "RDL_DEV_TOKENS"
	// Logging envs
	EnvLogLevel  = "RDL_LOG_LEVEL"
	EnvLogFormat = "RDL_LOG_FORMAT"
	EnvLogSource = "RDL_LOG_SOURCE"
	EnvLogFile   = "RDL_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "Rendless"
	keyringSecret  = "jwt_secret"
)

// SecretStore abstracts the keyring so tests and headless hosts can swap it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var secretStore SecretStore = osKeyring{}

// SetSecretStore replaces the keyring backend and returns the previous one.
func SetSecretStore(s SecretStore) SecretStore {
	prev := secretStore
	secretStore = s
	return prev
}

// ConfigPath returns the config file path: RDL_CONFIG or the per-user config dir.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "rendless", "config.yaml"), nil
}

// Load reads the config file (if present) over the defaults and applies
// environment overrides. The signing secret is returned separately; it is
// empty when neither RDL_AUTH_SECRET nor the keyring holds one.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), "", fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, loadSecret(), nil
}

func loadSecret() string {
	if v := strings.TrimSpace(os.Getenv(EnvAuthSecret)); v != "" {
		return v
	}
	s, _ := secretStore.Get(keyringService, keyringSecret)
	return s
}

// EnsureSecret returns the configured signing secret, creating a random one
// in the keyring on first use.
func EnsureSecret() (string, error) {
	if s := loadSecret(); s != "" {
		return s, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	s := hex.EncodeToString(buf)
	if err := secretStore.Set(keyringService, keyringSecret, s); err != nil {
		return "", fmt.Errorf("store secret in keyring: %w", err)
	}
	return s, nil
}

// Save writes the config YAML and persists secret into the keyring (if non-empty).
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		if err := secretStore.Set(keyringService, keyringSecret, secret); err != nil {
			return err
		}
	}
	return nil
}

// maxCanvasSize is the largest page edge a document may declare.
const maxCanvasSize = 8192

func normalize(cfg *AppConfig) {
	d := Defaults()
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "postgresql" || cfg.Database.Driver == "pgx" {
		cfg.Database.Driver = "postgres"
	}
	cfg.Store.Kind = strings.ToLower(strings.TrimSpace(cfg.Store.Kind))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Width > maxCanvasSize {
		cfg.Canvas.Width = d.Canvas.Width
	}
	if cfg.Canvas.Height <= 0 || cfg.Canvas.Height > maxCanvasSize {
		cfg.Canvas.Height = d.Canvas.Height
	}
	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = d.Session.TTLMinutes
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = d.Auth.TokenTTLMinutes
	}
}

type envBinding struct {
	env   string
	apply func(cfg *AppConfig, v string)
}

func setInt(dst *int) func(string) {
	return func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// envBindings maps config keys to their override variables.
var envBindings = map[string]envBinding{
	"server.addr":         {EnvAddr, func(c *AppConfig, v string) { c.Server.Addr = v }},
	"database.driver":     {EnvDBDriver, func(c *AppConfig, v string) { c.Database.Driver = v }},
	"database.dsn":        {EnvDBDSN, func(c *AppConfig, v string) { c.Database.DSN = v }},
	"store.kind":          {EnvStoreKind, func(c *AppConfig, v string) { c.Store.Kind = v }},
	"store.dir":           {EnvStoreDir, func(c *AppConfig, v string) { c.Store.Dir = v }},
	"store.redis_url":     {EnvRedisURL, func(c *AppConfig, v string) { c.Store.RedisURL = v }},
	"fonts.dir":           {EnvFontDir, func(c *AppConfig, v string) { c.Fonts.Dir = v }},
	"fonts.api_url":       {EnvFontAPI, func(c *AppConfig, v string) { c.Fonts.APIURL = v }},
	"canvas.width":        {EnvCanvasWidth, func(c *AppConfig, v string) { setInt(&c.Canvas.Width)(v) }},
	"canvas.height":       {EnvCanvasHeight, func(c *AppConfig, v string) { setInt(&c.Canvas.Height)(v) }},
	"history.max_entries": {EnvHistoryMax, func(c *AppConfig, v string) { setInt(&c.History.MaxEntries)(v) }},
	"session.ttl_min":     {EnvSessionTTL, func(c *AppConfig, v string) { setInt(&c.Session.TTLMinutes)(v) }},
	"auth.dev_tokens":     {EnvDevTokens, func(c *AppConfig, v string) { c.Auth.DevTokens = parseBool(v) }},
	"logging.level":       {EnvLogLevel, func(c *AppConfig, v string) { c.Logging.Level = v }},
	"logging.format":      {EnvLogFormat, func(c *AppConfig, v string) { c.Logging.Format = v }},
	"logging.source":      {EnvLogSource, func(c *AppConfig, v string) { c.Logging.Source = parseBool(v) }},
	"logging.file":        {EnvLogFile, func(c *AppConfig, v string) { c.Logging.File = v }},
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, b := range envBindings {
		if v := strings.TrimSpace(os.Getenv(b.env)); v != "" {
			b.apply(cfg, v)
		}
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	b, ok := envBindings[key]
	if !ok || os.Getenv(b.env) == "" {
		return "", false
	}
	return b.env, true
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (s ServerConfig) ReadTimeout() time.Duration  { return ms(s.ReadTimeoutMs) }
func (s ServerConfig) WriteTimeout() time.Duration { return ms(s.WriteTimeoutMs) }

func (s SessionConfig) TTL() time.Duration { return time.Duration(s.TTLMinutes) * time.Minute }

func (a AuthConfig) TokenTTL() time.Duration { return time.Duration(a.TokenTTLMinutes) * time.Minute }

func (f FontsConfig) CacheTTL() time.Duration { return time.Duration(f.CacheTTLMin) * time.Minute }
