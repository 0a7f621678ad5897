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
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	t.Setenv(EnvAuthSecret, "")
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	useTempConfig(t)
	cfg, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.Width != 1200 || cfg.Canvas.Height != 630 || cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if secret != "" {
		t.Fatalf("no secret expected, got %q", secret)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	p := useTempConfig(t)
	data := []byte("database:\n  driver: PostgreSQL\n  dsn: postgres://u@h/db\ncanvas:\n  width: 800\n")
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://u@h/db" {
		t.Fatalf("database not merged: %+v", cfg.Database)
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 630 {
		t.Fatalf("canvas merge wrong: %+v", cfg.Canvas)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("untouched sections must keep defaults: %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	p := useTempConfig(t)
	if err := os.WriteFile(p, []byte("canvas: [1,2"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvCanvasHeight, "400")
	t.Setenv(EnvHistoryMax, "notanumber")
	t.Setenv(EnvLogSource, "yes")
	t.Setenv(EnvStoreKind, "REDIS")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":9999" || cfg.Canvas.Height != 400 || !cfg.Logging.Source || cfg.Store.Kind != "redis" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.History.MaxEntries != 100 {
		t.Fatalf("invalid int override must be ignored, got %d", cfg.History.MaxEntries)
	}
	if name, ok := EnvOverrideFor("server.addr"); !ok || name != EnvAddr {
		t.Fatalf("EnvOverrideFor(server.addr) = %q,%v", name, ok)
	}
	if _, ok := EnvOverrideFor("fonts.dir"); ok {
		t.Fatalf("fonts.dir is not overridden")
	}
}

func TestSecretFromEnvAndKeyring(t *testing.T) {
	useTempConfig(t)
	s, err := EnsureSecret()
	if err != nil || len(s) != 64 {
		t.Fatalf("EnsureSecret: %q %v", s, err)
	}
	again, _ := EnsureSecret()
	if again != s {
		t.Fatalf("secret must be stable once stored")
	}
	t.Setenv(EnvAuthSecret, "from-env")
	if _, secret, _ := Load(); secret != "from-env" {
		t.Fatalf("env secret must win, got %q", secret)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	useTempConfig(t)
	cfg := Defaults()
	cfg.Fonts.Dir = "/srv/fonts"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, secret, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Fonts.Dir != "/srv/fonts" || secret != "s3cret" {
		t.Fatalf("round trip mismatch: dir=%q secret=%q", back.Fonts.Dir, secret)
	}
}

func TestOversizedCanvasFallsBackToDefault(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvCanvasWidth, "100000")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.Width != 1200 {
		t.Fatalf("canvas width = %d, want default 1200", cfg.Canvas.Width)
	}
}
