/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"rendless/internal/bootstrap"
	"rendless/internal/config"
	"rendless/internal/crash"
	"rendless/internal/document"
	applog "rendless/internal/log"
	"rendless/internal/render"
	"rendless/internal/server"
	"rendless/internal/variables"
	"rendless/internal/version"
)

func usage() {
	fmt.Println("Rendless: template renderer for Open Graph images")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rendless version|-v|--version                         Show version")
	fmt.Println("  rendless serve                                        Run the HTTP server")
	fmt.Println("  rendless render <tree.json> -o <out> [-format png|svg|pdf] [-var name=value]...")
	fmt.Println("                                                        Render a template file")
	fmt.Println("  rendless migrate                                      Apply database migrations")
}

// multiFlag collects repeated -var flags.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func main() {
	cfg, secret, cfgErr := config.Load()
	closer := applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	defer closer.Close()
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cfgErr))
	}

	args := os.Args
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	h := &crash.Handle{Command: args[1]}
	defer crash.Recover(h)

	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "serve":
		err = serve(cfg, secret, h)
	case "render":
		err = renderFile(cfg, args[2:])
	case "migrate":
		err = migrate(cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		l.Error(args[1]+" failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func serve(cfg config.AppConfig, secret string, h *crash.Handle) error {
	l := applog.WithComponent("cli")
	if secret == "" {
		s, err := config.EnsureSecret()
		if err != nil {
			return fmt.Errorf("no signing secret: set %s or make the OS keyring available: %w", config.EnvAuthSecret, err)
		}
		secret = s
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	srv, err := server.New(server.Deps{
		Config:    cfg,
		Secret:    []byte(secret),
		Templates: c.Templates,
		Renderer:  c.Renderer,
		Renders:   c.Renders,
		Ready:     c.Ready,
	})
	if err != nil {
		return err
	}
	h.Autosave = srv.DumpSessions

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.Server.Addr) }()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	l.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func renderFile(cfg config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default: <input>.<format>)")
	format := fs.String("format", "", "png, svg or pdf (default: from -o extension, else png)")
	var vars multiFlag
	fs.Var(&vars, "var", "variable substitution name=value (repeatable)")
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		usage()
		return errors.New("render requires <tree.json>")
	}
	in := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	raw := *format
	if raw == "" && *out != "" {
		raw = strings.TrimPrefix(filepath.Ext(*out), ".")
	}
	f, err := render.ParseFormat(raw)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = strings.TrimSuffix(in, filepath.Ext(in)) + "." + string(f)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	tree, err := document.ParseTree(data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	r := bootstrap.NewRenderer(cfg, true)
	img, err := r.Render(ctx, tree, variables.FromPairs(vars), f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, img, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", *out, len(img))
	return nil
}

func migrate(cfg config.AppConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	c, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	applied, err := c.DB.Applied(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Schema up to date (%s), %d migration(s):\n", c.DB.Dialect(), len(applied))
	for _, m := range applied {
		fmt.Printf("  %04d %s\n", m.Version, m.Name)
	}
	return nil
}
