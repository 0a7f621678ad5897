/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package bootstrap wires configuration into the running collaborators.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"rendless/internal/assets"
	"rendless/internal/config"
	"rendless/internal/fonts"
	applog "rendless/internal/log"
	"rendless/internal/objstore"
	"rendless/internal/render"
	"rendless/internal/storage"
)

// Container holds every long-lived dependency of the server.
type Container struct {
	Config    config.AppConfig
	DB        *storage.DB
	Templates *storage.Templates
	Store     objstore.Store
	Renderer  *render.Renderer
	Renders   *render.Service
}

// FontSource builds the lookup chain: local directory, then the remote
// catalogue (memoised), then the built-in Go faces.
func FontSource(cfg config.FontsConfig) fonts.Source {
	var chain fonts.Chain
	if cfg.Dir != "" {
		chain = append(chain, fonts.Dir(cfg.Dir))
	}
	if cfg.APIURL != "" {
		chain = append(chain, fonts.NewCached(fonts.NewGoogle(cfg.APIURL), cfg.CacheTTL()))
	}
	return append(chain, fonts.Builtin{})
}

// NewRenderer builds a renderer without any database, for the CLI.
func NewRenderer(cfg config.AppConfig, allowFiles bool) *render.Renderer {
	loader := assets.NewLoader(cfg.Fonts.CacheTTL())
	loader.AllowFiles = allowFiles
	return render.NewRenderer(FontSource(cfg.Fonts), loader)
}

// NewContainer opens the database and object store and migrates the schema.
func NewContainer(ctx context.Context, cfg config.AppConfig) (*Container, error) {
	l := applog.WithComponent("bootstrap")
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if applied, err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	} else if len(applied) > 0 {
		l.Info("schema migrated", slog.Int("applied", len(applied)))
	}
	store, err := objstore.Open(cfg.Store.Kind, cfg.Store.Dir, cfg.Store.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	templates := storage.NewTemplates(db)
	renderer := NewRenderer(cfg, false)
	return &Container{
		Config:    cfg,
		DB:        db,
		Templates: templates,
		Store:     store,
		Renderer:  renderer,
		Renders:   render.NewService(renderer, store, templates, cfg.Store.Prefix),
	}, nil
}

// Ready pings the database and, for Redis, the object store.
func (c *Container) Ready(ctx context.Context) error {
	if err := c.DB.Ping(ctx); err != nil {
		return err
	}
	if r, ok := c.Store.(*objstore.Redis); ok {
		return r.Ping(ctx)
	}
	return nil
}

func (c *Container) Close() error {
	return errors.Join(c.Store.Close(), c.DB.Close())
}
