/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rendless/internal/document"
	applog "rendless/internal/log"
	"rendless/internal/objstore"
	"rendless/internal/variables"
)

// TemplateSource loads a stored template tree by id.
type TemplateSource interface {
	Tree(ctx context.Context, id string) (*document.Page, error)
}

// Service renders stored templates through an object-store cache.
type Service struct {
	renderer  *Renderer
	store     objstore.Store
	templates TemplateSource
	prefix    string
	log       *slog.Logger
}

func NewService(r *Renderer, store objstore.Store, templates TemplateSource, prefix string) *Service {
	return &Service{renderer: r, store: store, templates: templates, prefix: prefix, log: applog.WithComponent("render.service")}
}

// Key is the object key for a render. Only substitutions the template
// references take part, so unrelated query parameters share one object.
func (s *Service) Key(templateID string, page *document.Page, set variables.Set, f Format) string {
	used := set.Only(variables.Referenced(page))
	return s.prefix + templateID + "/" + variables.CacheKey(templateID, used) + "." + string(f)
}

// Result is a rendered object and whether it came from the cache.
type Result struct {
	Data   []byte
	Format Format
	Key    string
	Cached bool
}

// Render returns the cached object for the request or renders and stores it.
func (s *Service) Render(ctx context.Context, templateID string, set variables.Set, f Format) (*Result, error) {
	page, err := s.templates.Tree(ctx, templateID)
	if err != nil {
		return nil, err
	}
	key := s.Key(templateID, page, set, f)
	l := s.log.With(slog.String("template", templateID), slog.String("key", key))

	if data, err := s.store.Get(ctx, key); err == nil {
		l.Debug("cache hit")
		return &Result{Data: data, Format: f, Key: key, Cached: true}, nil
	} else if !errors.Is(err, objstore.ErrNotFound) {
		l.Warn("cache read failed", slog.Any("err", err))
	}

	data, err := s.renderer.Render(ctx, page, set, f)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, key, data); err != nil {
		// The render itself succeeded; a cache write failure is not fatal.
		l.Warn("cache write failed", slog.Any("err", err))
	}
	return &Result{Data: data, Format: f, Key: key}, nil
}

// Invalidate drops every cached render of templateID.
func (s *Service) Invalidate(ctx context.Context, templateID string) error {
	n, err := s.store.DeletePrefix(ctx, s.prefix+templateID+"/")
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", templateID, err)
	}
	s.log.Debug("invalidated", slog.String("template", templateID), slog.Int("objects", n))
	return nil
}
