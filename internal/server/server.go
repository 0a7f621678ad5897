/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server is the HTTP boundary: public renders, template CRUD and
// editor sessions behind a bearer-token gate.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"rendless/internal/config"
	"rendless/internal/document"
	"rendless/internal/history"
	applog "rendless/internal/log"
	"rendless/internal/render"
	"rendless/internal/storage"
)

// TemplateRepo is the persistence the server needs.
type TemplateRepo interface {
	Create(ctx context.Context, owner, name string, tree *document.Page) (*storage.Template, error)
	Get(ctx context.Context, id string) (*storage.Template, error)
	Update(ctx context.Context, t *storage.Template) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, owner string) ([]*storage.Template, error)
}

// Deps are the collaborators wired by the bootstrap.
type Deps struct {
	Config    config.AppConfig
	Secret    []byte
	Templates TemplateRepo
	Renderer  *render.Renderer
	Renders   *render.Service
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	app       *fiber.App
	cfg       config.AppConfig
	secret    []byte
	templates TemplateRepo
	renderer  *render.Renderer
	renders   *render.Service
	sessions  *Sessions
	ready     func(ctx context.Context) error
	log       *slog.Logger
}

func New(d Deps) (*Server, error) {
	if len(d.Secret) == 0 {
		return nil, errors.New("auth secret is empty")
	}
	if d.Templates == nil || d.Renderer == nil || d.Renders == nil {
		return nil, errors.New("server dependencies are incomplete")
	}
	l := applog.WithComponent("server")
	s := &Server{
		cfg:       d.Config,
		secret:    d.Secret,
		templates: d.Templates,
		renderer:  d.Renderer,
		renders:   d.Renders,
		ready:     d.Ready,
		log:       l,
		sessions: NewSessions(d.Config.Session.TTL(),
			history.Config{MaxEntries: d.Config.History.MaxEntries, MaxBytes: d.Config.History.MaxBytes}, l),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "rendless",
		BodyLimit:             d.Config.Server.BodyLimitKB * 1024,
		ReadTimeout:           d.Config.Server.ReadTimeout(),
		WriteTimeout:          d.Config.Server.WriteTimeout(),
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.accessLog)
	s.routes()
	return s, nil
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// DumpSessions saves every open editor tree into dir.
func (s *Server) DumpSessions(dir string) (string, error) { return s.sessions.Dump(dir) }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

func (s *Server) routes() {
	s.app.Get("/healthz", s.healthz)
	s.app.Get("/readyz", s.readyz)
	s.app.Get("/version", s.versionInfo)

	api := s.app.Group("/api")
	api.Post("/auth/token", s.issueToken)

	// Public: renders are addressed by template id.
	api.Get("/templates/:id/render", s.renderTemplate)
	api.Get("/templates/:id/variables", s.templateVariables)

	t := api.Group("/templates", s.requireAuth)
	t.Get("", s.listTemplates)
	t.Post("", s.createTemplate)
	t.Get("/:id", s.getTemplate)
	t.Put("/:id", s.updateTemplate)
	t.Delete("/:id", s.deleteTemplate)
	t.Post("/:id/sessions", s.openSession)

	e := api.Group("/sessions", s.requireAuth)
	e.Get("/:sid", s.sessionState)
	e.Delete("/:sid", s.closeSession)
	e.Post("/:sid/ops", s.applyOps)
	e.Get("/:sid/styles", s.sessionStyles)
	e.Get("/:sid/preview", s.sessionPreview)
	e.Post("/:sid/save", s.saveSession)
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	rid, _ := c.Locals("requestid").(string)
	c.SetUserContext(applog.ContextWithRequestID(c.UserContext(), rid))
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusOf(err)
	}
	s.log.Debug("request", slog.String("method", c.Method()), slog.String("path", c.Path()),
		slog.Int("status", status), slog.Duration("took", time.Since(start)), slog.String("request_id", rid))
	return err
}
