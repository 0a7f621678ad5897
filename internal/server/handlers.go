/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"rendless/internal/document"
	"rendless/internal/paint"
	"rendless/internal/render"
	"rendless/internal/storage"
	"rendless/internal/variables"
	"rendless/internal/version"
)

// --- Health ---

func (s *Server) healthz(c *fiber.Ctx) error { return c.SendString("ok") }

func (s *Server) readyz(c *fiber.Ctx) error {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log.Warn("not ready", slog.Any("err", err))
			return c.Status(fiber.StatusServiceUnavailable).SendString("not ready")
		}
	}
	return c.SendString("ready")
}

func (s *Server) versionInfo(c *fiber.Ctx) error { return c.SendString(version.String()) }

// --- Auth ---

type tokenRequest struct {
	Subject    string `json:"subject"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

func (s *Server) issueToken(c *fiber.Ctx) error {
	if !s.cfg.Auth.DevTokens {
		return fiber.ErrNotFound
	}
	var req tokenRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest("invalid token request")
		}
	}
	if strings.TrimSpace(req.Subject) == "" {
		req.Subject = "dev"
	}
	ttl := s.cfg.Auth.TokenTTL()
	if req.TTLSeconds > 0 && time.Duration(req.TTLSeconds)*time.Second < ttl {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	tok, exp, err := IssueToken(s.secret, s.cfg.Auth.Issuer, req.Subject, ttl)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": tok, "expiresAt": exp.UTC()})
}

// --- Render ---

// renderVariables reads substitutions from the raw query so repeated keys
// keep their order; "format" is reserved.
func renderVariables(c *fiber.Ctx) (variables.Set, error) {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return nil, badRequest("invalid query string")
	}
	return variables.FromQuery(q, "format"), nil
}

func (s *Server) renderTemplate(c *fiber.Ctx) error {
	f, err := render.ParseFormat(c.Query("format"))
	if err != nil {
		return err
	}
	set, err := renderVariables(c)
	if err != nil {
		return err
	}
	res, err := s.renders.Render(c.UserContext(), c.Params("id"), set, f)
	if err != nil {
		return err
	}
	cacheState := "MISS"
	if res.Cached {
		cacheState = "HIT"
	}
	c.Set("X-Cache", cacheState)
	c.Set(fiber.HeaderETag, `"`+res.Key[strings.LastIndex(res.Key, "/")+1:]+`"`)
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	c.Set(fiber.HeaderContentType, f.ContentType())
	return c.Send(res.Data)
}

func (s *Server) templateVariables(c *fiber.Ctx) error {
	t, err := s.templates.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"variables": variables.Referenced(t.Tree)})
}

// --- Templates ---

type templateJSON struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	Name      string         `json:"name"`
	Tree      *document.Page `json:"tree,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func toJSON(t *storage.Template, withTree bool) templateJSON {
	out := templateJSON{ID: t.ID, Owner: t.Owner, Name: t.Name, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
	if withTree {
		out.Tree = t.Tree
	}
	return out
}

type templateRequest struct {
	Name *string         `json:"name"`
	Tree json.RawMessage `json:"tree"`
}

func parseTemplateRequest(c *fiber.Ctx) (templateRequest, *document.Page, error) {
	var req templateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, nil, badRequest("invalid template body")
	}
	if len(req.Tree) == 0 || string(req.Tree) == "null" {
		return req, nil, nil
	}
	tree, err := document.ParseTree(req.Tree)
	return req, tree, err
}

// ownedTemplate loads id and checks the caller owns it.
func (s *Server) ownedTemplate(c *fiber.Ctx, id string) (*storage.Template, error) {
	t, err := s.templates.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(subject(c)) {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Server) listTemplates(c *fiber.Ctx) error {
	list, err := s.templates.List(c.UserContext(), subject(c))
	if err != nil {
		return err
	}
	out := make([]templateJSON, 0, len(list))
	for _, t := range list {
		out = append(out, toJSON(t, false))
	}
	return c.JSON(fiber.Map{"templates": out})
}

func (s *Server) createTemplate(c *fiber.Ctx) error {
	req, tree, err := parseTemplateRequest(c)
	if err != nil {
		return err
	}
	if tree == nil {
		tree = document.DefaultTree()
		tree.Width, tree.Height = float64(s.cfg.Canvas.Width), float64(s.cfg.Canvas.Height)
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	t, err := s.templates.Create(c.UserContext(), subject(c), name, tree)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toJSON(t, true))
}

func (s *Server) getTemplate(c *fiber.Ctx) error {
	t, err := s.ownedTemplate(c, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toJSON(t, true))
}

func (s *Server) updateTemplate(c *fiber.Ctx) error {
	t, err := s.ownedTemplate(c, c.Params("id"))
	if err != nil {
		return err
	}
	req, tree, err := parseTemplateRequest(c)
	if err != nil {
		return err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if tree != nil {
		t.Tree = tree
	}
	if err := s.save(c.UserContext(), t); err != nil {
		return err
	}
	return c.JSON(toJSON(t, true))
}

func (s *Server) deleteTemplate(c *fiber.Ctx) error {
	t, err := s.ownedTemplate(c, c.Params("id"))
	if err != nil {
		return err
	}
	if err := s.templates.Delete(c.UserContext(), t.ID); err != nil {
		return err
	}
	s.invalidate(c.UserContext(), t.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// save persists t and drops its cached renders. The tree must pass the
// document schema so it can be loaded again.
func (s *Server) save(ctx context.Context, t *storage.Template) error {
	data, err := document.EncodeTree(t.Tree)
	if err != nil {
		return err
	}
	if err := document.Validate(data); err != nil {
		return err
	}
	if err := s.templates.Update(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx, t.ID)
	return nil
}

func (s *Server) invalidate(ctx context.Context, id string) {
	if err := s.renders.Invalidate(ctx, id); err != nil {
		s.log.Warn("render cache invalidation failed", slog.String("template", id), slog.Any("err", err))
	}
}

// --- Editor sessions ---

func (s *Server) openSession(c *fiber.Ctx) error {
	t, err := s.ownedTemplate(c, c.Params("id"))
	if err != nil {
		return err
	}
	sess := s.sessions.Open(t.ID, t.Owner, t.Tree)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sessionId": sess.ID, "state": sess.Store.State()})
}

func (s *Server) session(c *fiber.Ctx) (*Session, error) {
	return s.sessions.Get(c.Params("sid"), subject(c))
}

func (s *Server) sessionState(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(sess.Store.State())
}

func (s *Server) closeSession(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	s.sessions.Close(sess.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

type opsRequest struct {
	Ops []Op `json:"ops"`
}

// applyOps runs a batch of operations in order. Input ops that fail
// validation are reported by index in "rejected"; they change nothing.
func (s *Server) applyOps(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req opsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest("invalid ops body")
	}
	fns, err := decodeOps(req.Ops)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	rejected := []int{}
	for i, fn := range fns {
		if !fn(sess.Store) {
			rejected = append(rejected, i)
		}
	}
	return c.JSON(fiber.Map{"state": sess.Store.State(), "rejected": rejected})
}

type nodeStyle struct {
	ID    string      `json:"id"`
	Kind  string      `json:"kind"`
	Style paint.Style `json:"style"`
	CSS   string      `json:"css"`
}

// sessionStyles resolves query variables first so the canvas shows what the
// preview renders.
func (s *Server) sessionStyles(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	set, err := renderVariables(c)
	if err != nil {
		return err
	}
	tree := variables.ResolveTree(sess.Store.Tree(), set)
	out := make([]nodeStyle, 0, len(tree.Children)+1)
	add := func(n document.Node) {
		st := paint.CSS(n)
		out = append(out, nodeStyle{ID: n.Common().ID, Kind: string(n.Kind()), Style: st, CSS: st.String()})
	}
	add(tree)
	for _, ch := range tree.Children {
		add(ch)
	}
	return c.JSON(fiber.Map{"nodes": out})
}

func (s *Server) sessionPreview(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	set, err := renderVariables(c)
	if err != nil {
		return err
	}
	data, err := s.renderer.Render(c.UserContext(), sess.Store.Tree(), set, render.SVG)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, render.SVG.ContentType())
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

func (s *Server) saveSession(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	t, err := s.ownedTemplate(c, sess.TemplateID)
	if err != nil {
		return err
	}
	t.Tree = sess.Store.Tree()
	if err := s.save(c.UserContext(), t); err != nil {
		return err
	}
	return c.JSON(toJSON(t, false))
}
