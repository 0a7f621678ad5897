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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rendless/internal/assets"
	"rendless/internal/config"
	"rendless/internal/document"
	"rendless/internal/fonts"
	"rendless/internal/objstore"
	"rendless/internal/render"
	"rendless/internal/storage"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "rendless.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := objstore.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	repo := storage.NewTemplates(db)
	renderer := render.NewRenderer(fonts.Builtin{}, assets.NewLoader(time.Minute))
	cfg := config.Defaults()
	cfg.Auth.DevTokens = true
	s, err := New(Deps{
		Config:    cfg,
		Secret:    testSecret,
		Templates: repo,
		Renderer:  renderer,
		Renders:   render.NewService(renderer, store, repo, cfg.Store.Prefix),
		Ready:     db.Ping,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok, _, err := IssueToken(testSecret, config.Defaults().Auth.Issuer, sub, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func testTree(t *testing.T) json.RawMessage {
	t.Helper()
	p := document.NewPage(200, 100)
	r := document.NewRect(10, 10)
	r.ID = "r1"
	r.Width, r.Height = 50, 50
	txt := document.NewText(70, 10, "Hi {{name}}")
	txt.ID = "t1"
	txt.FontFamily = "Go"
	txt.Width = 120
	p.Children = []document.Node{r, txt}
	data, err := document.EncodeTree(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.body, v); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func do(t *testing.T, s *Server, method, path, tok string, body any) response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

func createTemplate(t *testing.T, s *Server, tok string) string {
	t.Helper()
	res := do(t, s, http.MethodPost, "/api/templates", tok, map[string]any{"name": "Card", "tree": testTree(t)})
	if res.status != http.StatusCreated {
		t.Fatalf("create: %d %s", res.status, res.body)
	}
	var out struct {
		ID string `json:"id"`
	}
	res.json(t, &out)
	return out.ID
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		if res := do(t, s, http.MethodGet, p, "", nil); res.status != http.StatusOK {
			t.Fatalf("%s: %d", p, res.status)
		}
	}
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)
	res := do(t, s, http.MethodGet, "/api/templates", "", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.status)
	}
	var e struct {
		Error string `json:"error"`
	}
	res.json(t, &e)
	if e.Error == "" {
		t.Fatalf("error envelope missing: %s", res.body)
	}
	if res := do(t, s, http.MethodGet, "/api/templates", "garbage", nil); res.status != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", res.status)
	}
	expired, _, _ := IssueToken(testSecret, config.Defaults().Auth.Issuer, "alice", -time.Minute)
	if res := do(t, s, http.MethodGet, "/api/templates", expired, nil); res.status != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401, got %d", res.status)
	}

	res = do(t, s, http.MethodPost, "/api/auth/token", "", map[string]any{"subject": "carol"})
	if res.status != http.StatusOK {
		t.Fatalf("token endpoint: %d %s", res.status, res.body)
	}
	var tok struct {
		Token string `json:"token"`
	}
	res.json(t, &tok)
	if res := do(t, s, http.MethodGet, "/api/templates", tok.Token, nil); res.status != http.StatusOK {
		t.Fatalf("issued token rejected: %d %s", res.status, res.body)
	}
}

func TestTemplateOwnership(t *testing.T) {
	s := newTestServer(t)
	alice, bob := token(t, "alice"), token(t, "bob")
	id := createTemplate(t, s, alice)

	if res := do(t, s, http.MethodGet, "/api/templates/"+id, alice, nil); res.status != http.StatusOK {
		t.Fatalf("owner get: %d", res.status)
	}
	if res := do(t, s, http.MethodGet, "/api/templates/"+id, bob, nil); res.status != http.StatusForbidden {
		t.Fatalf("non-owner get: expected 403, got %d", res.status)
	}
	if res := do(t, s, http.MethodPut, "/api/templates/"+id, bob, map[string]any{"name": "x"}); res.status != http.StatusForbidden {
		t.Fatalf("non-owner put: expected 403, got %d", res.status)
	}
	if res := do(t, s, http.MethodGet, "/api/templates/missing", alice, nil); res.status != http.StatusNotFound {
		t.Fatalf("missing: expected 404, got %d", res.status)
	}
	bad := map[string]any{"tree": map[string]any{"type": "rect"}}
	if res := do(t, s, http.MethodPost, "/api/templates", alice, bad); res.status != http.StatusUnprocessableEntity {
		t.Fatalf("malformed tree: expected 422, got %d %s", res.status, res.body)
	}

	res := do(t, s, http.MethodGet, "/api/templates", alice, nil)
	var list struct {
		Templates []templateJSON `json:"templates"`
	}
	res.json(t, &list)
	if len(list.Templates) != 1 || list.Templates[0].ID != id {
		t.Fatalf("unexpected list %s", res.body)
	}

	if res := do(t, s, http.MethodDelete, "/api/templates/"+id, alice, nil); res.status != http.StatusNoContent {
		t.Fatalf("delete: %d", res.status)
	}
	if res := do(t, s, http.MethodGet, "/api/templates/"+id, alice, nil); res.status != http.StatusNotFound {
		t.Fatalf("after delete: expected 404, got %d", res.status)
	}
}

func TestRenderEndpointCaches(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice")
	id := createTemplate(t, s, alice)

	res := do(t, s, http.MethodGet, "/api/templates/"+id+"/variables", "", nil)
	var vars struct {
		Variables []string `json:"variables"`
	}
	res.json(t, &vars)
	if len(vars.Variables) != 1 || vars.Variables[0] != "name" {
		t.Fatalf("variables: %s", res.body)
	}

	path := "/api/templates/" + id + "/render?name=World"
	res = do(t, s, http.MethodGet, path, "", nil)
	if res.status != http.StatusOK {
		t.Fatalf("render: %d %s", res.status, res.body)
	}
	if ct := res.header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if !bytes.HasPrefix(res.body, []byte("\x89PNG")) {
		t.Fatalf("body is not a png")
	}
	if res.header.Get("X-Cache") != "MISS" {
		t.Fatalf("first render should miss")
	}
	if res := do(t, s, http.MethodGet, path+"&utm_source=x", "", nil); res.header.Get("X-Cache") != "HIT" {
		t.Fatalf("second render should hit, got %q", res.header.Get("X-Cache"))
	}

	if res := do(t, s, http.MethodPut, "/api/templates/"+id, alice, map[string]any{"name": "Renamed"}); res.status != http.StatusOK {
		t.Fatalf("update: %d %s", res.status, res.body)
	}
	if res := do(t, s, http.MethodGet, path, "", nil); res.header.Get("X-Cache") != "MISS" {
		t.Fatalf("save should invalidate cached renders")
	}

	res = do(t, s, http.MethodGet, "/api/templates/"+id+"/render?format=svg&name=World", "", nil)
	if res.status != http.StatusOK || !strings.Contains(string(res.body), "<svg") {
		t.Fatalf("svg render: %d", res.status)
	}
	if res := do(t, s, http.MethodGet, "/api/templates/"+id+"/render?format=gif", "", nil); res.status != http.StatusBadRequest {
		t.Fatalf("unknown format: expected 400, got %d", res.status)
	}
	if res := do(t, s, http.MethodGet, "/api/templates/nope/render", "", nil); res.status != http.StatusNotFound {
		t.Fatalf("missing template: expected 404, got %d", res.status)
	}
}

func TestEditorSession(t *testing.T) {
	s := newTestServer(t)
	alice, bob := token(t, "alice"), token(t, "bob")
	id := createTemplate(t, s, alice)

	res := do(t, s, http.MethodPost, "/api/templates/"+id+"/sessions", alice, nil)
	if res.status != http.StatusCreated {
		t.Fatalf("open session: %d %s", res.status, res.body)
	}
	var opened struct {
		SessionID string `json:"sessionId"`
	}
	res.json(t, &opened)
	base := "/api/sessions/" + opened.SessionID

	if res := do(t, s, http.MethodGet, base, bob, nil); res.status != http.StatusForbidden {
		t.Fatalf("foreign session: expected 403, got %d", res.status)
	}

	ops := map[string]any{"ops": []map[string]any{
		{"op": "input", "id": "r1", "property": "backgroundColor", "value": "#00FF00"},
		{"op": "input", "id": "r1", "property": "backgroundColor", "value": "green"},
		{"op": "update", "patches": []map[string]any{{"id": "r1", "x": 20}}},
		{"op": "select", "ids": []string{"r1"}},
		{"op": "tool", "tool": "text"},
	}}
	res = do(t, s, http.MethodPost, base+"/ops", alice, ops)
	if res.status != http.StatusOK {
		t.Fatalf("ops: %d %s", res.status, res.body)
	}
	var applied struct {
		State struct {
			Tree         json.RawMessage `json:"tree"`
			Selected     []string        `json:"selected"`
			SelectedTool string          `json:"selectedTool"`
			CanUndo      bool            `json:"canUndo"`
		} `json:"state"`
		Rejected []int `json:"rejected"`
	}
	res.json(t, &applied)
	if len(applied.Rejected) != 1 || applied.Rejected[0] != 1 {
		t.Fatalf("expected op 1 rejected, got %v", applied.Rejected)
	}
	if applied.State.SelectedTool != "text" || len(applied.State.Selected) != 1 || !applied.State.CanUndo {
		t.Fatalf("unexpected state %s", res.body)
	}
	tree, err := document.DecodeTree(applied.State.Tree)
	if err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	rect := tree.Children[0].(*document.Rect)
	if rect.BackgroundColor != "#00FF00" || rect.X != 20 {
		t.Fatalf("ops not applied: %+v", rect)
	}

	bad := map[string]any{"ops": []map[string]any{{"op": "undo"}, {"op": "explode"}}}
	if res := do(t, s, http.MethodPost, base+"/ops", alice, bad); res.status != http.StatusBadRequest {
		t.Fatalf("unknown op: expected 400, got %d", res.status)
	}

	res = do(t, s, http.MethodGet, base+"/styles", alice, nil)
	if res.status != http.StatusOK || !strings.Contains(string(res.body), "background-color") {
		t.Fatalf("styles: %d %s", res.status, res.body)
	}
	res = do(t, s, http.MethodGet, base+"/preview?name=Preview", alice, nil)
	if res.status != http.StatusOK || !strings.Contains(string(res.body), "Preview") {
		t.Fatalf("preview: %d", res.status)
	}

	if res := do(t, s, http.MethodPost, base+"/save", alice, nil); res.status != http.StatusOK {
		t.Fatalf("save: %d %s", res.status, res.body)
	}
	res = do(t, s, http.MethodGet, "/api/templates/"+id, alice, nil)
	var saved templateJSON
	res.json(t, &saved)
	if saved.Tree == nil || saved.Tree.Children[0].(*document.Rect).BackgroundColor != "#00FF00" {
		t.Fatalf("session edits not persisted: %s", res.body)
	}

	if res := do(t, s, http.MethodDelete, base, alice, nil); res.status != http.StatusNoContent {
		t.Fatalf("close: %d", res.status)
	}
	if res := do(t, s, http.MethodGet, base, alice, nil); res.status != http.StatusNotFound {
		t.Fatalf("closed session: expected 404, got %d", res.status)
	}
}

func TestDumpSessions(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice")
	id := createTemplate(t, s, alice)
	if res := do(t, s, http.MethodPost, "/api/templates/"+id+"/sessions", alice, nil); res.status != http.StatusCreated {
		t.Fatalf("open session: %d", res.status)
	}
	dir := t.TempDir()
	if _, err := s.DumpSessions(dir); err != nil {
		t.Fatalf("dump: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "session-*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one dumped session, got %v", matches)
	}
}

func TestSessionStylesResolveVariablesAndSaveValidates(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice")
	id := createTemplate(t, s, alice)
	res := do(t, s, http.MethodPost, "/api/templates/"+id+"/sessions", alice, nil)
	var opened struct {
		SessionID string `json:"sessionId"`
	}
	res.json(t, &opened)
	base := "/api/sessions/" + opened.SessionID

	badNode := map[string]any{"ops": []map[string]any{{"op": "add", "node": map[string]any{
		"type": "text", "id": "t2", "x": 0, "y": 0, "width": 10, "height": 10, "fontSize": 0,
	}}}}
	if res := do(t, s, http.MethodPost, base+"/ops", alice, badNode); res.status != http.StatusBadRequest {
		t.Fatalf("invalid node: expected 400, got %d %s", res.status, res.body)
	}

	bind := map[string]any{"ops": []map[string]any{
		{"op": "input", "id": "r1", "property": "backgroundColor", "value": "{{bg}}"},
		{"op": "input", "id": "t1", "property": "fontSize", "value": "0"},
	}}
	res = do(t, s, http.MethodPost, base+"/ops", alice, bind)
	var applied struct {
		Rejected []int `json:"rejected"`
	}
	res.json(t, &applied)
	if len(applied.Rejected) != 1 || applied.Rejected[0] != 1 {
		t.Fatalf("expected fontSize 0 rejected, got %v", applied.Rejected)
	}

	res = do(t, s, http.MethodGet, base+"/styles?bg=%230000FF", alice, nil)
	if !strings.Contains(string(res.body), "rgba(0, 0, 255, 1)") {
		t.Fatalf("styles must resolve variables: %s", res.body)
	}
	res = do(t, s, http.MethodGet, base+"/styles", alice, nil)
	if strings.Contains(string(res.body), "rgba(0, 0, 255, 1)") {
		t.Fatalf("unresolved styles must keep the literal: %s", res.body)
	}

	ctx := context.Background()
	tpl, err := s.templates.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	tpl.Tree.Width = -100
	err = s.save(ctx, tpl)
	if !errors.Is(err, document.ErrMalformedDocument) || statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("invalid tree must not be saved: %v", err)
	}
	if res := do(t, s, http.MethodGet, "/api/templates/"+id, alice, nil); res.status != http.StatusOK {
		t.Fatalf("stored template must stay loadable: %d %s", res.status, res.body)
	}
}
