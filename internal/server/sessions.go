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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"rendless/internal/document"
	"rendless/internal/editor"
	"rendless/internal/history"
)

// Session is one open editor: a Store over a copy of a stored template.
// Sessions live in memory only and expire after a period of inactivity.
type Session struct {
	ID         string
	TemplateID string
	Owner      string
	Store      *editor.Store
}

// Sessions keeps open editors in a TTL cache. Every access renews the TTL.
type Sessions struct {
	c    *cache.Cache
	ttl  time.Duration
	hist history.Config
}

func NewSessions(ttl time.Duration, hist history.Config, log *slog.Logger) *Sessions {
	c := cache.New(ttl, ttl/2+time.Second)
	c.OnEvicted(func(id string, v any) {
		if s, ok := v.(*Session); ok {
			log.Debug("session closed", slog.String("session", id), slog.String("template", s.TemplateID))
		}
	})
	return &Sessions{c: c, ttl: ttl, hist: hist}
}

// Open starts a session editing tree.
func (m *Sessions) Open(templateID, owner string, tree *document.Page) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Owner:      owner,
		Store:      editor.New(tree, editor.Options{History: m.hist}),
	}
	m.c.Set(s.ID, s, m.ttl)
	return s
}

// Get returns the session for id if subject owns it.
func (m *Sessions) Get(id, subject string) (*Session, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return nil, errSessionNotFound
	}
	s := v.(*Session)
	if s.Owner != subject {
		return nil, ErrForbidden
	}
	m.c.Set(id, s, m.ttl)
	return s, nil
}

func (m *Sessions) Close(id string) { m.c.Delete(id) }

func (m *Sessions) Len() int { return m.c.ItemCount() }

// Dump writes the current tree of every open session to dir as
// session-<id>.json. It is the crash handler's autosave hook.
func (m *Sessions) Dump(dir string) (string, error) {
	n := 0
	for id, item := range m.c.Items() {
		s, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		data, err := document.EncodeTree(s.Store.Tree())
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(dir, "session-"+id+".json"), data, 0o644); err != nil {
			return "", fmt.Errorf("write session %s: %w", id, err)
		}
		n++
	}
	return fmt.Sprintf("%d session(s) in %s", n, dir), nil
}
