/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rendless/internal/document"
)

// ErrNotFound is returned when a template id does not exist.
var ErrNotFound = errors.New("template not found")

// Template is a stored document tree.
type Template struct {
	ID        string
	Owner     string
	Name      string
	Tree      *document.Page
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy reports whether subject may modify the template.
func (t *Template) OwnedBy(subject string) bool { return t.Owner != "" && t.Owner == subject }

// Templates is the template repository.
type Templates struct {
	db  *DB
	now func() time.Time
}

func NewTemplates(db *DB) *Templates {
	return &Templates{db: db, now: time.Now}
}

const templateColumns = `id, owner, name, tree, created_at, updated_at`

// Create stores a new template. A nil tree stores the default template.
func (r *Templates) Create(ctx context.Context, owner, name string, tree *document.Page) (*Template, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("template owner is required")
	}
	if tree == nil {
		tree = document.DefaultTree()
	}
	data, err := document.EncodeTree(tree)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	t := &Template{ID: document.NewID(), Owner: owner, Name: name, Tree: tree, CreatedAt: now, UpdatedAt: now}
	q := r.db.rebind(`INSERT INTO templates (id, owner, name, tree, width, height, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.sql.ExecContext(ctx, q, t.ID, owner, name, string(data),
		int(tree.Width), int(tree.Height), now.UnixMilli(), now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	r.db.log.Debug("template created", slog.String("id", t.ID), slog.String("owner", owner))
	return t, nil
}

// Get loads a template with its decoded tree.
func (r *Templates) Get(ctx context.Context, id string) (*Template, error) {
	row := r.db.sql.QueryRowContext(ctx, r.db.rebind(`SELECT `+templateColumns+` FROM templates WHERE id = ?`), id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

// Tree loads only the document tree.
func (r *Templates) Tree(ctx context.Context, id string) (*document.Page, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Tree, nil
}

// Update replaces name and tree and bumps updated_at.
func (r *Templates) Update(ctx context.Context, t *Template) error {
	if t.Tree == nil {
		return fmt.Errorf("%w: missing tree", document.ErrMalformedDocument)
	}
	data, err := document.EncodeTree(t.Tree)
	if err != nil {
		return err
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	q := r.db.rebind(`UPDATE templates SET name = ?, tree = ?, width = ?, height = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.sql.ExecContext(ctx, q, t.Name, string(data), int(t.Tree.Width), int(t.Tree.Height), now.UnixMilli(), t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	t.UpdatedAt = now
	return nil
}

func (r *Templates) Delete(ctx context.Context, id string) error {
	res, err := r.db.sql.ExecContext(ctx, r.db.rebind(`DELETE FROM templates WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns the templates of owner, most recently updated first.
func (r *Templates) List(ctx context.Context, owner string) ([]*Template, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		r.db.rebind(`SELECT `+templateColumns+` FROM templates WHERE owner = ? ORDER BY updated_at DESC, id`), owner)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (*Template, error) {
	var (
		t                Template
		tree             string
		created, updated int64
	)
	if err := s.Scan(&t.ID, &t.Owner, &t.Name, &tree, &created, &updated); err != nil {
		return nil, err
	}
	p, err := document.DecodeTree([]byte(tree))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	t.Tree = p
	t.CreatedAt = time.UnixMilli(created).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return &t, nil
}
