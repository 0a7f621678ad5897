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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rendless/internal/document"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "data", "rendless.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func exerciseTemplates(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	repo := NewTemplates(db)

	created, err := repo.Create(ctx, "alice", "Launch card", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != "alice" || got.Name != "Launch card" {
		t.Fatalf("unexpected template %+v", got)
	}
	if len(got.Tree.Children) != len(document.DefaultTree().Children) {
		t.Fatalf("default tree not stored: %d children", len(got.Tree.Children))
	}
	if !got.OwnedBy("alice") || got.OwnedBy("bob") {
		t.Fatalf("ownership check wrong")
	}

	got.Name = "Renamed"
	got.Tree.BackgroundColor = "#112233"
	got.Tree.Children = got.Tree.Children[:1]
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	tree, err := repo.Tree(ctx, created.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if tree.BackgroundColor != "#112233" || len(tree.Children) != 1 {
		t.Fatalf("update not persisted: %+v", tree)
	}

	if _, err := repo.Create(ctx, "alice", "Second", document.NewPage(800, 400)); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := repo.Create(ctx, "bob", "Other", nil); err != nil {
		t.Fatalf("create other: %v", err)
	}
	list, err := repo.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 templates for alice, got %d", len(list))
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	missing := &Template{ID: "nope", Tree: document.NewPage(10, 10)}
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestTemplatesSQLite(t *testing.T) {
	exerciseTemplates(t, openTestDB(t))
}

func TestTemplatesListOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplates(db)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	ctx := context.Background()

	a, _ := repo.Create(ctx, "alice", "a", nil)
	b, _ := repo.Create(ctx, "alice", "b", nil)
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := repo.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("expected most recently updated first")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	again, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no migrations on second run, got %v", again)
	}
	applied, err := db.Applied(context.Background())
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 2 || applied[0].Version != 1 || applied[1].Version != 2 {
		t.Fatalf("unexpected applied set %v", applied)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Postgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind: %q", got)
	}
	lite := &DB{dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\nCREATE INDEX i ON a(x);\n")
	if len(got) != 2 || got[1] != "CREATE INDEX i ON a(x)" {
		t.Fatalf("split: %q", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestTemplatesPostgres(t *testing.T) {
	dsn := os.Getenv("RDL_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("RDL_TEST_PG_DSN not set")
	}
	db, err := Open(context.Background(), "postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.sql.Exec(`DELETE FROM templates WHERE owner IN ('alice', 'bob')`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	exerciseTemplates(t, db)
}
