/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package fonts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

type countingSource struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (c *countingSource) Fetch(context.Context, Key) ([]byte, error) {
	c.calls.Add(1)
	return c.data, c.err
}

func TestCanvasStyleWeights(t *testing.T) {
	cases := []struct {
		key  Key
		want canvas.FontStyle
	}{
		{Key{Weight: 100}, canvas.FontThin},
		{Key{Weight: 200}, canvas.FontExtraLight},
		{Key{Weight: 300}, canvas.FontLight},
		{Key{Weight: 400}, canvas.FontRegular},
		{Key{Weight: 700, Style: "italic"}, canvas.FontBold | canvas.FontItalic},
		{Key{Weight: 900}, canvas.FontBlack},
	}
	for _, c := range cases {
		if got := canvasStyle(c.key); got != c.want {
			t.Fatalf("canvasStyle(%v) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestKeyNormalize(t *testing.T) {
	k := Key{Family: " Inter ", Weight: 649, Style: "oblique"}.Normalize()
	if k.Family != "Inter" || k.Weight != 600 || k.Style != "normal" {
		t.Fatalf("unexpected key %+v", k)
	}
	if got := (Key{Family: "Inter", Weight: 0}).Normalize().Weight; got != 400 {
		t.Fatalf("zero weight should become 400, got %d", got)
	}
}

func TestBuiltinPicksFace(t *testing.T) {
	ctx := context.Background()
	data, err := Builtin{}.Fetch(ctx, Key{Family: "Go", Weight: 700})
	if err != nil || !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("expected gobold, err=%v", err)
	}
	data, err = Builtin{}.Fetch(ctx, Key{Family: "go sans", Weight: 400, Style: "italic"})
	if err != nil || !bytes.Equal(data, goitalic.TTF) {
		t.Fatalf("expected goitalic, err=%v", err)
	}
	if _, err := (Builtin{}).Fetch(ctx, Key{Family: "Inter", Weight: 400}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Open Sans"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Inter-Bold.ttf"), gobold.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Open Sans", "OpenSans-Italic.otf"), goitalic.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if data, err := Dir(dir).Fetch(ctx, Key{Family: "Inter", Weight: 700}); err != nil || !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("Inter bold: err=%v", err)
	}
	if data, err := Dir(dir).Fetch(ctx, Key{Family: "Open Sans", Weight: 400, Style: "italic"}); err != nil || !bytes.Equal(data, goitalic.TTF) {
		t.Fatalf("Open Sans italic: err=%v", err)
	}
	if _, err := Dir(dir).Fetch(ctx, Key{Family: "Inter", Weight: 400}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing face should be ErrNotFound, got %v", err)
	}
	if _, err := Dir("").Fetch(ctx, Key{Family: "Inter"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty dir should be ErrNotFound, got %v", err)
	}
}

func TestGoogleSource(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/css2":
			fam := r.URL.Query().Get("family")
			if !strings.HasPrefix(fam, "Inter:") {
				http.Error(w, "unknown family", http.StatusBadRequest)
				return
			}
			if fam != "Inter:ital,wght@0,700" {
				t.Errorf("unexpected family query %q", fam)
			}
			fmt.Fprintf(w, "@font-face {\n  font-family: 'Inter';\n  src: url(%s/files/inter-700.ttf) format('truetype');\n}\n", srv.URL)
		case "/files/inter-700.ttf":
			_, _ = w.Write(gobold.TTF)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGoogle(srv.URL + "/css2")
	data, err := g.Fetch(context.Background(), Key{Family: "Inter", Weight: 700})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("unexpected font bytes")
	}
	if _, err := g.Fetch(context.Background(), Key{Family: "Nope", Weight: 400}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown family should be ErrNotFound, got %v", err)
	}
}

func TestChainOrder(t *testing.T) {
	miss := &countingSource{err: ErrNotFound}
	hit := &countingSource{data: goregular.TTF}
	never := &countingSource{data: gobold.TTF}
	data, err := Chain{miss, hit, never}.Fetch(context.Background(), Key{Family: "X"})
	if err != nil || !bytes.Equal(data, goregular.TTF) {
		t.Fatalf("chain: err=%v", err)
	}
	if never.calls.Load() != 0 {
		t.Fatalf("chain should stop at first hit")
	}

	boom := errors.New("boom")
	_, err = Chain{&countingSource{err: boom}, miss}.Fetch(context.Background(), Key{Family: "X"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected first hard error, got %v", err)
	}
	_, err = Chain{miss}.Fetch(context.Background(), Key{Family: "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCachedMemoisesValidFonts(t *testing.T) {
	src := &countingSource{data: goregular.TTF}
	c := NewCached(src, 0)
	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(context.Background(), Key{Family: "Go", Weight: 400}); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if src.calls.Load() != 1 || c.Len() != 1 {
		t.Fatalf("calls=%d len=%d", src.calls.Load(), c.Len())
	}

	bad := &countingSource{data: []byte("not a font")}
	cb := NewCached(bad, 0)
	for i := 0; i < 2; i++ {
		if _, err := cb.Fetch(context.Background(), Key{Family: "Go"}); err == nil {
			t.Fatalf("invalid font data should fail")
		}
	}
	if bad.calls.Load() != 2 {
		t.Fatalf("invalid data must not be cached, calls=%d", bad.calls.Load())
	}
}

func TestLibraryLoad(t *testing.T) {
	lib := NewLibrary(Builtin{})
	keys := []Key{{Family: "Go", Weight: 400}, {Family: "Go", Weight: 700}, {Family: "Go", Weight: 400, Style: "italic"}}
	if err := lib.Load(context.Background(), keys); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib.Fonts()) != 3 {
		t.Fatalf("expected 3 faces, got %d", len(lib.Fonts()))
	}
	f, ok := lib.Font(Key{Family: "Go", Weight: 650})
	if !ok || f.Key.Weight != 700 {
		t.Fatalf("lookup should normalise the key")
	}
	m, err := f.Measurer(32)
	if err != nil {
		t.Fatalf("Measurer: %v", err)
	}
	if m.Advance("Hello") <= m.Advance("Hi") {
		t.Fatalf("advances look wrong")
	}
	asc, desc := m.Metrics()
	if asc <= 0 || desc <= 0 || asc+desc > 64 {
		t.Fatalf("metrics asc=%v desc=%v", asc, desc)
	}
	if face := f.Face(32, color.Black); face == nil {
		t.Fatalf("nil canvas face")
	}

	err = lib.Load(context.Background(), []Key{{Family: "Missing", Weight: 400}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
