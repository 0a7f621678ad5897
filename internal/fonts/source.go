/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package fonts resolves (family, weight, style) triples to font bytes and
// turns them into faces for measuring and drawing.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/goregular"

	"rendless/internal/paint"
)

// ErrNotFound is returned when a source does not carry the requested face.
var ErrNotFound = errors.New("font not found")

// Key identifies one face of a family.
type Key struct {
	Family string
	Weight int
	Style  string // normal | italic
}

// Normalize rounds the weight and folds unknown styles to normal.
func (k Key) Normalize() Key {
	k.Family = strings.TrimSpace(k.Family)
	k.Weight = paint.NormalizeWeight(k.Weight)
	if k.Style != "italic" {
		k.Style = "normal"
	}
	return k
}

func (k Key) Italic() bool { return k.Style == "italic" }

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s", k.Family, k.Weight, k.Style)
}

// Source fetches raw TTF/OTF bytes.
type Source interface {
	Fetch(ctx context.Context, k Key) ([]byte, error)
}

// Chain asks each source in order and returns the first hit. Sources that
// answer ErrNotFound are skipped; the first other failure is reported if no
// source succeeds.
type Chain []Source

func (c Chain) Fetch(ctx context.Context, k Key) ([]byte, error) {
	var firstErr error
	for _, s := range c {
		if s == nil {
			continue
		}
		data, err := s.Fetch(ctx, k)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
}

// Builtin serves the Go font family compiled into the binary. It answers
// for the family names "Go" and "Go Sans".
type Builtin struct{}

func (Builtin) Fetch(_ context.Context, k Key) ([]byte, error) {
	k = k.Normalize()
	switch strings.ToLower(k.Family) {
	case "go", "go sans":
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	switch {
	case k.Weight >= 600 && k.Italic():
		return gobolditalic.TTF, nil
	case k.Weight >= 600:
		return gobold.TTF, nil
	case k.Weight == 500 && k.Italic():
		return gomediumitalic.TTF, nil
	case k.Weight == 500:
		return gomedium.TTF, nil
	case k.Italic():
		return goitalic.TTF, nil
	}
	return goregular.TTF, nil
}

// Dir looks up files named like "Inter-Bold.ttf" or "Inter-SemiBold Italic.otf"
// either directly in the directory or in a sub directory named after the family.
type Dir string

func (d Dir) Fetch(_ context.Context, k Key) ([]byte, error) {
	if d == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	k = k.Normalize()
	for _, p := range d.candidates(k) {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read font %s: %w", p, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
}

func (d Dir) candidates(k Key) []string {
	style := paint.FontStyleName(k.Weight, k.Style)
	compact := strings.ReplaceAll(style, " ", "")
	family := strings.ReplaceAll(k.Family, " ", "")
	var names []string
	for _, f := range []string{k.Family, family} {
		for _, s := range []string{compact, style} {
			names = append(names, f+"-"+s+".ttf", f+"-"+s+".otf")
		}
	}
	var out []string
	for _, n := range names {
		out = append(out, filepath.Join(string(d), n), filepath.Join(string(d), k.Family, n))
	}
	return out
}
