/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render turns a template tree and a set of variable values into
// an image. The pipeline resolves variables, loads every face and image the
// page needs, composes a Scene and hands it to the SVG, PNG or PDF writer.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rendless/internal/assets"
	"rendless/internal/document"
	"rendless/internal/fonts"
	applog "rendless/internal/log"
	"rendless/internal/variables"
)

// ErrFontUnavailable is returned when a required face cannot be loaded.
var ErrFontUnavailable = errors.New("font unavailable")

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	PDF Format = "pdf"
)

// ParseFormat maps a query value to a Format; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return PNG, nil
	case PNG, SVG, PDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case SVG:
		return "image/svg+xml"
	case PDF:
		return "application/pdf"
	}
	return "image/png"
}

// Renderer runs the pipeline. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	Fonts  fonts.Source
	Assets assets.Fetcher
	log    *slog.Logger
}

func NewRenderer(src fonts.Source, fetcher assets.Fetcher) *Renderer {
	return &Renderer{Fonts: src, Assets: fetcher, log: applog.WithComponent("render")}
}

// Scene resolves variables, awaits every face and image and composes the
// page. Any missing font or image fails the whole render.
func (r *Renderer) Scene(ctx context.Context, page *document.Page, set variables.Set) (*Scene, error) {
	resolved := variables.ResolveTree(page, set)

	lib := fonts.NewLibrary(r.Fonts)
	if err := lib.Load(ctx, CollectFonts(resolved)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFontUnavailable, err)
	}
	images, err := r.loadImages(ctx, CollectImages(resolved))
	if err != nil {
		return nil, err
	}
	return Compose(resolved, lib, images)
}

func (r *Renderer) loadImages(ctx context.Context, srcs []string) (map[string]*assets.Image, error) {
	out := make(map[string]*assets.Image, len(srcs))
	if len(srcs) == 0 {
		return out, nil
	}
	if r.Assets == nil {
		return nil, fmt.Errorf("%w: no image fetcher configured", assets.ErrUnavailable)
	}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for _, src := range srcs {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			img, err := r.Assets.Fetch(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[src] = img
		}(src)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Render produces the encoded output for page.
func (r *Renderer) Render(ctx context.Context, page *document.Page, set variables.Set, f Format) ([]byte, error) {
	start := time.Now()
	sc, err := r.Scene(ctx, page, set)
	if err != nil {
		r.log.Warn("render failed", slog.String("page", page.ID), slog.Any("err", err))
		return nil, err
	}
	var buf bytes.Buffer
	switch f {
	case SVG:
		err = WriteSVG(&buf, sc, SVGOptions{EmbedFonts: true})
	case PDF:
		err = WritePDF(&buf, sc, page.ID)
	case PNG, "":
		err = RasterizePNG(&buf, sc)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, err
	}
	r.log.Debug("rendered", slog.String("page", page.ID), slog.String("format", string(f)),
		slog.Int("bytes", buf.Len()), slog.Duration("took", time.Since(start)))
	return buf.Bytes(), nil
}
