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
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"sync"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	applog "rendless/internal/log"
	"rendless/internal/textlayout"
)

// PtPerUnit converts document units to canvas font points. The rasteriser
// maps one canvas millimetre to one pixel, and canvas sizes faces in points.
const PtPerUnit = 72 / 25.4

// Font is one loaded face.
type Font struct {
	Key    Key
	Data   []byte
	otf    *opentype.Font
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Measurer returns a layout measurer at size document units per em.
func (f *Font) Measurer(size float64) (textlayout.Measurer, error) {
	face, err := opentype.NewFace(f.otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("face %s at %g: %w", f.Key, size, err)
	}
	return textlayout.FaceMeasurer{Face: face}, nil
}

// Face returns a canvas face at size document units per em.
func (f *Font) Face(size float64, col color.Color) *canvas.FontFace {
	return f.family.Face(size*PtPerUnit, col, f.style, canvas.FontNormal)
}

// Library holds the faces one render needs. Faces are loaded up front and
// looked up synchronously while composing.
type Library struct {
	src Source
	log *slog.Logger

	mu    sync.RWMutex
	fonts map[Key]*Font
}

func NewLibrary(src Source) *Library {
	return &Library{src: src, log: applog.WithComponent("fonts"), fonts: map[Key]*Font{}}
}

// Load fetches every key concurrently and waits for all of them. The first
// failure is returned; nothing falls back to another face.
func (l *Library) Load(ctx context.Context, keys []Key) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for _, k := range keys {
		k = k.Normalize()
		if _, ok := l.Font(k); ok {
			continue
		}
		wg.Add(1)
		go func(k Key) {
			defer wg.Done()
			f, err := l.load(ctx, k)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			l.mu.Lock()
			l.fonts[k] = f
			l.mu.Unlock()
		}(k)
	}
	wg.Wait()
	return firstErr
}

func (l *Library) load(ctx context.Context, k Key) (*Font, error) {
	data, err := l.src.Fetch(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", k, err)
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", k, err)
	}
	style := canvasStyle(k)
	family := canvas.NewFontFamily(k.Family)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("load font %s: %w", k, err)
	}
	l.log.Debug("font loaded", slog.String("font", k.String()), slog.Int("bytes", len(data)))
	return &Font{Key: k, Data: data, otf: otf, family: family, style: style}, nil
}

// Font returns a loaded face.
func (l *Library) Font(k Key) (*Font, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.fonts[k.Normalize()]
	return f, ok
}

// Fonts returns every loaded face.
func (l *Library) Fonts() []*Font {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Font, 0, len(l.fonts))
	for _, f := range l.fonts {
		out = append(out, f)
	}
	return out
}

func canvasStyle(k Key) canvas.FontStyle {
	var s canvas.FontStyle
	switch {
	case k.Weight <= 100:
		s = canvas.FontThin
	case k.Weight <= 200:
		s = canvas.FontExtraLight
	case k.Weight <= 300:
		s = canvas.FontLight
	case k.Weight == 500:
		s = canvas.FontMedium
	case k.Weight == 600:
		s = canvas.FontSemiBold
	case k.Weight == 700:
		s = canvas.FontBold
	case k.Weight == 800:
		s = canvas.FontExtraBold
	case k.Weight >= 900:
		s = canvas.FontBlack
	default:
		s = canvas.FontRegular
	}
	if k.Italic() {
		s |= canvas.FontItalic
	}
	return s
}
