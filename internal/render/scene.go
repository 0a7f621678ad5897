/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image/color"
	"slices"

	"rendless/internal/assets"
	"rendless/internal/document"
	"rendless/internal/fonts"
	"rendless/internal/paint"
	"rendless/internal/textlayout"
)

// Scene is a fully laid out page: every node reduced to absolutely
// positioned primitives in paint order. Writers only draw what is here.
type Scene struct {
	Width, Height float64
	Background    color.NRGBA
	Items         []Item
}

// Item is one child of the page.
type Item struct {
	ID     string
	Kind   document.Kind
	Box    paint.Rect
	Rotate float64 // degrees clockwise around the box centre
	Blur   float64 // filter blur radius

	// Box decoration for rects and images.
	Fill   color.NRGBA
	Radii  paint.Corners
	Stroke *paint.Stroke
	Shadow *paint.BoxShadow

	Text  *TextBlock
	Image *ImageBlock
}

// Center returns the rotation origin.
func (it Item) Center() (float64, float64) {
	return it.Box.X + it.Box.W/2, it.Box.Y + it.Box.H/2
}

// TextBlock is laid out text. Line and word positions are relative to Box.
type TextBlock struct {
	Font   *fonts.Font
	Family string
	Weight int
	Style  string
	Size   float64
	Color  color.NRGBA
	Align  string
	Lines  []textlayout.Line
	Shadow *paint.BoxShadow
}

// ImageBlock places an asset. Dest may extend past the item box; it is
// clipped to the rounded box outline. A nil Asset draws the placeholder.
type ImageBlock struct {
	Asset *assets.Image
	Dest  paint.Rect
}

// FontKey returns the face key a text node needs.
func FontKey(t *document.Text) fonts.Key {
	return fonts.Key{Family: t.FontFamily, Weight: t.FontWeight, Style: t.FontStyle}.Normalize()
}

// CollectFonts returns the distinct faces used by the text children of p,
// in first-use order.
func CollectFonts(p *document.Page) []fonts.Key {
	var keys []fonts.Key
	for _, ch := range p.Children {
		t, ok := ch.(*document.Text)
		if !ok {
			continue
		}
		k := FontKey(t)
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// CollectImages returns the distinct non-empty image sources of p.
func CollectImages(p *document.Page) []string {
	var out []string
	for _, ch := range p.Children {
		img, ok := ch.(*document.Image)
		if !ok || img.Src == nil || *img.Src == "" {
			continue
		}
		if !slices.Contains(out, *img.Src) {
			out = append(out, *img.Src)
		}
	}
	return out
}

// Compose lays out an already resolved page. Every face must be loaded in
// lib and every image source present in images.
func Compose(p *document.Page, lib *fonts.Library, images map[string]*assets.Image) (*Scene, error) {
	sc := &Scene{
		Width:      p.Width,
		Height:     p.Height,
		Background: paint.Fill(p.BackgroundColor, p.BackgroundOpacity),
	}
	for _, ch := range p.Children {
		b := ch.Common()
		it := Item{
			ID:     b.ID,
			Kind:   ch.Kind(),
			Box:    paint.Rect{X: b.X, Y: b.Y, W: b.Width, H: b.Height},
			Rotate: b.Rotate,
		}
		switch n := ch.(type) {
		case *document.Rect:
			it.Fill = paint.Fill(n.BackgroundColor, n.BackgroundOpacity)
			decorate(&it, n.Radii, n.Border, n.BorderOffset, n.Shadow)
			it.Blur = n.Blur
		case *document.Image:
			decorate(&it, n.Radii, n.Border, 0, n.Shadow)
			it.Blur = n.Blur
			ib := &ImageBlock{Dest: it.Box}
			if n.Src != nil && *n.Src != "" {
				a, ok := images[*n.Src]
				if !ok {
					return nil, fmt.Errorf("%w: %s not loaded", assets.ErrUnavailable, *n.Src)
				}
				ib.Asset = a
				ib.Dest = paint.Fit(n.ObjectFit, a.Width(), a.Height(), it.Box)
			}
			it.Image = ib
		case *document.Text:
			tb, err := layoutText(n, lib)
			if err != nil {
				return nil, err
			}
			it.Text = tb
			it.Blur = n.Blur
		default:
			continue
		}
		sc.Items = append(sc.Items, it)
	}
	return sc, nil
}

func decorate(it *Item, r document.Radii, border document.Border, offset float64, shadow document.Shadow) {
	it.Radii = paint.ClampRadii(r, it.Box.W, it.Box.H)
	if st, ok := paint.BorderOf(border, offset); ok {
		it.Stroke = &st
	}
	if sh, ok := paint.ShadowOf(shadow); ok {
		it.Shadow = &sh
	}
}

func layoutText(t *document.Text, lib *fonts.Library) (*TextBlock, error) {
	k := FontKey(t)
	face, ok := lib.Font(k)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFontUnavailable, k)
	}
	m, err := face.Measurer(t.FontSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	lh := t.LineHeight * t.FontSize
	box := textlayout.Layout(paint.Transform(t.Content, t.TextTransform), m, textlayout.Options{
		Width:      t.Width,
		LineHeight: lh,
		Align:      t.TextAlign,
	})
	tb := &TextBlock{
		Font:   face,
		Family: k.Family,
		Weight: k.Weight,
		Style:  k.Style,
		Size:   t.FontSize,
		Color:  paint.Fill(t.Color, t.TextColorOpacity),
		Align:  t.TextAlign,
		Lines:  box.Lines,
	}
	if sh, ok := paint.TextShadowOf(t.TextShadow); ok {
		tb.Shadow = &sh
	}
	return tb, nil
}
