/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import "github.com/google/uuid"

const (
	DefaultWidth  = 1200
	DefaultHeight = 630

	DefaultFontFamily = "Inter"
)

// NewID returns a fresh opaque node id.
func NewID() string { return uuid.NewString() }

// The blank* constructors return variant defaults without an id. Decoding
// starts from them so properties missing in older documents get filled.

func blankPage() *Page {
	return &Page{
		Base:              Base{Width: DefaultWidth, Height: DefaultHeight},
		BackgroundColor:   "#FFFFFF",
		BackgroundOpacity: 1,
		Children:          []Node{},
	}
}

func blankRect() *Rect {
	return &Rect{
		Base:              Base{Width: 200, Height: 200},
		BackgroundColor:   "#D9D9D9",
		BackgroundOpacity: 1,
		Border:            Border{BorderColor: "#000000", BorderStyle: "solid"},
		Shadow:            Shadow{ShadowColor: "#000000"},
	}
}

func blankText() *Text {
	return &Text{
		Base:             Base{Width: 400, Height: 60},
		Content:          "Text",
		FontFamily:       DefaultFontFamily,
		FontSize:         32,
		FontWeight:       400,
		FontStyle:        "normal",
		Color:            "#000000",
		TextColorOpacity: 1,
		TextAlign:        "left",
		TextTransform:    "none",
		LineHeight:       1.2,
		TextShadow:       TextShadow{TextShadowColor: "#000000"},
	}
}

func blankImage() *Image {
	return &Image{
		Base:      Base{Width: 300, Height: 200},
		ObjectFit: "cover",
		Border:    Border{BorderColor: "#000000", BorderStyle: "solid"},
		Shadow:    Shadow{ShadowColor: "#000000"},
	}
}

// NewPage returns an empty page of the given size.
func NewPage(width, height float64) *Page {
	p := blankPage()
	p.ID = NewID()
	p.Width, p.Height = width, height
	return p
}

// NewRect returns a default rectangle at (x, y).
func NewRect(x, y float64) *Rect {
	r := blankRect()
	r.ID = NewID()
	r.X, r.Y = x, y
	return r
}

// NewText returns a default text box at (x, y) holding content.
func NewText(x, y float64, content string) *Text {
	t := blankText()
	t.ID = NewID()
	t.X, t.Y = x, y
	t.Content = content
	return t
}

// NewImage returns an image box at (x, y). An empty src leaves the
// placeholder in place.
func NewImage(x, y float64, src string) *Image {
	i := blankImage()
	i.ID = NewID()
	i.X, i.Y = x, y
	if src != "" {
		i.Src = &src
	}
	return i
}

// DefaultTree is the starter template for new documents: a dark card with
// an accent bar, a bound title and a subtitle placeholder.
func DefaultTree() *Page {
	p := NewPage(DefaultWidth, DefaultHeight)
	p.BackgroundColor = "#0F172A"

	accent := NewRect(80, 80)
	accent.Width, accent.Height = 120, 12
	accent.BackgroundColor = "#38BDF8"
	accent.TopLeft, accent.TopRight, accent.BottomLeft, accent.BottomRight = 6, 6, 6, 6

	title := NewText(80, 140, "{{title}}")
	title.Width, title.Height = 1040, 260
	title.FontSize = 72
	title.FontWeight = 700
	title.Color = "#F8FAFC"
	title.LineHeight = 1.1

	subtitle := NewText(80, 470, "{{subtitle}}")
	subtitle.Width, subtitle.Height = 1040, 80
	subtitle.FontSize = 32
	subtitle.Color = "#94A3B8"

	p.Children = []Node{accent, title, subtitle}
	return p
}
