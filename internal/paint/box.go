/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paint

import (
	"image/color"
	"math"

	"rendless/internal/document"
)

// Corners are clamped corner radii in document units.
type Corners struct {
	TopLeft, TopRight, BottomRight, BottomLeft float64
}

// Zero reports whether every corner is square.
func (c Corners) Zero() bool {
	return c.TopLeft == 0 && c.TopRight == 0 && c.BottomRight == 0 && c.BottomLeft == 0
}

// Uniform reports whether all corners share one radius.
func (c Corners) Uniform() bool {
	return c.TopLeft == c.TopRight && c.TopRight == c.BottomRight && c.BottomRight == c.BottomLeft
}

// Inset shrinks (d > 0) or grows (d < 0) every radius, never below zero.
func (c Corners) Inset(d float64) Corners {
	f := func(r float64) float64 {
		if r == 0 {
			return 0
		}
		return math.Max(0, r-d)
	}
	return Corners{f(c.TopLeft), f(c.TopRight), f(c.BottomRight), f(c.BottomLeft)}
}

// ClampRadii applies the CSS overlap rule: negative radii become zero and if
// adjacent radii exceed a side, all four scale down by the same factor.
func ClampRadii(r document.Radii, w, h float64) Corners {
	c := Corners{
		TopLeft:     math.Max(0, r.TopLeft),
		TopRight:    math.Max(0, r.TopRight),
		BottomRight: math.Max(0, r.BottomRight),
		BottomLeft:  math.Max(0, r.BottomLeft),
	}
	f := 1.0
	ratio := func(side, a, b float64) {
		if a+b > 0 {
			f = math.Min(f, side/(a+b))
		}
	}
	ratio(w, c.TopLeft, c.TopRight)
	ratio(w, c.BottomLeft, c.BottomRight)
	ratio(h, c.TopLeft, c.BottomLeft)
	ratio(h, c.TopRight, c.BottomRight)
	f = math.Max(0, f)
	if f < 1 {
		c = Corners{c.TopLeft * f, c.TopRight * f, c.BottomRight * f, c.BottomLeft * f}
	}
	return c
}

// BoxShadow is a drop shadow in document units.
type BoxShadow struct {
	DX, DY, Blur, Spread float64
	Color                color.NRGBA
}

// ShadowOf returns the active box shadow of s. A shadow is active when its
// colour parses and its opacity is above zero.
func ShadowOf(s document.Shadow) (BoxShadow, bool) {
	c := Fill(s.ShadowColor, s.ShadowOpacity)
	if !Visible(c) {
		return BoxShadow{}, false
	}
	return BoxShadow{DX: s.ShadowXOffset, DY: s.ShadowYOffset, Blur: math.Max(0, s.ShadowBlur), Spread: s.ShadowSpread, Color: c}, true
}

// TextShadowOf returns the active glyph shadow of s.
func TextShadowOf(s document.TextShadow) (BoxShadow, bool) {
	c := Fill(s.TextShadowColor, s.TextShadowOpacity)
	if !Visible(c) {
		return BoxShadow{}, false
	}
	return BoxShadow{DX: s.TextShadowXOffset, DY: s.TextShadowYOffset, Blur: math.Max(0, s.TextShadowBlur), Color: c}, true
}

// BlurSigma converts a CSS filter blur radius to a Gaussian standard deviation.
func BlurSigma(radius float64) float64 { return math.Max(0, radius) }

// ShadowSigma converts a box-shadow blur radius to a standard deviation.
func ShadowSigma(radius float64) float64 { return math.Max(0, radius) / 2 }

// Stroke describes a border line.
type Stroke struct {
	Width  float64
	Color  color.NRGBA
	Dashes []float64
	Round  bool // round caps, used for dotted
	// Offset moves the stroke's centre line outward from the box edge.
	Offset float64
}

// BorderOf returns the active border. The stroke is centred inside the box
// like a CSS border (offset -width/2), moved out further by offset.
func BorderOf(b document.Border, offset float64) (Stroke, bool) {
	if b.BorderWidth <= 0 {
		return Stroke{}, false
	}
	c := Fill(b.BorderColor, 1)
	if !Visible(c) {
		return Stroke{}, false
	}
	s := Stroke{Width: b.BorderWidth, Color: c, Offset: offset - b.BorderWidth/2}
	switch b.BorderStyle {
	case "dashed":
		s.Dashes = []float64{3 * b.BorderWidth, 3 * b.BorderWidth}
	case "dotted":
		s.Dashes = []float64{0, 2 * b.BorderWidth}
		s.Round = true
	}
	return s, true
}
