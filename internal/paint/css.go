/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paint

import (
	"fmt"
	"strconv"
	"strings"

	"rendless/internal/document"
)

// Declaration is one CSS property/value pair.
type Declaration struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Style is an ordered list of declarations for one node.
type Style []Declaration

// String renders the style as an inline style attribute value.
func (s Style) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.Property + ": " + d.Value
	}
	return strings.Join(parts, "; ")
}

// Get returns the value of property.
func (s Style) Get(property string) (string, bool) {
	for _, d := range s {
		if d.Property == property {
			return d.Value, true
		}
	}
	return "", false
}

func px(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) + "px" }

func (s *Style) add(p, v string) { *s = append(*s, Declaration{Property: p, Value: v}) }

// CSS returns the declarations the interactive canvas applies to n. It uses
// the same colour, radius, shadow and blur rules as the server renderer.
func CSS(n document.Node) Style {
	var s Style
	b := n.Common()
	if _, isPage := n.(*document.Page); !isPage {
		s.add("position", "absolute")
		s.add("left", px(b.X))
		s.add("top", px(b.Y))
	} else {
		s.add("position", "relative")
		s.add("overflow", "hidden")
	}
	s.add("width", px(b.Width))
	s.add("height", px(b.Height))
	if b.Rotate != 0 {
		s.add("transform", "rotate("+strconv.FormatFloat(b.Rotate, 'f', -1, 64)+"deg)")
		s.add("transform-origin", "center")
	}
	switch v := n.(type) {
	case *document.Page:
		s.add("background-color", CSSColor(Fill(v.BackgroundColor, v.BackgroundOpacity)))
	case *document.Rect:
		s.add("background-color", CSSColor(Fill(v.BackgroundColor, v.BackgroundOpacity)))
		s.box(v.Radii, v.Width, v.Height, v.Border, v.BorderOffset, v.Shadow)
		s.blur(v.Blur)
	case *document.Text:
		s.add("color", CSSColor(Fill(v.Color, v.TextColorOpacity)))
		s.add("font-family", strconv.Quote(v.FontFamily))
		s.add("font-size", px(v.FontSize))
		s.add("font-weight", strconv.Itoa(NormalizeWeight(v.FontWeight)))
		s.add("font-style", v.FontStyle)
		s.add("line-height", strconv.FormatFloat(v.LineHeight, 'f', -1, 64))
		s.add("text-align", v.TextAlign)
		s.add("text-transform", v.TextTransform)
		s.add("white-space", "pre-line")
		s.add("overflow-wrap", "break-word")
		if sh, ok := TextShadowOf(v.TextShadow); ok {
			s.add("text-shadow", fmt.Sprintf("%s %s %s %s", px(sh.DX), px(sh.DY), px(sh.Blur), CSSColor(sh.Color)))
		}
		s.blur(v.Blur)
	case *document.Image:
		s.add("object-fit", v.ObjectFit)
		if v.Src == nil || *v.Src == "" {
			s.add("background-color", CSSColor(CheckerLight))
			s.add("background-image", fmt.Sprintf("repeating-conic-gradient(%s 0 25%%, transparent 0 50%%)", CSSColor(CheckerDark)))
			s.add("background-size", px(2*CheckerSize)+" "+px(2*CheckerSize))
		}
		s.box(v.Radii, v.Width, v.Height, v.Border, 0, v.Shadow)
		s.add("overflow", "hidden")
		s.blur(v.Blur)
	}
	return s
}

func (s *Style) box(r document.Radii, w, h float64, border document.Border, offset float64, shadow document.Shadow) {
	c := ClampRadii(r, w, h)
	if !c.Zero() {
		s.add("border-radius", fmt.Sprintf("%s %s %s %s", px(c.TopLeft), px(c.TopRight), px(c.BottomRight), px(c.BottomLeft)))
	}
	if st, ok := BorderOf(border, offset); ok {
		style := border.BorderStyle
		if style == "" {
			style = "solid"
		}
		// Drawn as an outline so borderOffset can move it.
		s.add("outline", fmt.Sprintf("%s %s %s", px(st.Width), style, CSSColor(st.Color)))
		s.add("outline-offset", px(offset-st.Width))
	}
	if sh, ok := ShadowOf(shadow); ok {
		s.add("box-shadow", fmt.Sprintf("%s %s %s %s %s", px(sh.DX), px(sh.DY), px(sh.Blur), px(sh.Spread), CSSColor(sh.Color)))
	}
}

func (s *Style) blur(radius float64) {
	if radius > 0 {
		s.add("filter", "blur("+px(BlurSigma(radius))+")")
	}
}
