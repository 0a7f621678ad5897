/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package paint

import (
	"strconv"
	"strings"
)

// Seg is one outline command in y-down coordinates: 'M' move, 'L' line,
// 'A' clockwise quarter arc of radius R ending at X,Y, 'Z' close.
type Seg struct {
	Op   byte
	X, Y float64
	R    float64
}

// RoundedRect outlines b clockwise from the top-left corner, with each corner
// rounded by its radius. Square corners produce plain line joins.
func RoundedRect(b Rect, c Corners) []Seg {
	x0, y0, x1, y1 := b.X, b.Y, b.X+b.W, b.Y+b.H
	segs := make([]Seg, 0, 10)
	segs = append(segs, Seg{Op: 'M', X: x0 + c.TopLeft, Y: y0})
	segs = append(segs, Seg{Op: 'L', X: x1 - c.TopRight, Y: y0})
	if c.TopRight > 0 {
		segs = append(segs, Seg{Op: 'A', X: x1, Y: y0 + c.TopRight, R: c.TopRight})
	}
	segs = append(segs, Seg{Op: 'L', X: x1, Y: y1 - c.BottomRight})
	if c.BottomRight > 0 {
		segs = append(segs, Seg{Op: 'A', X: x1 - c.BottomRight, Y: y1, R: c.BottomRight})
	}
	segs = append(segs, Seg{Op: 'L', X: x0 + c.BottomLeft, Y: y1})
	if c.BottomLeft > 0 {
		segs = append(segs, Seg{Op: 'A', X: x0, Y: y1 - c.BottomLeft, R: c.BottomLeft})
	}
	segs = append(segs, Seg{Op: 'L', X: x0, Y: y0 + c.TopLeft})
	if c.TopLeft > 0 {
		segs = append(segs, Seg{Op: 'A', X: x0 + c.TopLeft, Y: y0, R: c.TopLeft})
	}
	return append(segs, Seg{Op: 'Z'})
}

// Outset grows b by d on every side (shrinks for negative d) and adjusts the
// radii the way CSS does for box-shadow spread and outline offset.
func Outset(b Rect, c Corners, d float64) (Rect, Corners) {
	r := Rect{X: b.X - d, Y: b.Y - d, W: b.W + 2*d, H: b.H + 2*d}
	if r.W < 0 {
		r.X, r.W = b.X+b.W/2, 0
	}
	if r.H < 0 {
		r.Y, r.H = b.Y+b.H/2, 0
	}
	return r, c.Inset(-d)
}

// PathData renders segs as an SVG path "d" attribute.
func PathData(segs []Seg) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s.Op {
		case 'M', 'L':
			b.WriteByte(s.Op)
			b.WriteString(num(s.X))
			b.WriteByte(' ')
			b.WriteString(num(s.Y))
		case 'A':
			r := num(s.R)
			b.WriteString("A" + r + " " + r + " 0 0 1 " + num(s.X) + " " + num(s.Y))
		case 'Z':
			b.WriteByte('Z')
		}
	}
	return b.String()
}

func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
