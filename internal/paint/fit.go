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
)

// Rect is an axis-aligned box.
type Rect struct {
	X, Y, W, H float64
}

// Fit places an image of natural size srcW x srcH into box following CSS
// object-fit. The result may extend beyond box (cover, none); callers clip.
func Fit(mode string, srcW, srcH float64, box Rect) Rect {
	if srcW <= 0 || srcH <= 0 || box.W <= 0 || box.H <= 0 {
		return box
	}
	centered := func(w, h float64) Rect {
		return Rect{X: box.X + (box.W-w)/2, Y: box.Y + (box.H-h)/2, W: w, H: h}
	}
	contain := math.Min(box.W/srcW, box.H/srcH)
	switch mode {
	case "fill":
		return box
	case "contain":
		return centered(srcW*contain, srcH*contain)
	case "none":
		return centered(srcW, srcH)
	case "scale-down":
		s := math.Min(1, contain)
		return centered(srcW*s, srcH*s)
	default: // cover
		s := math.Max(box.W/srcW, box.H/srcH)
		return centered(srcW*s, srcH*s)
	}
}

// Intersect returns the overlap of a and b (zero size when disjoint).
func Intersect(a, b Rect) Rect {
	x0, y0 := math.Max(a.X, b.X), math.Max(a.Y, b.Y)
	x1, y1 := math.Min(a.X+a.W, b.X+b.W), math.Min(a.Y+a.H, b.Y+b.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Placeholder checkerboard drawn for images without a source.
const CheckerSize = 10.0

var (
	CheckerLight = color.NRGBA{R: 0xF3, G: 0xF4, B: 0xF6, A: 0xFF}
	CheckerDark  = color.NRGBA{R: 0xD1, G: 0xD5, B: 0xDB, A: 0xFF}
)

// CheckerDarkAt reports whether the cell containing (x,y), relative to the
// box origin, uses the dark colour.
func CheckerDarkAt(x, y float64) bool {
	cx := int(math.Floor(x / CheckerSize))
	cy := int(math.Floor(y / CheckerSize))
	return (cx+cy)%2 != 0
}
