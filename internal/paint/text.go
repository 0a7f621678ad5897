/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paint

import (
	"strings"
	"unicode"
)

// Transform applies a CSS text-transform value.
func Transform(s, mode string) string {
	switch mode {
	case "uppercase":
		return strings.ToUpper(s)
	case "lowercase":
		return strings.ToLower(s)
	case "capitalize":
		var b strings.Builder
		b.Grow(len(s))
		start := true
		for _, r := range s {
			if start && unicode.IsLetter(r) {
				b.WriteRune(unicode.ToTitle(r))
				start = false
				continue
			}
			b.WriteRune(r)
			start = unicode.IsSpace(r) || r == '-'
		}
		return b.String()
	}
	return s
}

// LineX returns the x of a line of width lineW inside a box at boxX.
// Justified lines start at the left edge like left-aligned ones.
func LineX(align string, boxX, boxW, lineW float64) float64 {
	switch align {
	case "center":
		return boxX + (boxW-lineW)/2
	case "right":
		return boxX + boxW - lineW
	}
	return boxX
}

// Anchor maps an alignment to an SVG text-anchor.
func Anchor(align string) string {
	switch align {
	case "center":
		return "middle"
	case "right":
		return "end"
	}
	return "start"
}

// FontStyleName maps weight/style to a human readable variant, for example
// "Bold Italic". It is used for logging and error messages.
func FontStyleName(weight int, style string) string {
	names := map[int]string{
		100: "Thin", 200: "ExtraLight", 300: "Light", 400: "Regular", 500: "Medium",
		600: "SemiBold", 700: "Bold", 800: "ExtraBold", 900: "Black",
	}
	n, ok := names[NormalizeWeight(weight)]
	if !ok {
		n = "Regular"
	}
	if style == "italic" {
		if n == "Regular" {
			return "Italic"
		}
		return n + " Italic"
	}
	return n
}

// NormalizeWeight rounds a weight to the nearest hundred in [100,900].
func NormalizeWeight(w int) int {
	if w <= 0 {
		return 400
	}
	w = (w + 50) / 100 * 100
	return max(100, min(900, w))
}
