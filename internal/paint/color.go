/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package paint holds the visual rules shared by every renderer: how colours
// combine with opacity, how corner radii clamp, how shadows and blur map to
// drawing parameters, how text is aligned and transformed and how images fit
// their box. The SVG writer, the rasteriser and the CSS adapter for the
// interactive canvas all call into this package.
package paint

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ParseHex parses #RRGGBB (any case) into an opaque colour.
func ParseHex(s string) (color.NRGBA, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

// Alpha maps an opacity in [0,1] to an 8-bit alpha. Out-of-range values are
// clamped; the input layer rejects them before they get here.
func Alpha(opacity float64) uint8 {
	if math.IsNaN(opacity) {
		return 0
	}
	return uint8(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
}

// Fill combines a #RRGGBB colour with an opacity. An unparsable colour
// yields a fully transparent result.
func Fill(hex string, opacity float64) color.NRGBA {
	c, ok := ParseHex(hex)
	if !ok {
		return color.NRGBA{}
	}
	c.A = Alpha(opacity)
	return c
}

// Hex8 renders the combined colour as #RRGGBBAA.
func Hex8(hex string, opacity float64) string {
	c := Fill(hex, opacity)
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// RGB returns the colour as #RRGGBB, dropping alpha.
func RGB(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Opacity returns c's alpha as a float in [0,1].
func Opacity(c color.NRGBA) float64 { return float64(c.A) / 255 }

// CSSColor renders c as a CSS rgba() value.
func CSSColor(c color.NRGBA) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(math.Round(Opacity(c)*1000)/1000, 'f', -1, 64))
}

// Visible reports whether c paints anything.
func Visible(c color.NRGBA) bool { return c.A > 0 }
