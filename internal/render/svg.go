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
	"encoding/base64"
	"fmt"
	"image/color"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"rendless/internal/fonts"
	"rendless/internal/paint"
)

// SVGOptions controls SVG output.
// EmbedFonts inlines every used face as a data URI so the document renders
// the same without network access.
type SVGOptions struct {
	EmbedFonts bool
}

// WriteSVG serialises sc to an SVG document of exactly Width x Height.
func WriteSVG(w io.Writer, sc *Scene, opt SVGOptions) error {
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(w, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%s\" height=\"%s\" viewBox=\"0 0 %s %s\">\n",
		f(sc.Width), f(sc.Height), f(sc.Width), f(sc.Height))

	wf("  <defs>\n")
	if opt.EmbedFonts {
		writeFontFaces(wf, sc)
	}
	for i, it := range sc.Items {
		writeDefs(wf, i, it)
	}
	wf("  </defs>\n")

	if paint.Visible(sc.Background) {
		wf("  <rect x=\"0\" y=\"0\" width=\"%s\" height=\"%s\"%s/>\n", f(sc.Width), f(sc.Height), fillAttr(sc.Background))
	}
	for i, it := range sc.Items {
		writeItem(wf, i, it)
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	return nil
}

type writeFunc func(format string, args ...any)

func writeFontFaces(wf writeFunc, sc *Scene) {
	seen := map[fonts.Key]*fonts.Font{}
	for _, it := range sc.Items {
		if it.Text != nil && it.Text.Font != nil {
			seen[it.Text.Font.Key] = it.Text.Font
		}
	}
	if len(seen) == 0 {
		return
	}
	keys := make([]fonts.Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	wf("    <style type=\"text/css\"><![CDATA[\n")
	for _, k := range keys {
		wf("      @font-face { font-family: \"%s\"; font-weight: %d; font-style: %s; src: url(data:font/ttf;base64,%s) format(\"truetype\"); }\n",
			escAttr(k.Family), k.Weight, k.Style, base64.StdEncoding.EncodeToString(seen[k].Data))
	}
	wf("    ]]></style>\n")
}

func writeDefs(wf writeFunc, i int, it Item) {
	if it.Shadow != nil && it.Shadow.Blur > 0 {
		writeBlurFilter(wf, fmt.Sprintf("s%d", i), paint.ShadowSigma(it.Shadow.Blur))
	}
	if it.Text != nil && it.Text.Shadow != nil && it.Text.Shadow.Blur > 0 {
		writeBlurFilter(wf, fmt.Sprintf("t%d", i), paint.ShadowSigma(it.Text.Shadow.Blur))
	}
	if it.Blur > 0 {
		writeBlurFilter(wf, fmt.Sprintf("b%d", i), paint.BlurSigma(it.Blur))
	}
	if it.Image != nil {
		wf("    <clipPath id=\"c%d\"><path d=\"%s\"/></clipPath>\n", i, paint.PathData(paint.RoundedRect(it.Box, it.Radii)))
		if it.Image.Asset == nil {
			s := paint.CheckerSize
			wf("    <pattern id=\"p%d\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" patternUnits=\"userSpaceOnUse\">", i, f(it.Box.X), f(it.Box.Y), f(2*s), f(2*s))
			wf("<rect width=\"%s\" height=\"%s\" fill=\"%s\"/>", f(2*s), f(2*s), paint.RGB(paint.CheckerLight))
			wf("<rect x=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>", f(s), f(s), f(s), paint.RGB(paint.CheckerDark))
			wf("<rect y=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>", f(s), f(s), f(s), paint.RGB(paint.CheckerDark))
			wf("</pattern>\n")
		}
	}
}

func writeBlurFilter(wf writeFunc, id string, sigma float64) {
	wf("    <filter id=\"%s\" x=\"-50%%\" y=\"-50%%\" width=\"200%%\" height=\"200%%\"><feGaussianBlur stdDeviation=\"%s\"/></filter>\n", id, f(sigma))
}

func writeItem(wf writeFunc, i int, it Item) {
	wf("  <g id=\"%s\"", escAttr(it.ID))
	if it.Rotate != 0 {
		cx, cy := it.Center()
		wf(" transform=\"rotate(%s %s %s)\"", f(it.Rotate), f(cx), f(cy))
	}
	if it.Blur > 0 {
		wf(" filter=\"url(#b%d)\"", i)
	}
	wf(">\n")

	if sh := it.Shadow; sh != nil {
		box, radii := paint.Outset(it.Box, it.Radii, sh.Spread)
		wf("    <path d=\"%s\" transform=\"translate(%s %s)\"%s", paint.PathData(paint.RoundedRect(box, radii)), f(sh.DX), f(sh.DY), fillAttr(sh.Color))
		if sh.Blur > 0 {
			wf(" filter=\"url(#s%d)\"", i)
		}
		wf("/>\n")
	}

	outline := paint.PathData(paint.RoundedRect(it.Box, it.Radii))
	switch {
	case it.Image != nil:
		if a := it.Image.Asset; a != nil {
			d := it.Image.Dest
			wf("    <image clip-path=\"url(#c%d)\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"none\" xlink:href=\"%s\"/>\n",
				i, f(d.X), f(d.Y), f(d.W), f(d.H), a.DataURI())
		} else {
			wf("    <path d=\"%s\" fill=\"url(#p%d)\"/>\n", outline, i)
		}
	case it.Text != nil:
		if sh := it.Text.Shadow; sh != nil {
			filter := ""
			if sh.Blur > 0 {
				filter = fmt.Sprintf(" filter=\"url(#t%d)\"", i)
			}
			wf("    <g transform=\"translate(%s %s)\"%s>\n", f(sh.DX), f(sh.DY), filter)
			writeText(wf, it, sh.Color)
			wf("    </g>\n")
		}
		writeText(wf, it, it.Text.Color)
	default:
		if paint.Visible(it.Fill) {
			wf("    <path d=\"%s\"%s/>\n", outline, fillAttr(it.Fill))
		}
	}

	if st := it.Stroke; st != nil {
		box, radii := paint.Outset(it.Box, it.Radii, st.Offset)
		wf("    <path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%s\"", paint.PathData(paint.RoundedRect(box, radii)), paint.RGB(st.Color), f(st.Width))
		if st.Color.A < 0xff {
			wf(" stroke-opacity=\"%s\"", f(paint.Opacity(st.Color)))
		}
		if len(st.Dashes) > 0 {
			wf(" stroke-dasharray=\"%s %s\"", f(st.Dashes[0]), f(st.Dashes[1]))
		}
		if st.Round {
			wf(" stroke-linecap=\"round\"")
		}
		wf("/>\n")
	}
	wf("  </g>\n")
}

func writeText(wf writeFunc, it Item, col color.NRGBA) {
	tb := it.Text
	wf("    <text font-family=\"%s\" font-size=\"%s\" font-weight=\"%d\" font-style=\"%s\" xml:space=\"preserve\"%s>",
		escAttr(tb.Family), f(tb.Size), tb.Weight, tb.Style, fillAttr(col))
	for _, l := range tb.Lines {
		y := it.Box.Y + l.Baseline
		if l.Justified {
			for _, word := range l.Words {
				wf("<tspan x=\"%s\" y=\"%s\">%s</tspan>", f(it.Box.X+word.X), f(y), escText(word.Text))
			}
			continue
		}
		if l.Text == "" {
			continue
		}
		wf("<tspan x=\"%s\" y=\"%s\">%s</tspan>", f(it.Box.X+l.X), f(y), escText(l.Text))
	}
	wf("</text>\n")
}

func fillAttr(c color.NRGBA) string {
	s := " fill=\"" + paint.RGB(c) + "\""
	if c.A < 0xff {
		s += " fill-opacity=\"" + f(paint.Opacity(c)) + "\""
	}
	return s
}

// f formats a coordinate compactly.
func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// xmlChar reports whether r may appear in an XML 1.0 document.
func xmlChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return false
	}
	return r <= unicode.MaxRune
}

// escAttr escapes s for a double-quoted attribute. Invalid UTF-8 becomes
// U+FFFD and characters XML forbids are dropped.
func escAttr(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToValidUTF8(s, "\uFFFD") {
		switch r {
		case '"':
			b.WriteString("&quot;")
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\n', '\t':
			b.WriteByte(' ')
		case '\r':
		default:
			if xmlChar(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// escText escapes s for character data, with the same cleanup as escAttr.
func escText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToValidUTF8(s, "\uFFFD") {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			if xmlChar(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
