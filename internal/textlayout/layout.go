/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout breaks text into lines inside a fixed-width box and
// positions every word, the way the browser lays out a text element with
// white-space: pre-line and overflow-wrap: break-word.
package textlayout

import (
	"strings"
	"unicode/utf8"

	"rendless/internal/paint"
)

// Measurer measures text in document units (1 unit = 1 px) for one face.
type Measurer interface {
	Advance(s string) float64
	// Metrics returns ascent and descent as positive distances from the baseline.
	Metrics() (ascent, descent float64)
}

// Options controls a layout pass.
type Options struct {
	Width      float64 // box width; <= 0 disables wrapping
	LineHeight float64 // line box height in units
	Align      string  // left | center | right | justify
}

// Word is a positioned run without spaces.
type Word struct {
	Text  string
	X     float64
	Width float64
}

// Line is a single laid out line. Baseline is relative to the top of the box.
type Line struct {
	Text      string
	Words     []Word
	X         float64
	Width     float64
	Baseline  float64
	Justified bool
}

// Box is the result of laying out text into a box width.
type Box struct {
	Lines  []Line
	Width  float64 // widest line
	Height float64
}

// Layout breaks text greedily at spaces. Newlines force a break, runs of
// spaces collapse and words wider than the box are split between runes.
// Justified lines, except the last of each paragraph, spread the spare
// width over their word gaps.
func Layout(text string, m Measurer, o Options) Box {
	asc, desc := m.Metrics()
	lh := o.LineHeight
	if lh <= 0 {
		lh = asc + desc
	}
	space := m.Advance(" ")
	var box Box
	for _, para := range strings.Split(text, "\n") {
		lines := breakParagraph(strings.Fields(para), m, space, o.Width)
		for i, words := range lines {
			last := i == len(lines)-1
			box.Lines = append(box.Lines, place(words, m, space, o, !last))
		}
	}
	for i := range box.Lines {
		l := &box.Lines[i]
		top := float64(i) * lh
		l.Baseline = top + (lh-(asc+desc))/2 + asc
		if l.Width > box.Width {
			box.Width = l.Width
		}
	}
	box.Height = float64(len(box.Lines)) * lh
	return box
}

// breakParagraph groups words into lines. An empty paragraph yields one
// empty line so blank lines keep their height.
func breakParagraph(words []string, m Measurer, space, width float64) [][]string {
	if len(words) == 0 {
		return [][]string{nil}
	}
	var lines [][]string
	var cur []string
	curW := 0.0
	flush := func() {
		lines = append(lines, cur)
		cur, curW = nil, 0
	}
	for _, w := range words {
		ww := m.Advance(w)
		if width > 0 && ww > width {
			if len(cur) > 0 {
				flush()
			}
			pieces := splitWord(w, m, width)
			for _, p := range pieces[:len(pieces)-1] {
				cur = []string{p}
				flush()
			}
			w = pieces[len(pieces)-1]
			ww = m.Advance(w)
		}
		if len(cur) > 0 && width > 0 && curW+space+ww > width {
			flush()
		}
		if len(cur) > 0 {
			curW += space
		}
		cur = append(cur, w)
		curW += ww
	}
	if len(cur) > 0 {
		flush()
	}
	return lines
}

// splitWord cuts w into pieces no wider than width; each piece holds at
// least one rune.
func splitWord(w string, m Measurer, width float64) []string {
	var out []string
	for w != "" {
		cut := len(w)
		for i := range w {
			if i == 0 {
				continue
			}
			if m.Advance(w[:i]) > width {
				_, size := utf8.DecodeLastRuneInString(w[:i])
				cut = i - size
				break
			}
		}
		if cut <= 0 {
			_, cut = utf8.DecodeRuneInString(w)
		}
		out = append(out, w[:cut])
		w = w[cut:]
	}
	return out
}

func place(words []string, m Measurer, space float64, o Options, justify bool) Line {
	l := Line{Text: strings.Join(words, " ")}
	if len(words) == 0 {
		l.X = paint.LineX(o.Align, 0, o.Width, 0)
		return l
	}
	widths := make([]float64, len(words))
	natural := space * float64(len(words)-1)
	for i, w := range words {
		widths[i] = m.Advance(w)
		natural += widths[i]
	}
	gap := space
	l.Width = natural
	if o.Align == "justify" && justify && len(words) > 1 && o.Width > natural {
		gap += (o.Width - natural) / float64(len(words)-1)
		l.Width = o.Width
		l.Justified = true
	}
	l.X = paint.LineX(o.Align, 0, o.Width, l.Width)
	x := l.X
	for i, w := range words {
		l.Words = append(l.Words, Word{Text: w, X: x, Width: widths[i]})
		x += widths[i] + gap
	}
	return l
}
