/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"testing"

	"rendless/internal/document"
	"rendless/internal/variables"
)

func rectAt(s *Store, i int) *document.Rect { return s.Tree().Children[i].(*document.Rect) }

func TestColorInput(t *testing.T) {
	s := emptyStore()
	s.AddElement(rect("a"))
	orig := rectAt(s, 0).BackgroundColor
	hist := len(s.State().History)

	if s.ApplyInput("a", "backgroundColor", "#ZZZZZZ") {
		t.Fatalf("#ZZZZZZ must be rejected")
	}
	if rectAt(s, 0).BackgroundColor != orig || len(s.State().History) != hist {
		t.Fatalf("rejected input must not change state")
	}
	for _, in := range []string{"#1a2b3c", "#1A2B3C"} {
		if !s.ApplyInput("a", "backgroundColor", in) {
			t.Fatalf("%s must be accepted", in)
		}
		if got := rectAt(s, 0).BackgroundColor; got != in {
			t.Fatalf("color must be stored verbatim: got %q want %q", got, in)
		}
	}
}

func TestOpacityInput(t *testing.T) {
	s := emptyStore()
	s.AddElement(rect("a"))
	if !s.ApplyInput("a", "backgroundOpacity", "50%") {
		t.Fatalf("50%% must be accepted")
	}
	if got := rectAt(s, 0).BackgroundOpacity; got != 0.5 {
		t.Fatalf("opacity = %v want 0.5", got)
	}
	if s.ApplyInput("a", "backgroundOpacity", "150%") {
		t.Fatalf("150%% must be rejected")
	}
	if got := rectAt(s, 0).BackgroundOpacity; got != 0.5 {
		t.Fatalf("rejected opacity changed value to %v", got)
	}
}

func TestNumberInput(t *testing.T) {
	s := emptyStore()
	s.AddElement(rect("a"))
	if s.ApplyInput("a", "width", "wide") || s.ApplyInput("a", "width", "NaN") {
		t.Fatalf("non-finite numbers must be rejected")
	}
	if !s.ApplyInput("a", "width", " 250.5 ") || rectAt(s, 0).Width != 250.5 {
		t.Fatalf("number not applied")
	}
	if s.ApplyInput("a", "fontSize", "12") {
		t.Fatalf("property of another variant must be rejected")
	}
	if s.ApplyInput("ghost", "width", "1") {
		t.Fatalf("unknown node must be rejected")
	}
}

func TestBindingInput(t *testing.T) {
	s := emptyStore()
	s.AddElement(rect("a"))
	s.ApplyInput("a", "backgroundColor", "#111111")
	if !s.ApplyInput("a", "backgroundColor", "{{brand}}") {
		t.Fatalf("binding must be accepted")
	}
	r := rectAt(s, 0)
	if name, ok := r.Binding("backgroundColor"); !ok || name != "brand" {
		t.Fatalf("binding not recorded")
	}
	if r.BackgroundColor != "#111111" {
		t.Fatalf("binding must keep the literal, got %q", r.BackgroundColor)
	}
	if got := DisplayValue(r, "backgroundColor"); got != "{{brand}}" {
		t.Fatalf("display of bound property: %q", got)
	}
	if !s.ApplyInput("a", "backgroundColor", "{{other}}") {
		t.Fatalf("rebinding must be accepted")
	}
	if len(rectAt(s, 0).Variables) != 1 {
		t.Fatalf("one binding per property")
	}
	if !s.ApplyInput("a", "backgroundColor", "#222222") {
		t.Fatalf("literal must be accepted")
	}
	r = rectAt(s, 0)
	if _, ok := r.Binding("backgroundColor"); ok {
		t.Fatalf("literal edit must clear the binding")
	}
	if got := DisplayValue(r, "backgroundColor"); got != "#222222" {
		t.Fatalf("display of literal: %q", got)
	}
	if s.ApplyInput("a", "backgroundColor", "{{not valid}}") {
		t.Fatalf("malformed reference is neither binding nor color")
	}
}

func TestRootInputAndImageSrc(t *testing.T) {
	s := emptyStore()
	img := document.NewImage(0, 0, "https://example.com/x.png")
	img.ID = "img"
	s.AddElement(img)
	if !s.ApplyInput("root", "backgroundOpacity", "0.25") || s.Tree().BackgroundOpacity != 0.25 {
		t.Fatalf("root input failed")
	}
	if len(s.Tree().Children) != 1 {
		t.Fatalf("root edit must keep children")
	}
	if !s.ApplyInput("root", "backgroundColor", "{{bg}}") || len(s.Tree().Children) != 1 {
		t.Fatalf("root binding failed")
	}
	if !s.ApplyInput("img", "src", "") {
		t.Fatalf("clearing src must be accepted")
	}
	if s.Tree().Children[0].(*document.Image).Src != nil {
		t.Fatalf("empty src must become null")
	}
	if got := DisplayValue(s.Tree().Children[0], "width"); got != "300" {
		t.Fatalf("number display: %q", got)
	}
}

func TestNumericBoundsFollowSchema(t *testing.T) {
	s := emptyStore()
	txt := document.NewText(0, 0, "hi")
	txt.ID = "t"
	s.AddElement(txt)
	s.AddElement(rect("a"))
	hist := len(s.State().History)

	rejected := []struct{ id, prop, raw string }{
		{"t", "fontSize", "0"},
		{"t", "lineHeight", "-1"},
		{"t", "fontWeight", "0"},
		{"t", "fontWeight", "1001"},
		{"a", "width", "-5"},
		{"a", "borderTopLeftRadius", "-1"},
		{"a", "blur", "-2"},
		{"root", "width", "-100"},
		{"root", "height", "0"},
		{"root", "width", "100000"},
	}
	for _, c := range rejected {
		if s.ApplyInput(c.id, c.prop, c.raw) {
			t.Fatalf("%s.%s = %q must be rejected", c.id, c.prop, c.raw)
		}
	}
	if len(s.State().History) != hist {
		t.Fatalf("rejected input must not checkpoint")
	}

	for _, c := range []struct{ id, prop, raw string }{
		{"a", "width", "0"},
		{"a", "shadowXOffset", "-4"},
		{"t", "fontSize", "0.5"},
		{"root", "width", "8192"},
	} {
		if !s.ApplyInput(c.id, c.prop, c.raw) {
			t.Fatalf("%s.%s = %q must be accepted", c.id, c.prop, c.raw)
		}
	}

	// Patches go through the same bounds.
	s.UpdateElement(document.Patch{ID: "t", Set: map[string]any{"fontSize": 0.0, "x": 99.0}})
	if got := s.Tree().Children[0].(*document.Text); got.FontSize != 0.5 || got.X != 0 {
		t.Fatalf("out-of-range patch must be ignored whole: %+v", got)
	}

	data, err := document.EncodeTree(s.Tree())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := document.ParseTree(data); err != nil {
		t.Fatalf("edited tree must stay valid: %v", err)
	}
}

func TestContentKeepsPlaceholder(t *testing.T) {
	s := emptyStore()
	txt := document.NewText(0, 0, "old")
	txt.ID = "t"
	s.AddElement(txt)

	if !s.ApplyInput("t", "content", "{{title}}") {
		t.Fatalf("placeholder content must be accepted")
	}
	got := s.Tree().Children[0].(*document.Text)
	if got.Content != "{{title}}" {
		t.Fatalf("content = %q", got.Content)
	}
	if _, bound := got.Binding("content"); bound {
		t.Fatalf("content must not be bound")
	}

	plain := variables.ResolveTree(s.Tree(), nil).Children[0].(*document.Text)
	if plain.Content != "{{title}}" {
		t.Fatalf("without substitution content = %q", plain.Content)
	}
	filled := variables.ResolveTree(s.Tree(), variables.Set{{Name: "title", Value: "foo"}}).Children[0].(*document.Text)
	if filled.Content != "foo" {
		t.Fatalf("with substitution content = %q", filled.Content)
	}
}
