/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package variables

import (
	"net/url"
	"reflect"
	"testing"

	"rendless/internal/document"
)

func TestPlaceholderSubstitution(t *testing.T) {
	txt := document.NewText(0, 0, "Hello {{x}}!")
	got := Resolve(txt, Set{{Name: "x", Value: "foo"}}).(*document.Text)
	if got.Content != "Hello foo!" {
		t.Fatalf("content = %q", got.Content)
	}
	got = Resolve(txt, nil).(*document.Text)
	if got.Content != "Hello {{x}}!" {
		t.Fatalf("unresolved placeholder must stay verbatim, got %q", got.Content)
	}
	if txt.Content != "Hello {{x}}!" {
		t.Fatalf("input must not be modified")
	}
}

func TestReplacePlaceholders(t *testing.T) {
	s := Set{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}, {Name: "a", Value: "3"}}
	cases := map[string]string{
		"{{a}}{{b}}":       "32",
		"{{ a }} and {{c}}": "3 and {{c}}",
		"{{}}":             "{{}}",
		"no vars":          "no vars",
		"{{a}} {{a}}":      "3 3",
		"{{b}}}":           "2}",
	}
	for in, want := range cases {
		if got := ReplacePlaceholders(in, s); got != want {
			t.Fatalf("ReplacePlaceholders(%q) = %q want %q", in, got, want)
		}
	}
}

func TestPropertyBindingCoercion(t *testing.T) {
	r := document.NewRect(0, 0)
	r.BackgroundColor = "#000000"
	r.BackgroundOpacity = 1
	r.Bind("backgroundColor", "bg")
	r.Bind("backgroundOpacity", "alpha")
	r.Bind("width", "w")

	got := Resolve(r, Set{{Name: "bg", Value: "#FF00AA"}, {Name: "alpha", Value: "40%"}, {Name: "w", Value: "320"}}).(*document.Rect)
	if got.BackgroundColor != "#FF00AA" || got.BackgroundOpacity != 0.4 || got.Width != 320 {
		t.Fatalf("bindings not applied: %+v", got)
	}

	bad := Resolve(r, Set{{Name: "bg", Value: "red"}, {Name: "alpha", Value: "2"}, {Name: "w", Value: "wide"}}).(*document.Rect)
	if bad.BackgroundColor != "#000000" || bad.BackgroundOpacity != 1 || bad.Width != r.Width {
		t.Fatalf("invalid values must keep the literal: %+v", bad)
	}
}

func TestBoundContentIsNotExpanded(t *testing.T) {
	txt := document.NewText(0, 0, "{{title}}")
	txt.Bind("content", "body")
	got := Resolve(txt, Set{{Name: "body", Value: "literal {{title}}"}, {Name: "title", Value: "T"}}).(*document.Text)
	if got.Content != "literal {{title}}" {
		t.Fatalf("bound content must be used as-is, got %q", got.Content)
	}
	got = Resolve(txt, Set{{Name: "title", Value: "T"}}).(*document.Text)
	if got.Content != "T" {
		t.Fatalf("unresolved binding falls back to placeholder expansion, got %q", got.Content)
	}
}

func TestResolveTree(t *testing.T) {
	p := document.DefaultTree()
	p.Bind("backgroundColor", "bg")
	out := ResolveTree(p, Set{{Name: "bg", Value: "#FFFFFF"}, {Name: "title", Value: "Launch day"}})
	if out.BackgroundColor != "#FFFFFF" {
		t.Fatalf("root binding not applied")
	}
	if out.Children[1].(*document.Text).Content != "Launch day" {
		t.Fatalf("child placeholder not applied")
	}
	if out.Children[2].(*document.Text).Content != "{{subtitle}}" {
		t.Fatalf("missing value must leave placeholder")
	}
	if p.BackgroundColor == "#FFFFFF" || p.Children[1].(*document.Text).Content != "{{title}}" {
		t.Fatalf("input tree modified")
	}
}

func TestImageSrcBinding(t *testing.T) {
	img := document.NewImage(0, 0, "")
	img.Bind("src", "photo")
	got := Resolve(img, Set{{Name: "photo", Value: "https://cdn.example/p.png"}}).(*document.Image)
	if got.Src == nil || *got.Src != "https://cdn.example/p.png" {
		t.Fatalf("src binding not applied")
	}
	if img.Src != nil {
		t.Fatalf("input modified")
	}
}

func TestReferenced(t *testing.T) {
	p := document.DefaultTree()
	r := document.NewRect(0, 0)
	r.Bind("backgroundColor", "accent")
	p.Children = append(p.Children, r, document.NewText(0, 0, "{{ title }} by {{author}}"))
	want := []string{"accent", "author", "subtitle", "title"}
	if got := Referenced(p); !reflect.DeepEqual(got, want) {
		t.Fatalf("Referenced = %v want %v", got, want)
	}
}

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	a := CacheKey("doc", Set{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	b := CacheKey("doc", Set{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}})
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if a == CacheKey("other", Set{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}) {
		t.Fatalf("document id must be part of the key")
	}
	if a == CacheKey("doc", Set{{Name: "a", Value: "12"}}) {
		t.Fatalf("different sets must differ")
	}
	if CacheKey("doc", Set{{Name: "ab", Value: "c"}}) == CacheKey("doc", Set{{Name: "a", Value: "bc"}}) {
		t.Fatalf("name/value boundary must be unambiguous")
	}
}

func TestFromQueryAndPairs(t *testing.T) {
	q := url.Values{"format": {"png"}, "title": {"a", "b"}, "x": {"1"}}
	got := FromQuery(q, "format")
	want := Set{{Name: "title", Value: "b"}, {Name: "x", Value: "1"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromQuery = %+v", got)
	}
	pairs := FromPairs([]string{"a=1", "b==2", "bad", "=x"})
	if !reflect.DeepEqual(pairs, Set{{Name: "a", Value: "1"}, {Name: "b", Value: "=2"}}) {
		t.Fatalf("FromPairs = %+v", pairs)
	}
	if only := got.Only([]string{"x"}); len(only) != 1 || only[0].Name != "x" {
		t.Fatalf("Only = %+v", only)
	}
}

func TestOutOfRangeBindingKeepsLiteral(t *testing.T) {
	txt := document.NewText(0, 0, "x")
	txt.FontSize = 24
	txt.Bind("fontSize", "size")
	got := Resolve(txt, Set{{Name: "size", Value: "0"}}).(*document.Text)
	if got.FontSize != 24 {
		t.Fatalf("fontSize = %v, want the literal 24", got.FontSize)
	}
}
