/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package variables resolves runtime name/value substitutions against a
// document. The same functions back the editor preview and the renderer;
// they never modify their input.
package variables

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"rendless/internal/document"
)

// Substitution is one runtime value for a variable name.
type Substitution struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Set is a list of substitutions. When a name repeats, the last one wins.
type Set []Substitution

// Lookup returns the value supplied for name.
func (s Set) Lookup(name string) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Name == name {
			return s[i].Value, true
		}
	}
	return "", false
}

// Normalize returns the set deduplicated (last wins) and sorted by name.
func (s Set) Normalize() Set {
	seen := make(map[string]string, len(s))
	for _, sub := range s {
		seen[sub.Name] = sub.Value
	}
	out := make(Set, 0, len(seen))
	for n, v := range seen {
		out = append(out, Substitution{Name: n, Value: v})
	}
	slices.SortFunc(out, func(a, b Substitution) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Only keeps the substitutions whose name is in names.
func (s Set) Only(names []string) Set {
	out := make(Set, 0, len(s))
	for _, sub := range s {
		if slices.Contains(names, sub.Name) {
			out = append(out, sub)
		}
	}
	return out
}

// FromQuery builds a set from query parameters, skipping reserved keys such
// as "format". For repeated keys the last value wins.
func FromQuery(q url.Values, reserved ...string) Set {
	keys := make([]string, 0, len(q))
	for k := range q {
		if k == "" || slices.Contains(reserved, k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make(Set, 0, len(keys))
	for _, k := range keys {
		vs := q[k]
		if len(vs) == 0 {
			continue
		}
		out = append(out, Substitution{Name: k, Value: vs[len(vs)-1]})
	}
	return out
}

// FromPairs parses "name=value" strings (CLI -var flags).
func FromPairs(pairs []string) Set {
	out := make(Set, 0, len(pairs))
	for _, p := range pairs {
		n, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(n) == "" {
			continue
		}
		out = append(out, Substitution{Name: strings.TrimSpace(n), Value: v})
	}
	return out
}

// CacheKey is a deterministic hash of the document id and the substitution
// set; supplying the same pairs in any order yields the same key.
func CacheKey(docID string, s Set) string {
	h := sha256.New()
	h.Write([]byte(docID))
	h.Write([]byte{0})
	for _, sub := range s.Normalize() {
		h.Write([]byte(sub.Name))
		h.Write([]byte{0})
		h.Write([]byte(sub.Value))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

var placeholderRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// ReplacePlaceholders substitutes every {{name}} in content. Names are
// trimmed; placeholders without a value stay verbatim.
func ReplacePlaceholders(content string, s Set) string {
	return placeholderRe.ReplaceAllStringFunc(content, func(m string) string {
		name := strings.TrimSpace(m[2 : len(m)-2])
		if v, ok := s.Lookup(name); ok {
			return v
		}
		return m
	})
}

// Placeholders lists the trimmed placeholder names in content, in order of
// appearance and without duplicates.
func Placeholders(content string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[1])
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Resolve returns a copy of n with its effective property values. Bound
// properties take the supplied value when it coerces to the property type;
// otherwise the literal stays. Text content additionally has its
// placeholders expanded, unless content itself was bound and resolved, in
// which case the supplied value is used as-is.
func Resolve(n document.Node, s Set) document.Node {
	out := n
	contentBound := false
	for _, b := range n.Common().Variables {
		v, ok := s.Lookup(b.Name)
		if !ok {
			continue
		}
		spec, ok := document.Property(n.Kind(), b.Property)
		if !ok {
			continue
		}
		lit, ok := document.ParseLiteral(spec, v)
		if !ok {
			continue
		}
		if spec.Kind == document.ValueURL && strings.TrimSpace(v) == "" {
			lit = nil
		}
		if applied, ok := document.Apply(out, map[string]any{b.Property: lit}); ok {
			out = applied
			if b.Property == "content" {
				contentBound = true
			}
		}
	}
	if t, ok := out.(*document.Text); ok && !contentBound {
		expanded := ReplacePlaceholders(t.Content, s)
		if expanded != t.Content {
			c := t.Clone().(*document.Text)
			c.Content = expanded
			out = c
		}
	}
	if out == n {
		return n.Clone()
	}
	return out
}

// ResolveTree resolves the root's own bindings and every child.
func ResolveTree(p *document.Page, s Set) *document.Page {
	root := Resolve(shallowPage(p), s).(*document.Page)
	root.Children = make([]document.Node, len(p.Children))
	for i, ch := range p.Children {
		root.Children[i] = Resolve(ch, s)
	}
	return root
}

func shallowPage(p *document.Page) *document.Page {
	c := *p
	c.Children = nil
	return &c
}

// Referenced lists every variable name the document uses, through bindings
// or text placeholders, sorted and unique.
func Referenced(p *document.Page) []string {
	set := map[string]bool{}
	add := func(n document.Node) {
		for _, b := range n.Common().Variables {
			set[b.Name] = true
		}
		if t, ok := n.(*document.Text); ok {
			for _, name := range Placeholders(t.Content) {
				set[name] = true
			}
		}
	}
	add(p)
	for _, ch := range p.Children {
		add(ch)
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
