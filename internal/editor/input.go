/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"rendless/internal/document"
)

var bindingRe = regexp.MustCompile(`^\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}$`)

// ParseBinding reports whether raw is exactly a {{identifier}} reference.
func ParseBinding(raw string) (string, bool) {
	m := bindingRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ApplyInput handles free-text entry into a property field of node id.
// A {{name}} reference binds the property and leaves its literal untouched,
// except for text content, where it is stored as a placeholder.
// Anything else must parse as a literal of the property's kind; a successful
// literal edit replaces the value and drops any binding on that property.
// Rejected input leaves the state unchanged and returns false. Accepted
// input checkpoints history.
func (s *Store) ApplyInput(id, property, raw string) bool {
	accepted := false
	s.mutate(func() bool {
		n, idx := s.nodeLocked(id)
		if n == nil {
			return false
		}
		spec, ok := document.Property(n.Kind(), property)
		if !ok {
			return false
		}
		var out document.Node
		if name, ok := ParseBinding(raw); ok && property != "content" {
			out = n.Clone()
			if p, isPage := out.(*document.Page); isPage {
				// Clone deep-copies children; keep sharing the originals.
				p.Children = s.tree.Children
			}
			out.Common().Bind(property, name)
		} else {
			v, ok := document.ParseLiteral(spec, raw)
			if !ok {
				return false
			}
			if spec.Kind == document.ValueURL && strings.TrimSpace(raw) == "" {
				v = nil
			}
			out, ok = document.Apply(n, map[string]any{property: v})
			if !ok {
				return false
			}
			out.Common().Unbind(property)
		}
		s.replaceNodeLocked(idx, out)
		s.checkpointLocked("input")
		accepted = true
		return true
	})
	return accepted
}

// nodeLocked finds id among the root and its children. idx is -1 for the root.
func (s *Store) nodeLocked(id string) (document.Node, int) {
	if id == s.tree.ID {
		return s.tree, -1
	}
	if i := s.tree.IndexOf(id); i >= 0 {
		return s.tree.Children[i], i
	}
	return nil, 0
}

func (s *Store) replaceNodeLocked(idx int, n document.Node) {
	if idx < 0 {
		s.tree = n.(*document.Page)
		return
	}
	children := make([]document.Node, len(s.tree.Children))
	copy(children, s.tree.Children)
	children[idx] = n
	s.tree = s.withChildren(children)
}

// DisplayValue is the text a property field shows: {{name}} for a bound
// property, otherwise the literal.
func DisplayValue(n document.Node, property string) string {
	if name, ok := n.Common().Binding(property); ok {
		return "{{" + name + "}}"
	}
	data, err := json.Marshal(n)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	switch v := m[property].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
