/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
)

// Patch is a partial update for the node with ID. On the wire it is a flat
// object: {"id": "...", "x": 10, "backgroundColor": "#FF0000"}.
type Patch struct {
	ID  string
	Set map[string]any
}

func (p Patch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Set)+1)
	for k, v := range p.Set {
		m[k] = v
	}
	m["id"] = p.ID
	return json.Marshal(m)
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	id, _ := m["id"].(string)
	if id == "" {
		return errors.New("patch without id")
	}
	delete(m, "id")
	p.ID, p.Set = id, m
	return nil
}

// reserved fields are never patchable.
var reserved = map[string]bool{"id": true, "type": true, "children": true}

var fieldCache sync.Map // reflect.Type -> map[string]bool

// patchableFields returns the JSON names declared by n's concrete type.
func patchableFields(n Node) map[string]bool {
	t := reflect.TypeOf(n).Elem()
	if v, ok := fieldCache.Load(t); ok {
		return v.(map[string]bool)
	}
	out := map[string]bool{}
	collectJSONFields(t, out)
	for k := range reserved {
		delete(out, k)
	}
	fieldCache.Store(t, out)
	return out
}

func collectJSONFields(t reflect.Type, out map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectJSONFields(f.Type, out)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = true
	}
}

// Apply shallow-merges set into a copy of n. Only fields declared for n's
// variant are taken; unknown keys are dropped. If a value does not fit the
// field type or falls outside the property's bounds, the whole patch is
// ignored and n is returned unchanged. The second result reports whether
// anything was applied.
func Apply(n Node, set map[string]any) (Node, bool) {
	allowed := patchableFields(n)
	specs := propertyTable[n.Kind()]
	filtered := make(map[string]any, len(set))
	for k, v := range set {
		if !allowed[k] {
			continue
		}
		if spec, ok := specs[k]; ok && !spec.accepts(v) {
			return n, false
		}
		filtered[k] = v
	}
	if len(filtered) == 0 {
		return n, false
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return n, false
	}
	out := shallowClone(n)
	if err := json.Unmarshal(data, out); err != nil {
		return n, false
	}
	out.Common().normalizeVariables()
	return out, true
}

// shallowClone copies n; a page keeps sharing its children slice, which the
// patch never touches.
func shallowClone(n Node) Node {
	if p, ok := n.(*Page); ok {
		c := *p
		c.Variables = cloneBindings(p.Variables)
		return &c
	}
	return n.Clone()
}
