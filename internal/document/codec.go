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
	"fmt"
)

// ErrMalformedDocument is returned when tree JSON cannot be parsed or does not
// match the tagged-union shape.
var ErrMalformedDocument = errors.New("malformed document")

func (p *Page) MarshalJSON() ([]byte, error) {
	type alias Page
	children := p.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
		Children []Node `json:"children"`
	}{KindPage, (*alias)(p), children})
}

// UnmarshalJSON decodes onto the receiver's current values, so fields missing
// from data keep whatever the receiver already holds (defaults when decoding
// via DecodeTree). Children are only replaced when present in data.
func (p *Page) UnmarshalJSON(data []byte) error {
	type alias Page
	aux := struct {
		*alias
		Children []json.RawMessage `json:"children"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Children == nil {
		return nil
	}
	children := make([]Node, 0, len(aux.Children))
	for i, raw := range aux.Children {
		n, err := DecodeNode(raw)
		if err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
		children = append(children, n)
	}
	p.Children = children
	p.normalizeVariables()
	return nil
}

func (r *Rect) MarshalJSON() ([]byte, error) {
	type alias Rect
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindRect, (*alias)(r)})
}

func (t *Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindText, (*alias)(t)})
}

func (i *Image) MarshalJSON() ([]byte, error) {
	type alias Image
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindImage, (*alias)(i)})
}

// DecodeNode decodes a single non-page node, filling absent optional
// properties with the variant defaults.
func DecodeNode(data []byte) (Node, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	var n Node
	switch head.Type {
	case KindRect:
		n = blankRect()
	case KindText:
		n = blankText()
	case KindImage:
		n = blankImage()
	case KindPage:
		return nil, fmt.Errorf("%w: nested page", ErrMalformedDocument)
	default:
		return nil, fmt.Errorf("%w: unknown node type %q", ErrMalformedDocument, head.Type)
	}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if n.Common().ID == "" {
		return nil, fmt.Errorf("%w: %s node without id", ErrMalformedDocument, head.Type)
	}
	n.Common().normalizeVariables()
	return n, nil
}

// DecodeTree decodes a root page without schema validation. It is used for
// trusted data such as history snapshots; use ParseTree for external input.
func DecodeTree(data []byte) (*Page, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if head.Type != KindPage {
		return nil, fmt.Errorf("%w: root must be a page, got %q", ErrMalformedDocument, head.Type)
	}
	p := blankPage()
	if err := json.Unmarshal(data, p); err != nil {
		if errors.Is(err, ErrMalformedDocument) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if p.Children == nil {
		p.Children = []Node{}
	}
	return p, nil
}

// ParseTree validates data against the document schema and decodes it.
func ParseTree(data []byte) (*Page, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	return DecodeTree(data)
}

// EncodeTree serializes the page in its persisted form.
func EncodeTree(p *Page) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil page")
	}
	return json.Marshal(p)
}
