/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

// This file defines the template document model: a root Page with an ordered
// list of Rect, Text and Image children. Child order is paint order (later
// entries paint on top). JSON field names match the persisted format used by
// the web editor, so the structs double as the wire representation.

// Kind discriminates node variants; it is serialized as "type".
type Kind string

const (
	KindPage  Kind = "page"
	KindRect  Kind = "rect"
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Binding associates a node property with a named runtime variable.
type Binding struct {
	Property string `json:"property"`
	Name     string `json:"name"`
}

// Node is implemented by *Page, *Rect, *Text and *Image.
type Node interface {
	Kind() Kind
	Common() *Base
	Clone() Node
}

// Base holds the fields shared by every node.
type Base struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Rotate    float64   `json:"rotate"`
	Variables []Binding `json:"variables,omitempty"`
}

// Binding returns the variable name bound to property, if any.
func (b *Base) Binding(property string) (string, bool) {
	for _, v := range b.Variables {
		if v.Property == property {
			return v.Name, true
		}
	}
	return "", false
}

// Bind records (or replaces) the binding for property.
func (b *Base) Bind(property, name string) {
	for i := range b.Variables {
		if b.Variables[i].Property == property {
			b.Variables[i].Name = name
			return
		}
	}
	b.Variables = append(b.Variables, Binding{Property: property, Name: name})
}

// Unbind removes the binding for property. It reports whether one existed.
func (b *Base) Unbind(property string) bool {
	for i := range b.Variables {
		if b.Variables[i].Property == property {
			b.Variables = append(b.Variables[:i:i], b.Variables[i+1:]...)
			if len(b.Variables) == 0 {
				b.Variables = nil
			}
			return true
		}
	}
	return false
}

// normalizeVariables enforces one binding per property; the last one wins
// but keeps the position of the first occurrence.
func (b *Base) normalizeVariables() {
	if len(b.Variables) < 2 {
		return
	}
	pos := make(map[string]int, len(b.Variables))
	out := b.Variables[:0:0]
	for _, v := range b.Variables {
		if i, ok := pos[v.Property]; ok {
			out[i].Name = v.Name
			continue
		}
		pos[v.Property] = len(out)
		out = append(out, v)
	}
	b.Variables = out
}

func cloneBindings(in []Binding) []Binding {
	if in == nil {
		return nil
	}
	return append([]Binding(nil), in...)
}

// Radii are the four independent corner radii.
type Radii struct {
	TopLeft     float64 `json:"borderTopLeftRadius"`
	TopRight    float64 `json:"borderTopRightRadius"`
	BottomLeft  float64 `json:"borderBottomLeftRadius"`
	BottomRight float64 `json:"borderBottomRightRadius"`
}

// Border describes a box outline.
type Border struct {
	BorderColor string  `json:"borderColor"`
	BorderWidth float64 `json:"borderWidth"`
	BorderStyle string  `json:"borderStyle"` // solid | dashed | dotted
}

// Shadow is a box drop shadow. It is inactive when ShadowColor is empty or
// ShadowOpacity is zero.
type Shadow struct {
	ShadowXOffset float64 `json:"shadowXOffset"`
	ShadowYOffset float64 `json:"shadowYOffset"`
	ShadowBlur    float64 `json:"shadowBlur"`
	ShadowSpread  float64 `json:"shadowSpread"`
	ShadowColor   string  `json:"shadowColor"`
	ShadowOpacity float64 `json:"shadowOpacity"`
}

// TextShadow is the glyph shadow for text nodes (no spread).
type TextShadow struct {
	TextShadowXOffset float64 `json:"textShadowXOffset"`
	TextShadowYOffset float64 `json:"textShadowYOffset"`
	TextShadowBlur    float64 `json:"textShadowBlur"`
	TextShadowColor   string  `json:"textShadowColor"`
	TextShadowOpacity float64 `json:"textShadowOpacity"`
}

// Page is the document root.
type Page struct {
	Base
	BackgroundColor   string  `json:"backgroundColor"`
	BackgroundOpacity float64 `json:"backgroundOpacity"`
	Children          []Node  `json:"children"`
}

func (p *Page) Kind() Kind    { return KindPage }
func (p *Page) Common() *Base { return &p.Base }

// Clone returns a deep copy of the page including all children.
func (p *Page) Clone() Node { return p.CloneTree() }

// CloneTree is Clone with the concrete return type.
func (p *Page) CloneTree() *Page {
	c := *p
	c.Variables = cloneBindings(p.Variables)
	c.Children = make([]Node, len(p.Children))
	for i, ch := range p.Children {
		c.Children[i] = ch.Clone()
	}
	return &c
}

// IndexOf returns the z-index of the child with id, or -1.
func (p *Page) IndexOf(id string) int {
	for i, ch := range p.Children {
		if ch.Common().ID == id {
			return i
		}
	}
	return -1
}

// Find returns the child with id.
func (p *Page) Find(id string) (Node, bool) {
	if i := p.IndexOf(id); i >= 0 {
		return p.Children[i], true
	}
	return nil, false
}

// Rect is a filled, optionally bordered and rounded box.
type Rect struct {
	Base
	BackgroundColor   string  `json:"backgroundColor"`
	BackgroundOpacity float64 `json:"backgroundOpacity"`
	Border
	BorderOffset float64 `json:"borderOffset"`
	Radii
	Shadow
	Blur float64 `json:"blur"`
}

func (r *Rect) Kind() Kind    { return KindRect }
func (r *Rect) Common() *Base { return &r.Base }
func (r *Rect) Clone() Node {
	c := *r
	c.Variables = cloneBindings(r.Variables)
	return &c
}

// Text is a box of styled text. Content may embed {{name}} placeholders.
type Text struct {
	Base
	Content          string  `json:"content"`
	FontFamily       string  `json:"fontFamily"`
	FontSize         float64 `json:"fontSize"`
	FontWeight       int     `json:"fontWeight"`
	FontStyle        string  `json:"fontStyle"` // normal | italic
	Color            string  `json:"color"`
	TextColorOpacity float64 `json:"textColorOpacity"`
	TextAlign        string  `json:"textAlign"`     // left | center | right | justify
	TextTransform    string  `json:"textTransform"` // none | uppercase | lowercase | capitalize
	LineHeight       float64 `json:"lineHeight"`    // multiple of FontSize
	TextShadow
	Blur float64 `json:"blur"`
}

func (t *Text) Kind() Kind    { return KindText }
func (t *Text) Common() *Base { return &t.Base }
func (t *Text) Clone() Node {
	c := *t
	c.Variables = cloneBindings(t.Variables)
	return &c
}

// Image is a bitmap placed in a box. A nil Src renders a placeholder.
type Image struct {
	Base
	Src       *string `json:"src"`
	ObjectFit string  `json:"objectFit"` // contain | cover | none | fill | scale-down
	Radii
	Shadow
	Border
	Blur float64 `json:"blur"`
}

func (i *Image) Kind() Kind    { return KindImage }
func (i *Image) Common() *Base { return &i.Base }
func (i *Image) Clone() Node {
	c := *i
	c.Variables = cloneBindings(i.Variables)
	if i.Src != nil {
		s := *i.Src
		c.Src = &s
	}
	return &c
}
