/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ValueKind is the expected shape of an editable property.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueNumber
	ValueInteger
	ValueColor
	ValueOpacity
	ValueEnum
	ValueURL
)

func (k ValueKind) String() string {
	switch k {
	case ValueText:
		return "text"
	case ValueNumber:
		return "number"
	case ValueInteger:
		return "integer"
	case ValueColor:
		return "color"
	case ValueOpacity:
		return "opacity"
	case ValueEnum:
		return "enum"
	case ValueURL:
		return "url"
	}
	return "unknown"
}

// MaxPageSize bounds the page width and height in pixels.
const MaxPageSize = 8192

// PropertySpec describes one editable property. Numeric kinds may carry
// bounds matching schema.json: Min applies when HasMin is set, MinExclusive
// rejects Min itself, and a zero Max means no upper bound.
type PropertySpec struct {
	Kind         ValueKind
	Allowed      []string // ValueEnum only
	NonEmpty     bool     // ValueText only
	Min          float64
	HasMin       bool
	MinExclusive bool
	Max          float64
}

// InRange reports whether f satisfies the bounds of s.
func (s PropertySpec) InRange(f float64) bool {
	if s.HasMin && (f < s.Min || (s.MinExclusive && f == s.Min)) {
		return false
	}
	return s.Max == 0 || f <= s.Max
}

// accepts checks an already typed patch value against the same rules as
// ParseLiteral. Values of the wrong type are left to the decoder.
func (s PropertySpec) accepts(v any) bool {
	if str, ok := v.(string); ok {
		switch s.Kind {
		case ValueText:
			return !s.NonEmpty || strings.TrimSpace(str) != ""
		case ValueColor:
			return str == "" || IsColor(str)
		case ValueEnum:
			return slices.Contains(s.Allowed, str)
		}
		return true
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return true
	}
	if s.Kind == ValueOpacity {
		return f >= 0 && f <= 1
	}
	return s.InRange(f)
}

var (
	colorRe = regexp.MustCompile(`(?i)^#[0-9a-f]{6}$`)

	enumBorderStyle   = []string{"solid", "dashed", "dotted"}
	enumFontStyle     = []string{"normal", "italic"}
	enumTextAlign     = []string{"left", "center", "right", "justify"}
	enumTextTransform = []string{"none", "uppercase", "lowercase", "capitalize"}
	enumObjectFit     = []string{"contain", "cover", "none", "fill", "scale-down"}
)

func num() PropertySpec                  { return PropertySpec{Kind: ValueNumber} }
func nonNeg() PropertySpec               { return PropertySpec{Kind: ValueNumber, HasMin: true} }
func positive() PropertySpec             { return PropertySpec{Kind: ValueNumber, HasMin: true, MinExclusive: true} }
func enum(allowed []string) PropertySpec { return PropertySpec{Kind: ValueEnum, Allowed: allowed} }

func merge(groups ...map[string]PropertySpec) map[string]PropertySpec {
	out := map[string]PropertySpec{}
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	return out
}

var (
	geometryProps = map[string]PropertySpec{
		"x": num(), "y": num(), "width": nonNeg(), "height": nonNeg(), "rotate": num(),
	}

	pageSize  = PropertySpec{Kind: ValueNumber, HasMin: true, MinExclusive: true, Max: MaxPageSize}
	pageProps = map[string]PropertySpec{"width": pageSize, "height": pageSize}

	radiiProps = map[string]PropertySpec{
		"borderTopLeftRadius": nonNeg(), "borderTopRightRadius": nonNeg(),
		"borderBottomLeftRadius": nonNeg(), "borderBottomRightRadius": nonNeg(),
	}
	borderProps = map[string]PropertySpec{
		"borderColor": {Kind: ValueColor}, "borderWidth": nonNeg(), "borderStyle": enum(enumBorderStyle),
	}
	shadowProps = map[string]PropertySpec{
		"shadowXOffset": num(), "shadowYOffset": num(), "shadowBlur": nonNeg(), "shadowSpread": num(),
		"shadowColor": {Kind: ValueColor}, "shadowOpacity": {Kind: ValueOpacity},
	}
	fillProps = map[string]PropertySpec{
		"backgroundColor": {Kind: ValueColor}, "backgroundOpacity": {Kind: ValueOpacity},
	}

	propertyTable = map[Kind]map[string]PropertySpec{
		KindPage: merge(geometryProps, fillProps, pageProps),
		KindRect: merge(geometryProps, fillProps, borderProps, radiiProps, shadowProps, map[string]PropertySpec{
			"borderOffset": num(), "blur": nonNeg(),
		}),
		KindText: merge(geometryProps, map[string]PropertySpec{
			"content":           {Kind: ValueText},
			"fontFamily":        {Kind: ValueText, NonEmpty: true},
			"fontSize":          positive(),
			"fontWeight":        {Kind: ValueInteger, HasMin: true, Min: 1, Max: 1000},
			"fontStyle":         enum(enumFontStyle),
			"color":             {Kind: ValueColor},
			"textColorOpacity":  {Kind: ValueOpacity},
			"textAlign":         enum(enumTextAlign),
			"textTransform":     enum(enumTextTransform),
			"lineHeight":        positive(),
			"textShadowXOffset": num(),
			"textShadowYOffset": num(),
			"textShadowBlur":    nonNeg(),
			"textShadowColor":   {Kind: ValueColor},
			"textShadowOpacity": {Kind: ValueOpacity},
			"blur":              nonNeg(),
		}),
		KindImage: merge(geometryProps, radiiProps, shadowProps, borderProps, map[string]PropertySpec{
			"src":       {Kind: ValueURL},
			"objectFit": enum(enumObjectFit),
			"blur":      nonNeg(),
		}),
	}
)

// Property returns the spec of an editable property of kind.
func Property(kind Kind, name string) (PropertySpec, bool) {
	spec, ok := propertyTable[kind][name]
	return spec, ok
}

// Properties lists the editable property names of kind, sorted.
func Properties(kind Kind) []string {
	names := make([]string, 0, len(propertyTable[kind]))
	for n := range propertyTable[kind] {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// IsColor reports whether s is a #RRGGBB literal (any case).
func IsColor(s string) bool { return colorRe.MatchString(s) }

// ParseLiteral coerces raw into the value type of spec. The result is a
// float64, int or string ready to be placed into a patch. Colours are
// returned verbatim; opacities accept "NN%" and must land in [0,1]; numbers
// must respect the property's bounds.
func ParseLiteral(spec PropertySpec, raw string) (any, bool) {
	switch spec.Kind {
	case ValueText, ValueURL:
		if spec.NonEmpty && strings.TrimSpace(raw) == "" {
			return nil, false
		}
		return raw, true
	case ValueColor:
		s := strings.TrimSpace(raw)
		if !colorRe.MatchString(s) {
			return nil, false
		}
		return s, true
	case ValueNumber:
		f, ok := parseFinite(raw)
		if !ok || !spec.InRange(f) {
			return nil, false
		}
		return f, true
	case ValueInteger:
		f, ok := parseFinite(raw)
		if !ok || f != math.Trunc(f) || !spec.InRange(f) {
			return nil, false
		}
		return int(f), true
	case ValueOpacity:
		return parseOpacity(raw)
	case ValueEnum:
		s := strings.TrimSpace(raw)
		if !slices.Contains(spec.Allowed, s) {
			return nil, false
		}
		return s, true
	}
	return nil, false
}

func parseFinite(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseOpacity(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	scale := 1.0
	if p, ok := strings.CutSuffix(s, "%"); ok {
		s, scale = strings.TrimSpace(p), 100
	}
	f, ok := parseFinite(s)
	if !ok {
		return nil, false
	}
	f /= scale
	if f < 0 || f > 1 {
		return nil, false
	}
	return f, true
}
