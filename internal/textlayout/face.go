/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FaceMeasurer measures with an x/image font.Face, applying kerning.
type FaceMeasurer struct {
	Face font.Face
}

func (f FaceMeasurer) Advance(s string) float64 {
	return fixedToFloat(font.MeasureString(f.Face, s))
}

func (f FaceMeasurer) Metrics() (float64, float64) {
	m := f.Face.Metrics()
	return fixedToFloat(m.Ascent), fixedToFloat(m.Descent)
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

// NewOpenTypeMeasurer parses data (TTF/OTF) and returns a measurer at size
// units per em, using 72 DPI so that 1 pt equals 1 unit.
func NewOpenTypeMeasurer(data []byte, size float64) (FaceMeasurer, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return FaceMeasurer{}, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return FaceMeasurer{}, err
	}
	return FaceMeasurer{Face: face}, nil
}

// Basic returns a fixed 7x13 measurer for deterministic tests.
func Basic() FaceMeasurer { return FaceMeasurer{Face: basicfont.Face7x13} }
