/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/image/draw"

	"rendless/internal/paint"
)

// One canvas millimetre is one output pixel.
var resolution = canvas.DPMM(1)

// RasterizePNG draws sc at 1:1 scale and encodes it as PNG.
func RasterizePNG(w io.Writer, sc *Scene) error {
	if err := png.Encode(w, Rasterize(sc)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Rasterize draws sc into a new image of Width x Height pixels. Every item
// is painted into its own layer so shadows and blur filters only touch that
// item, then composited over the page in z-order.
func Rasterize(sc *Scene) *image.RGBA {
	bounds := image.Rect(0, 0, int(math.Ceil(sc.Width)), int(math.Ceil(sc.Height)))
	dst := image.NewRGBA(bounds)
	if paint.Visible(sc.Background) {
		draw.Draw(dst, bounds, image.NewUniform(sc.Background), image.Point{}, draw.Src)
	}
	for _, it := range sc.Items {
		layer := rasterizeItem(sc, it, bounds)
		if it.Blur > 0 {
			layer = blur.Gaussian(layer, paint.BlurSigma(it.Blur))
		}
		draw.Draw(dst, bounds, layer, image.Point{}, draw.Over)
	}
	return dst
}

func rasterizeItem(sc *Scene, it Item, bounds image.Rectangle) *image.RGBA {
	out := image.NewRGBA(bounds)
	over := func(img image.Image) { draw.Draw(out, bounds, img, image.Point{}, draw.Over) }

	if sh := it.Shadow; sh != nil {
		box, radii := paint.Outset(it.Box, it.Radii, sh.Spread)
		box.X += sh.DX
		box.Y += sh.DY
		layer := paintLayer(sc, it, func(ctx *canvas.Context) {
			fillPath(ctx, paint.RoundedRect(box, radii), sh.Color)
		})
		if sh.Blur > 0 {
			layer = blur.Gaussian(layer, paint.ShadowSigma(sh.Blur))
		}
		over(layer)
	}

	outline := paint.RoundedRect(it.Box, it.Radii)
	switch {
	case it.Image != nil:
		content := paintLayer(sc, it, func(ctx *canvas.Context) {
			if a := it.Image.Asset; a != nil {
				drawAsset(ctx, a.Image, it.Image.Dest)
			} else {
				drawChecker(ctx, it.Box)
			}
		})
		mask := paintLayer(sc, it, func(ctx *canvas.Context) { fillPath(ctx, outline, color.NRGBA{A: 0xff}) })
		draw.DrawMask(out, bounds, content, image.Point{}, mask, image.Point{}, draw.Over)
	case it.Text != nil:
		if sh := it.Text.Shadow; sh != nil {
			layer := paintLayer(sc, it, func(ctx *canvas.Context) { drawText(ctx, it, sh.Color, sh.DX, sh.DY) })
			if sh.Blur > 0 {
				layer = blur.Gaussian(layer, paint.ShadowSigma(sh.Blur))
			}
			over(layer)
		}
		over(paintLayer(sc, it, func(ctx *canvas.Context) { drawText(ctx, it, it.Text.Color, 0, 0) }))
	default:
		if paint.Visible(it.Fill) {
			over(paintLayer(sc, it, func(ctx *canvas.Context) { fillPath(ctx, outline, it.Fill) }))
		}
	}

	if st := it.Stroke; st != nil {
		box, radii := paint.Outset(it.Box, it.Radii, st.Offset)
		over(paintLayer(sc, it, func(ctx *canvas.Context) { strokePath(ctx, paint.RoundedRect(box, radii), *st) }))
	}
	return out
}

// paintLayer runs draw on a fresh top-left origin canvas rotated about the
// item centre and rasterises it.
func paintLayer(sc *Scene, it Item, drawFn func(ctx *canvas.Context)) *image.RGBA {
	c := canvas.New(sc.Width, sc.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	if it.Rotate != 0 {
		cx, cy := it.Center()
		ctx.RotateAbout(it.Rotate, cx, cy)
	}
	drawFn(ctx)
	return rasterizer.Draw(c, resolution, canvas.DefaultColorSpace)
}

func toPath(segs []paint.Seg) *canvas.Path {
	p := &canvas.Path{}
	for _, s := range segs {
		switch s.Op {
		case 'M':
			p.MoveTo(s.X, s.Y)
		case 'L':
			p.LineTo(s.X, s.Y)
		case 'A':
			p.ArcTo(s.R, s.R, 0, false, true, s.X, s.Y)
		case 'Z':
			p.Close()
		}
	}
	return p
}

func fillPath(ctx *canvas.Context, segs []paint.Seg, col color.NRGBA) {
	ctx.SetFillColor(col)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, toPath(segs))
}

func strokePath(ctx *canvas.Context, segs []paint.Seg, st paint.Stroke) {
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(st.Color)
	ctx.SetStrokeWidth(st.Width)
	if st.Round {
		ctx.SetStrokeCapper(canvas.RoundCap)
	}
	if len(st.Dashes) > 0 {
		dashes := make([]float64, len(st.Dashes))
		for i, d := range st.Dashes {
			// zero length dashes become round dots once capped
			dashes[i] = math.Max(d, 1e-3)
		}
		ctx.SetDashes(0, dashes...)
	}
	ctx.DrawPath(0, 0, toPath(segs))
}

// drawAsset scales img to the destination box and places it.
func drawAsset(ctx *canvas.Context, img image.Image, dest paint.Rect) {
	w, h := int(math.Round(dest.W)), int(math.Round(dest.H))
	if w <= 0 || h <= 0 {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	ctx.DrawImage(dest.X, dest.Y, scaled, resolution)
}

func drawChecker(ctx *canvas.Context, box paint.Rect) {
	fillPath(ctx, paint.RoundedRect(box, paint.Corners{}), paint.CheckerLight)
	ctx.SetFillColor(paint.CheckerDark)
	s := paint.CheckerSize
	for y := 0.0; y < box.H; y += s {
		for x := 0.0; x < box.W; x += s {
			if paint.CheckerDarkAt(x, y) {
				ctx.DrawPath(box.X+x, box.Y+y, canvas.Rectangle(s, s))
			}
		}
	}
}

func drawText(ctx *canvas.Context, it Item, col color.NRGBA, dx, dy float64) {
	tb := it.Text
	face := tb.Font.Face(tb.Size, col)
	x0, y0 := it.Box.X+dx, it.Box.Y+dy
	for _, l := range tb.Lines {
		if l.Justified {
			for _, w := range l.Words {
				ctx.DrawText(x0+w.X, y0+l.Baseline, canvas.NewTextLine(face, w.Text, canvas.Left))
			}
			continue
		}
		if l.Text == "" {
			continue
		}
		ctx.DrawText(x0+l.X, y0+l.Baseline, canvas.NewTextLine(face, l.Text, canvas.Left))
	}
}
