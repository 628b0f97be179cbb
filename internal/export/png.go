/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"buildify/internal/canvas"
)

// PNG rasterizes s. Labels use the fixed 7x13 face, so they render
// identically everywhere and ignore the font size.
func PNG(w io.Writer, s canvas.State, o Options) error {
	o = o.withDefaults()
	fw, fh := frame(s, o)
	scale := o.Scale
	pixW := int(math.Round(fw * scale))
	pixH := int(math.Round(fh * scale))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: toRGBA(white)}, image.Point{}, draw.Src)

	if o.ShowGrid {
		step := int(math.Max(1, math.Round(gridStep*scale)))
		gc := toRGBA(gridColor)
		for y := 0; y < pixH; y += step {
			for x := 0; x < pixW; x += step {
				img.SetRGBA(x, y, gc)
			}
		}
	}

	face := basicfont.Face7x13
	for _, b := range boxes(s, o) {
		x := int(math.Round(b.x * scale))
		y := int(math.Round(b.y * scale))
		bw := int(math.Round(b.w * scale))
		bh := int(math.Round(b.h * scale))
		if bw < 1 {
			bw = 1
		}
		if bh < 1 {
			bh = 1
		}
		fillRect(img, x, y, x+bw-1, y+bh-1, toRGBA(b.fill))
		strokeRect(img, x, y, x+bw-1, y+bh-1, toRGBA(b.stroke))

		if b.label == "" || bh < face.Height+4 {
			continue
		}
		text := fitText(b.label, bw-8, face.Advance)
		if text == "" {
			continue
		}
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(toRGBA(b.text)),
			Face: face,
			Dot:  fixed.P(x+4, y+4+face.Ascent),
		}
		d.DrawString(text)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// fitText truncates s to the runes that fit into width pixels.
func fitText(s string, width, advance int) string {
	if advance <= 0 || width < advance {
		return ""
	}
	r := []rune(s)
	n := width / advance
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func toRGBA(c rgb) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
