/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts the desktop previewer. The Fyne window itself is built only
// with -tags fyne; the geometry that maps a canvas onto the window lives here
// so it stays testable in headless builds.
package ui

import (
	"math"

	"buildify/internal/canvas"
	"buildify/internal/export"
)

const (
	// minimum logical frame, mirrors the export thumbnails
	frameMinW = 320
	frameMinH = 240
	// desktop previews are at least this wide
	desktopW = 1024
	framePad = 20
	// space kept around the frame inside the widget
	viewMargin = 16
)

// Viewport maps logical canvas coordinates into widget coordinates.
type Viewport struct {
	Scale            float32
	OriginX, OriginY float32
	FrameW, FrameH   float32 // logical frame size
}

// Fit computes the viewport that shows s at deviceWidth inside a view of the
// given size. deviceWidth 0 means desktop. The frame is never scaled up.
func Fit(s canvas.State, deviceWidth int, viewW, viewH float32) Viewport {
	b := s.Bounds()
	w := math.Max(b.X+b.W+framePad, desktopW)
	if deviceWidth > 0 {
		w = float64(deviceWidth)
	}
	w = math.Max(w, frameMinW)
	h := math.Max(b.Y+b.H+framePad, frameMinH)

	vp := Viewport{FrameW: float32(w), FrameH: float32(h), Scale: 1}
	availW := viewW - 2*viewMargin
	availH := viewH - 2*viewMargin
	if availW > 0 && availH > 0 {
		vp.Scale = min(availW/vp.FrameW, availH/vp.FrameH, 1)
	}
	vp.OriginX = (viewW - vp.FrameW*vp.Scale) / 2
	if vp.OriginX < 0 {
		vp.OriginX = 0
	}
	vp.OriginY = viewMargin
	return vp
}

// ToView converts a canvas point to widget coordinates.
func (v Viewport) ToView(p canvas.Point) (x, y float32) {
	return v.OriginX + float32(p.X)*v.Scale, v.OriginY + float32(p.Y)*v.Scale
}

// ToCanvas converts widget coordinates to a canvas point.
func (v Viewport) ToCanvas(x, y float32) canvas.Point {
	if v.Scale == 0 {
		return canvas.Point{}
	}
	return canvas.Point{X: float64((x - v.OriginX) / v.Scale), Y: float64((y - v.OriginY) / v.Scale)}
}

// Delta converts a widget-space drag distance into canvas units.
func (v Viewport) Delta(dx, dy float32) (float64, float64) {
	if v.Scale == 0 {
		return 0, 0
	}
	return float64(dx / v.Scale), float64(dy / v.Scale)
}

// Tile is one component placed in widget coordinates.
type Tile struct {
	ID         string
	X, Y, W, H float32
	Look       export.Palette
	Selected   bool
}

// Tiles lays out every component of s in paint order. The selection outline
// is dropped when readOnly is set.
func (v Viewport) Tiles(s canvas.State, readOnly bool) []Tile {
	out := make([]Tile, 0, len(s.Components))
	for _, c := range s.Components {
		x, y := v.ToView(c.Position)
		out = append(out, Tile{
			ID:       c.InstanceID,
			X:        x,
			Y:        y,
			W:        float32(c.Size.Width) * v.Scale,
			H:        float32(c.Size.Height) * v.Scale,
			Look:     export.Look(c),
			Selected: !readOnly && c.InstanceID == s.SelectedInstanceID,
		})
	}
	return out
}
