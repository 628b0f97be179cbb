/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"testing"

	"buildify/internal/canvas"
)

func almostEqual(a, b, eps float32) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func sample() canvas.State {
	return canvas.State{
		Components: []canvas.PlacedComponent{
			{InstanceID: "b1", TypeID: "button", DisplayName: "Button", Position: canvas.Point{X: 40, Y: 80}, Size: canvas.Size{Width: 120, Height: 40}, Content: "Go"},
			{InstanceID: "c1", TypeID: "container", DisplayName: "Container", Position: canvas.Point{X: 100, Y: 100}, Size: canvas.Size{Width: 300, Height: 200}},
		},
		SelectedInstanceID: "b1",
	}
}

func TestFit_DesktopFrame(t *testing.T) {
	vp := Fit(sample(), 0, 2000, 1000)
	if vp.FrameW != desktopW {
		t.Fatalf("desktop frame width = %v, want %v", vp.FrameW, desktopW)
	}
	if vp.FrameH != 320 {
		t.Fatalf("frame height = %v, want 320", vp.FrameH)
	}
	if vp.Scale != 1 {
		t.Fatalf("frame must not be scaled up, got %v", vp.Scale)
	}
	if !almostEqual(vp.OriginX, (2000-desktopW)/2, 0.01) || vp.OriginY != viewMargin {
		t.Fatalf("unexpected origin (%v,%v)", vp.OriginX, vp.OriginY)
	}
}

func TestFit_ScalesDown(t *testing.T) {
	vp := Fit(sample(), 375, 400, 200)
	want := float32(200-2*viewMargin) / 320
	if !almostEqual(vp.Scale, want, 0.001) {
		t.Fatalf("scale = %v, want %v", vp.Scale, want)
	}
	if vp.FrameW != 375 {
		t.Fatalf("device frame width = %v", vp.FrameW)
	}
}

func TestFit_NarrowDeviceKeepsMinimum(t *testing.T) {
	vp := Fit(canvas.State{}, 100, 800, 600)
	if vp.FrameW != frameMinW || vp.FrameH != frameMinH {
		t.Fatalf("minimum frame not applied: %vx%v", vp.FrameW, vp.FrameH)
	}
}

func TestViewport_RoundTrip(t *testing.T) {
	vp := Viewport{Scale: 0.5, OriginX: 10, OriginY: 16}
	x, y := vp.ToView(canvas.Point{X: 40, Y: 80})
	if x != 30 || y != 56 {
		t.Fatalf("ToView = (%v,%v)", x, y)
	}
	p := vp.ToCanvas(x, y)
	if p.X != 40 || p.Y != 80 {
		t.Fatalf("ToCanvas = %+v", p)
	}
	dx, dy := vp.Delta(5, -5)
	if dx != 10 || dy != -10 {
		t.Fatalf("Delta = (%v,%v)", dx, dy)
	}
	if p := (Viewport{}).ToCanvas(3, 3); p != (canvas.Point{}) {
		t.Fatalf("zero viewport should map to origin, got %+v", p)
	}
}

func TestTiles(t *testing.T) {
	vp := Viewport{Scale: 0.5}
	tiles := vp.Tiles(sample(), false)
	if len(tiles) != 2 {
		t.Fatalf("tiles = %d", len(tiles))
	}
	b := tiles[0]
	if b.ID != "b1" || b.X != 20 || b.Y != 40 || b.W != 60 || b.H != 20 {
		t.Fatalf("unexpected button tile: %+v", b)
	}
	if !b.Selected || tiles[1].Selected {
		t.Fatal("only the selected component should be outlined")
	}
	if b.Look.Label != "Go" {
		t.Fatalf("label = %q", b.Look.Label)
	}
	for _, tl := range vp.Tiles(sample(), true) {
		if tl.Selected {
			t.Fatal("read-only tiles must not show a selection")
		}
	}
}
