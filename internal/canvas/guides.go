/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "math"

// DefaultSnapThreshold is the snap distance used when SnapOptions leaves it unset.
const DefaultSnapThreshold = 6

// SnapOptions controls which alignment candidates are considered.
type SnapOptions struct {
	// Threshold is the maximum distance at which snapping occurs.
	Threshold float64
	Edges     bool
	Centers   bool
}

// Guide is an alignment line found while snapping. Vertical guides sit at
// X = Pos, horizontal ones at Y = Pos. Kind is "edge" or "center".
type Guide struct {
	Vertical bool    `json:"vertical"`
	Kind     string  `json:"kind"`
	Pos      float64 `json:"pos"`
	From     Point   `json:"from"`
	To       Point   `json:"to"`
}

type span struct{ lo, hi float64 }

func (s span) mid() float64 { return s.lo + (s.hi-s.lo)/2 }

// axisHit is the best candidate on one axis.
type axisHit struct {
	delta  float64 // subtract from the moving span
	at     float64
	kind   string
	anchor int
	ok     bool
}

func snapAxis(m span, anchors []span, o SnapOptions) axisHit {
	best := axisHit{delta: math.Inf(1)}
	try := func(d, at float64, kind string, i int) {
		if math.Abs(d) > o.Threshold || math.Abs(d) >= math.Abs(best.delta) {
			return
		}
		best = axisHit{delta: d, at: at, kind: kind, anchor: i, ok: true}
	}
	for i, a := range anchors {
		if o.Edges {
			try(m.lo-a.lo, a.lo, "edge", i)
			try(m.hi-a.hi, a.hi, "edge", i)
			try(m.lo-a.hi, a.hi, "edge", i)
			try(m.hi-a.lo, a.lo, "edge", i)
		}
		if o.Centers {
			try(m.mid()-a.mid(), a.mid(), "center", i)
		}
	}
	return best
}

// Snap aligns moving to the nearest anchor edge or center on each axis
// independently and returns the adjusted rect with the guides to draw.
func Snap(moving Rect, anchors []Rect, o SnapOptions) (Rect, []Guide) {
	if o.Threshold <= 0 {
		o.Threshold = DefaultSnapThreshold
	}
	xs := make([]span, len(anchors))
	ys := make([]span, len(anchors))
	for i, a := range anchors {
		xs[i] = span{a.X, a.X + a.W}
		ys[i] = span{a.Y, a.Y + a.H}
	}

	out := moving
	var guides []Guide
	if h := snapAxis(span{moving.X, moving.X + moving.W}, xs, o); h.ok {
		out.X = Round(moving.X-h.delta, 3)
		a := anchors[h.anchor]
		pos := Round(h.at, 3)
		guides = append(guides, Guide{
			Vertical: true, Kind: h.kind, Pos: pos,
			From: Point{X: pos, Y: math.Min(out.Y, a.Y)},
			To:   Point{X: pos, Y: math.Max(out.Y+out.H, a.Y+a.H)},
		})
	}
	if h := snapAxis(span{moving.Y, moving.Y + moving.H}, ys, o); h.ok {
		out.Y = Round(moving.Y-h.delta, 3)
		a := anchors[h.anchor]
		pos := Round(h.at, 3)
		guides = append(guides, Guide{
			Kind: h.kind, Pos: pos,
			From: Point{X: math.Min(out.X, a.X), Y: pos},
			To:   Point{X: math.Max(out.X+out.W, a.X+a.W), Y: pos},
		})
	}
	return out, guides
}

// SnapMove moves id to pos after snapping it against every other component.
func (m *Model) SnapMove(id string, pos Point, o SnapOptions) ([]Guide, error) {
	c, ok := m.Component(id)
	if !ok {
		return nil, m.Move(id, pos)
	}
	anchors := make([]Rect, 0, len(m.comps))
	for _, other := range m.comps {
		if other.InstanceID != id {
			anchors = append(anchors, other.Bounds())
		}
	}
	moving := Rect{X: pos.X, Y: pos.Y, W: c.Size.Width, H: c.Size.Height}
	snapped, guides := Snap(moving, anchors, o)
	if err := m.Move(id, Point{X: snapped.X, Y: snapped.Y}); err != nil {
		return nil, err
	}
	return guides, nil
}
