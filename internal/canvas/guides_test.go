/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"errors"
	"testing"
)

func TestSnap_Edges(t *testing.T) {
	panel := R(0, 0, 200, 100)
	moving := R(3, 4, 80, 40)
	snapped, guides := Snap(moving, []Rect{panel}, SnapOptions{Threshold: 6, Edges: true})
	if snapped.X != 0 || snapped.Y != 0 {
		t.Fatalf("expected snap to (0,0), got %+v", snapped)
	}
	if snapped.W != 80 || snapped.H != 40 {
		t.Fatalf("snapping must keep the size, got %+v", snapped)
	}
	var vOK, hOK bool
	for _, g := range guides {
		if g.Vertical && g.Pos == 0 && g.Kind == "edge" {
			vOK = true
		}
		if !g.Vertical && g.Pos == 0 && g.Kind == "edge" {
			hOK = true
		}
	}
	if !vOK || !hOK {
		t.Fatalf("expected guides at x=0 (%v) and y=0 (%v): %+v", vOK, hOK, guides)
	}
}

func TestSnap_Centers(t *testing.T) {
	panel := R(0, 0, 200, 100)
	moving := R(48, 17, 100, 60) // center (98,47) vs (100,50)
	snapped, guides := Snap(moving, []Rect{panel}, SnapOptions{Threshold: 5, Centers: true})
	if snapped.X != 50 || snapped.Y != 20 {
		t.Fatalf("expected center snap to (50,20), got %+v", snapped)
	}
	if len(guides) != 2 || guides[0].Kind != "center" || guides[0].Pos != 100 || guides[1].Pos != 50 {
		t.Fatalf("unexpected center guides: %+v", guides)
	}
}

func TestSnap_ThresholdAndDefaults(t *testing.T) {
	panel := R(0, 0, 200, 100)
	moving := R(10, 10, 50, 20)
	snapped, guides := Snap(moving, []Rect{panel}, SnapOptions{Threshold: 5, Edges: true})
	if snapped != moving || len(guides) != 0 {
		t.Fatalf("expected no snap outside threshold, got %+v %+v", snapped, guides)
	}
	// zero threshold falls back to the default distance
	snapped, _ = Snap(R(5, 50, 20, 20), []Rect{panel}, SnapOptions{Edges: true})
	if snapped.X != 0 {
		t.Fatalf("default threshold should snap x=5 to 0, got %v", snapped.X)
	}
	if s, g := Snap(moving, nil, SnapOptions{Edges: true, Centers: true}); s != moving || g != nil {
		t.Fatalf("no anchors should be a no-op, got %+v %+v", s, g)
	}
}

func TestSnap_PicksNearestCandidate(t *testing.T) {
	a := R(0, 0, 100, 100)
	b := R(0, 200, 100, 100)
	moving := R(104, 196, 50, 50) // 4 from a's right edge, 4 from b's top
	snapped, _ := Snap(moving, []Rect{a, b}, SnapOptions{Threshold: 6, Edges: true})
	if snapped.X != 100 || snapped.Y != 200 {
		t.Fatalf("unexpected snap %+v", snapped)
	}
}

func TestModelSnapMove(t *testing.T) {
	m := newTestModel(WithIDGenerator(seqIDs()))
	first, err := m.Add("button", Point{X: 100, Y: 100}) // (40,80) 120x40
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := m.Add("button", Point{X: 300, Y: 300})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	guides, err := m.SnapMove(second, Point{X: 43, Y: 200}, SnapOptions{Edges: true, Centers: true})
	if err != nil {
		t.Fatalf("snap move: %v", err)
	}
	c, _ := m.Component(second)
	if c.Position != (Point{X: 40, Y: 200}) {
		t.Fatalf("expected snapped position (40,200), got %+v", c.Position)
	}
	if len(guides) != 1 || !guides[0].Vertical || guides[0].From.Y != 80 || guides[0].To.Y != 240 {
		t.Fatalf("unexpected guides: %+v", guides)
	}
	if c, _ := m.Component(first); c.Position != (Point{X: 40, Y: 80}) {
		t.Fatalf("anchor moved: %+v", c.Position)
	}
	if _, err := m.SnapMove("ghost", Point{}, SnapOptions{Edges: true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
