/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "testing"

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Point{10, 20}) || !r.Contains(Point{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	if r.Contains(Point{111, 70}) {
		t.Fatalf("point right of rect should miss")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
}

func TestRectUnion(t *testing.T) {
	u := R(0, 0, 10, 10).Union(R(20, 5, 10, 20))
	if u != R(0, 0, 30, 25) {
		t.Fatalf("unexpected union: %+v", u)
	}
	if got := (Rect{}).Union(R(5, 5, 1, 1)); got != R(5, 5, 1, 1) {
		t.Fatalf("empty union should adopt other: %+v", got)
	}
}

func TestClamp(t *testing.T) {
	if p := ClampPoint(Point{-3, 7}); p != (Point{0, 7}) {
		t.Fatalf("ClampPoint = %+v", p)
	}
	if s := ClampSize(Size{0, -10}); s != (Size{1, 1}) {
		t.Fatalf("ClampSize = %+v", s)
	}
	if s := ClampSize(Size{20, 30}); s != (Size{20, 30}) {
		t.Fatalf("positive size must be kept: %+v", s)
	}
	if Round(1.23456, 2) != 1.23 {
		t.Fatalf("Round failed")
	}
}
