/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package palette

import (
	"errors"
	"testing"

	"buildify/internal/canvas"
	"buildify/internal/catalog"
	"buildify/internal/dragdrop"
	applog "buildify/internal/log"
)

func TestFilterState(t *testing.T) {
	p := New(catalog.Default())
	if len(p.Items()) != 14 {
		t.Fatalf("default should show all, got %d", len(p.Items()))
	}
	p.SetCategory("Data")
	if got := len(p.Items()); got != 3 {
		t.Fatalf("Data: got %d", got)
	}
	p.SetSearch("chart")
	if items := p.Items(); len(items) != 1 || items[0].TypeID != "chart" {
		t.Fatalf("Data+chart: %+v", items)
	}
	p.SetCategory("Nope")
	if p.Category() != catalog.CategoryAll {
		t.Fatalf("unknown category should reset to All")
	}
}

func TestEmptyMessage(t *testing.T) {
	p := New(catalog.Default())
	if p.EmptyMessage() != "" {
		t.Fatalf("no message expected")
	}
	p.SetSearch("  zzz ")
	if got, want := p.EmptyMessage(), `No components found for "zzz"`; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDragStartFeedsDropTarget(t *testing.T) {
	cat := catalog.Default()
	p := New(cat)
	dt, err := p.DragStart("image")
	if err != nil {
		t.Fatalf("DragStart: %v", err)
	}
	m := canvas.NewModel(cat)
	tg := dragdrop.NewDropTarget(m, applog.Discard())
	_, id, ok := tg.Drop(dragdrop.Event{Data: dt, ClientX: 300, ClientY: 300})
	if !ok {
		t.Fatalf("drop rejected")
	}
	c, _ := m.Component(id)
	if c.TypeID != "image" || c.Position != (canvas.Point{X: 200, Y: 225}) {
		t.Fatalf("unexpected %+v", c)
	}
	if _, err := p.DragStart("ghost"); !errors.Is(err, catalog.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}
