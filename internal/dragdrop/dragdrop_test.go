/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dragdrop

import (
	"errors"
	"testing"

	"buildify/internal/canvas"
	"buildify/internal/catalog"
	applog "buildify/internal/log"
)

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{TypeID: "date-picker", DisplayName: "Date \"Picker\""}
	s, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(s)
	if err != nil || got != p {
		t.Fatalf("Decode = %+v, %v", got, err)
	}
}

func TestDecodeLegacySpelling(t *testing.T) {
	got, err := Decode(`{"id":"button","name":"Button","category":"Input"}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.TypeID != "button" || got.DisplayName != "Button" {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, err := Decode("{"); err == nil {
		t.Fatalf("expected JSON error")
	}
	if _, err := Decode(`{"displayName":"Button"}`); !errors.Is(err, ErrNoType) {
		t.Fatalf("expected ErrNoType, got %v", err)
	}
	if _, err := Decode(`{"typeId":"  "}`); !errors.Is(err, ErrNoType) {
		t.Fatalf("expected ErrNoType for blank id, got %v", err)
	}
}

func newTarget() (*DropTarget, *canvas.Model) {
	m := canvas.NewModel(catalog.Default())
	return NewDropTarget(m, applog.Discard()), m
}

func dropEvent(payload string, x, y float64) Event {
	dt := NewDataTransfer()
	if payload != "" {
		dt.SetData(MIMEType, payload)
	}
	return Event{Data: dt, ClientX: x, ClientY: y, Target: canvas.R(300, 100, 800, 600)}
}

func TestDragOverPreventsDefault(t *testing.T) {
	tg, _ := newTarget()
	if !tg.DragOver(Event{}).PreventDefault {
		t.Fatalf("DragOver must prevent default")
	}
}

func TestDropTranslatesToCanvasCoordinates(t *testing.T) {
	tg, m := newTarget()
	res, id, ok := tg.Drop(dropEvent(`{"typeId":"button","displayName":"Button"}`, 400, 200))
	if !res.PreventDefault || !ok {
		t.Fatalf("drop not accepted: %+v %v", res, ok)
	}
	c, _ := m.Component(id)
	// canvas-local (100,100) minus half of 120x40
	if c.Position != (canvas.Point{X: 40, Y: 80}) {
		t.Fatalf("position %+v", c.Position)
	}
	if m.Selected() != id {
		t.Fatalf("dropped component should be selected")
	}
}

func TestDropIgnoresBadPayloads(t *testing.T) {
	cases := map[string]Event{
		"missing":   dropEvent("", 10, 10),
		"malformed": dropEvent("not json", 10, 10),
		"no type":   dropEvent(`{"displayName":"Button"}`, 10, 10),
		"unknown":   dropEvent(`{"typeId":"carousel"}`, 10, 10),
		"nil data":  {ClientX: 5, ClientY: 5},
	}
	for name, evt := range cases {
		tg, m := newTarget()
		res, id, ok := tg.Drop(evt)
		if !res.PreventDefault || ok || id != "" || m.Len() != 0 {
			t.Fatalf("%s: expected no-op, got %+v %q %v len=%d", name, res, id, ok, m.Len())
		}
	}
}
