/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import "buildify/internal/canvas"

// EventKind is an interaction reported by a client.
type EventKind string

const (
	Click     EventKind = "click"
	Duplicate EventKind = "duplicate"
	Delete    EventKind = "delete"
)

// Event is a user interaction. InstanceID names the component the event
// landed on; when it is empty and HasPoint is set the point is hit-tested.
type Event struct {
	Kind       EventKind    `json:"kind"`
	InstanceID string       `json:"instanceId,omitempty"`
	Point      canvas.Point `json:"point"`
	HasPoint   bool         `json:"hasPoint,omitempty"`
}

// Editor is the slice of the canvas model Dispatch drives.
type Editor interface {
	Serialize() canvas.State
	Select(id string)
	ClearSelection()
	Duplicate(id string) (string, error)
	Delete(id string)
}

// Dispatch relays evt to the model. A click on a component selects it and is
// not seen by the background; a click on the background clears the selection.
// Toolbar events act on the current selection.
func Dispatch(m Editor, evt Event) {
	switch evt.Kind {
	case Click:
		id := evt.InstanceID
		if id == "" && evt.HasPoint {
			id, _ = HitTest(m.Serialize(), evt.Point)
		}
		if id != "" {
			m.Select(id)
			return
		}
		m.ClearSelection()
	case Duplicate:
		if sel := target(m, evt); sel != "" {
			_, _ = m.Duplicate(sel)
		}
	case Delete:
		if sel := target(m, evt); sel != "" {
			m.Delete(sel)
		}
	}
}

func target(m Editor, evt Event) string {
	if evt.InstanceID != "" {
		return evt.InstanceID
	}
	return m.Serialize().SelectedInstanceID
}

// HitTest returns the top-most component under p.
func HitTest(s canvas.State, p canvas.Point) (string, bool) {
	for i := len(s.Components) - 1; i >= 0; i-- {
		if s.Components[i].Bounds().Contains(p) {
			return s.Components[i].InstanceID, true
		}
	}
	return "", false
}
