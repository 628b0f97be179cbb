/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"bytes"
	"encoding/json"
	"maps"
)

// PlacedComponent is one widget instance on the canvas.
type PlacedComponent struct {
	InstanceID  string            `json:"instanceId"`
	TypeID      string            `json:"typeId"`
	DisplayName string            `json:"displayName"`
	Position    Point             `json:"position"`
	Size        Size              `json:"size"`
	Content     string            `json:"content"`
	Style       map[string]string `json:"style"`

	// Extra holds keys this version does not know about; they are written back unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// Bounds returns the component rectangle.
func (c PlacedComponent) Bounds() Rect {
	return Rect{X: c.Position.X, Y: c.Position.Y, W: c.Size.Width, H: c.Size.Height}
}

// Clone returns a deep copy.
func (c PlacedComponent) Clone() PlacedComponent {
	c.Style = maps.Clone(c.Style)
	c.Extra = cloneRaw(c.Extra)
	return c
}

// State is the serializable canvas: components in paint order (later paints on
// top) and the optional selection.
type State struct {
	Components         []PlacedComponent `json:"components"`
	SelectedInstanceID string            `json:"selectedInstanceId,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{SelectedInstanceID: s.SelectedInstanceID, Extra: cloneRaw(s.Extra)}
	out.Components = make([]PlacedComponent, len(s.Components))
	for i, c := range s.Components {
		out.Components[i] = c.Clone()
	}
	return out
}

// Bounds is the union of all component rectangles.
func (s State) Bounds() Rect {
	var r Rect
	for _, c := range s.Components {
		r = r.Union(c.Bounds())
	}
	return r
}

var componentKeys = []string{"instanceId", "typeId", "displayName", "position", "size", "content", "style"}
var stateKeys = []string{"components", "selectedInstanceId"}

type componentAlias PlacedComponent
type stateAlias State

func (c PlacedComponent) MarshalJSON() ([]byte, error) {
	if c.Style == nil {
		c.Style = map[string]string{}
	}
	return marshalWithExtra(componentAlias(c), c.Extra)
}

func (c *PlacedComponent) UnmarshalJSON(data []byte) error {
	var a componentAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownKeys(data, componentKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*c = PlacedComponent(a)
	return nil
}

func (s State) MarshalJSON() ([]byte, error) {
	if s.Components == nil {
		s.Components = []PlacedComponent{}
	}
	return marshalWithExtra(stateAlias(s), s.Extra)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var a stateAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownKeys(data, stateKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = State(a)
	return nil
}

// marshalWithExtra encodes v and folds extra keys into the resulting object.
// Known fields win over same-named extras.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return base, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, known := merged[k]; known {
			continue
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

func unknownKeys(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = json.RawMessage(bytes.Clone(v))
	}
	return out
}
