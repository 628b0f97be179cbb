/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas holds the editor's placement model: the ordered list of
// placed widgets, the selection, the mutations the editor performs on them and
// the snapshot codec persisted inside a project's settings.
//
// A Model is not safe for concurrent use. Callers that share one across
// goroutines serialize access themselves (the HTTP service holds one mutex per
// editor session).
package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"buildify/internal/catalog"
)

// ErrNotFound is returned by operations that require an existing instance.
var ErrNotFound = errors.New("canvas: component not found")

// DuplicateOffset is how far a duplicate is shifted from its original on both axes.
const DuplicateOffset = 20

// ChangeKind tells listeners what happened.
type ChangeKind string

const (
	ChangeAdd       ChangeKind = "add"
	ChangeSelect    ChangeKind = "select"
	ChangeMove      ChangeKind = "move"
	ChangeResize    ChangeKind = "resize"
	ChangeDelete    ChangeKind = "delete"
	ChangeDuplicate ChangeKind = "duplicate"
	ChangeRestyle   ChangeKind = "restyle"
	ChangeContent   ChangeKind = "content"
	ChangeRename    ChangeKind = "rename"
	ChangeReset     ChangeKind = "reset"
)

// Change is delivered to listeners after every successful mutation.
type Change struct {
	Kind       ChangeKind
	InstanceID string
}

// Warning reports a snapshot entry that was skipped while loading.
type Warning struct {
	Index      int
	InstanceID string
	TypeID     string
	Reason     string
}

func (w Warning) String() string {
	if w.InstanceID != "" {
		return fmt.Sprintf("component %d (%s, %s): %s", w.Index, w.InstanceID, w.TypeID, w.Reason)
	}
	return fmt.Sprintf("component %d: %s", w.Index, w.Reason)
}

// Option configures a Model.
type Option func(*Model)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g IDGenerator) Option { return func(m *Model) { m.ids = g } }

// Model is the canvas placement model.
type Model struct {
	cat      *catalog.Catalog
	ids      IDGenerator
	comps    []PlacedComponent
	selected string
	envelope map[string]json.RawMessage // unknown snapshot keys outside components
	issued   map[string]struct{}

	listeners map[int]func(Change)
	nextL     int
}

// NewModel creates an empty canvas backed by cat.
func NewModel(cat *catalog.Catalog, opts ...Option) *Model {
	m := &Model{cat: cat, ids: UUIDGenerator{}, issued: map[string]struct{}{}, listeners: map[int]func(Change){}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Catalog returns the registry the model resolves type ids against.
func (m *Model) Catalog() *catalog.Catalog { return m.cat }

// OnChange registers fn and returns a function that removes it.
func (m *Model) OnChange(fn func(Change)) (remove func()) {
	id := m.nextL
	m.nextL++
	m.listeners[id] = fn
	return func() { delete(m.listeners, id) }
}

func (m *Model) emit(kind ChangeKind, id string) {
	keys := slices.Sorted(maps.Keys(m.listeners))
	for _, k := range keys {
		if fn, ok := m.listeners[k]; ok {
			fn(Change{Kind: kind, InstanceID: id})
		}
	}
}

// Len returns the number of placed components.
func (m *Model) Len() int { return len(m.comps) }

// Selected returns the selected instance id or "".
func (m *Model) Selected() string { return m.selected }

// Component returns a copy of the component with id.
func (m *Model) Component(id string) (PlacedComponent, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return PlacedComponent{}, false
	}
	return m.comps[i].Clone(), true
}

func (m *Model) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range m.comps {
		if m.comps[i].InstanceID == id {
			return i
		}
	}
	return -1
}

func (m *Model) newID(typeID string) string {
	for attempt := 0; attempt < 8; attempt++ {
		id := m.ids.NewID(typeID)
		if _, used := m.issued[id]; id != "" && !used {
			m.issued[id] = struct{}{}
			return id
		}
	}
	// generator keeps colliding; derive a suffix we know is free
	base := m.ids.NewID(typeID)
	if base == "" {
		base = typeID
	}
	for n := 2; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if _, used := m.issued[id]; !used {
			m.issued[id] = struct{}{}
			return id
		}
	}
}

// Add places a new instance of typeID centered on drop (clamped to the canvas)
// and selects it.
func (m *Model) Add(typeID string, drop Point) (string, error) {
	def, err := m.cat.Get(typeID)
	if err != nil {
		return "", err
	}
	pos := ClampPoint(Point{X: drop.X - def.DefaultWidth/2, Y: drop.Y - def.DefaultHeight/2})
	c := PlacedComponent{
		InstanceID:  m.newID(def.TypeID),
		TypeID:      def.TypeID,
		DisplayName: def.DisplayName,
		Position:    pos,
		Size:        Size{Width: def.DefaultWidth, Height: def.DefaultHeight},
		Content:     def.DefaultContent,
		Style:       def.DefaultStyle,
	}
	m.comps = append(m.comps, c)
	m.selected = c.InstanceID
	m.emit(ChangeAdd, c.InstanceID)
	return c.InstanceID, nil
}

// Select marks id as selected. Unknown ids are ignored.
func (m *Model) Select(id string) {
	if m.indexOf(id) < 0 || m.selected == id {
		return
	}
	m.selected = id
	m.emit(ChangeSelect, id)
}

// ClearSelection drops the selection, if any.
func (m *Model) ClearSelection() {
	if m.selected == "" {
		return
	}
	m.selected = ""
	m.emit(ChangeSelect, "")
}

// Move sets the top-left corner; negative coordinates clamp to 0.
func (m *Model) Move(id string, pos Point) error {
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	m.comps[i].Position = ClampPoint(pos)
	m.emit(ChangeMove, id)
	return nil
}

// Resize sets the size; each axis clamps to at least 1.
func (m *Model) Resize(id string, size Size) error {
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("resize %q: %w", id, ErrNotFound)
	}
	m.comps[i].Size = ClampSize(size)
	m.emit(ChangeResize, id)
	return nil
}

// Delete removes id. Removing an absent id is not an error.
func (m *Model) Delete(id string) {
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	m.comps = slices.Delete(m.comps, i, i+1)
	if m.selected == id {
		m.selected = ""
	}
	m.emit(ChangeDelete, id)
}

// Duplicate copies id under a fresh id, offset by DuplicateOffset, directly
// after the original in paint order, and selects the copy.
func (m *Model) Duplicate(id string) (string, error) {
	i := m.indexOf(id)
	if i < 0 {
		return "", fmt.Errorf("duplicate %q: %w", id, ErrNotFound)
	}
	c := m.comps[i].Clone()
	c.InstanceID = m.newID(c.TypeID)
	c.Position = Point{X: c.Position.X + DuplicateOffset, Y: c.Position.Y + DuplicateOffset}
	m.comps = slices.Insert(m.comps, i+1, c)
	m.selected = c.InstanceID
	m.emit(ChangeDuplicate, c.InstanceID)
	return c.InstanceID, nil
}

// Restyle merges partial into the component style; later keys overwrite earlier ones.
func (m *Model) Restyle(id string, partial map[string]string) {
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	if m.comps[i].Style == nil {
		m.comps[i].Style = map[string]string{}
	}
	maps.Copy(m.comps[i].Style, partial)
	m.emit(ChangeRestyle, id)
}

// SetContent replaces the component content (label, text, image URL).
func (m *Model) SetContent(id, content string) {
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	m.comps[i].Content = content
	m.emit(ChangeContent, id)
}

// Rename changes the display name shown in the editor.
func (m *Model) Rename(id, displayName string) {
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	m.comps[i].DisplayName = displayName
	m.emit(ChangeRename, id)
}

// Serialize returns a deep copy of the current state.
func (m *Model) Serialize() State {
	s := State{Components: make([]PlacedComponent, len(m.comps)), SelectedInstanceID: m.selected, Extra: cloneRaw(m.envelope)}
	for i, c := range m.comps {
		s.Components[i] = c.Clone()
	}
	return s
}

// Deserialize replaces the model state with s. Entries whose type is not in
// the catalog, whose geometry is invalid or whose id repeats are dropped and
// reported. A selection that no longer resolves is cleared.
func (m *Model) Deserialize(s State) []Warning {
	var warns []Warning
	comps := make([]PlacedComponent, 0, len(s.Components))
	seen := map[string]struct{}{}
	for i, c := range s.Components {
		w := Warning{Index: i, InstanceID: c.InstanceID, TypeID: c.TypeID}
		switch {
		case c.InstanceID == "":
			w.Reason = "missing instance id"
		case !m.cat.Has(c.TypeID):
			w.Reason = "unknown widget type"
		case !validGeometry(c):
			w.Reason = "invalid geometry"
		default:
			if _, dup := seen[c.InstanceID]; dup {
				w.Reason = "duplicate instance id"
			}
		}
		if w.Reason != "" {
			warns = append(warns, w)
			continue
		}
		seen[c.InstanceID] = struct{}{}
		m.issued[c.InstanceID] = struct{}{}
		comps = append(comps, c.Clone())
	}
	m.comps = comps
	m.envelope = cloneRaw(s.Extra)
	m.selected = ""
	if _, ok := seen[s.SelectedInstanceID]; ok {
		m.selected = s.SelectedInstanceID
	}
	m.emit(ChangeReset, "")
	return warns
}

func validGeometry(c PlacedComponent) bool {
	p, s := c.Position, c.Size
	if !finite(p.X) || !finite(p.Y) || !finite(s.Width) || !finite(s.Height) {
		return false
	}
	return p.X >= 0 && p.Y >= 0 && s.Width > 0 && s.Height > 0
}
