/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog is the read-only registry of widget types that can be placed
// on a canvas. A Catalog is built once and injected into the palette and the
// canvas model; it is safe for concurrent readers.
package catalog

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"strings"
)

// ErrUnknownType is returned when a type id is not registered.
var ErrUnknownType = errors.New("catalog: unknown widget type")

// CategoryAll matches every category in Filter.
const CategoryAll = "All"

// WidgetDefinition describes one placeable widget type.
type WidgetDefinition struct {
	TypeID         string            `json:"typeId"`
	DisplayName    string            `json:"displayName"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	DefaultWidth   float64           `json:"defaultWidth"`
	DefaultHeight  float64           `json:"defaultHeight"`
	DefaultContent string            `json:"defaultContent"`
	DefaultStyle   map[string]string `json:"defaultStyle"`
	// Properties lists the style keys the properties panel offers for this type.
	// Empty means the base set.
	Properties []string `json:"properties,omitempty"`
}

// Catalog is an immutable, ordered set of definitions.
type Catalog struct {
	defs  []WidgetDefinition
	index map[string]int
}

// New builds a catalog from defs in the given order. Empty or duplicate type ids are rejected.
func New(defs ...WidgetDefinition) (*Catalog, error) {
	c := &Catalog{defs: make([]WidgetDefinition, 0, len(defs)), index: make(map[string]int, len(defs))}
	for _, d := range defs {
		id := strings.TrimSpace(d.TypeID)
		if id == "" {
			return nil, errors.New("catalog: empty type id")
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate type id %q", id)
		}
		if d.DefaultWidth <= 0 || d.DefaultHeight <= 0 {
			return nil, fmt.Errorf("catalog: %q has non-positive default size", id)
		}
		d.TypeID = id
		d.DefaultStyle = maps.Clone(d.DefaultStyle)
		d.Properties = append([]string(nil), d.Properties...)
		c.index[id] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

// MustNew is New for static tables.
func MustNew(defs ...WidgetDefinition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// ListAll returns every definition in table order.
func (c *Catalog) ListAll() []WidgetDefinition {
	out := make([]WidgetDefinition, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.clone()
	}
	return out
}

// Get looks up one definition.
func (c *Catalog) Get(typeID string) (WidgetDefinition, error) {
	i, ok := c.index[typeID]
	if !ok {
		return WidgetDefinition{}, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	return c.defs[i].clone(), nil
}

// Has reports whether typeID is registered.
func (c *Catalog) Has(typeID string) bool {
	_, ok := c.index[typeID]
	return ok
}

// Filter yields definitions whose display name or description contains search
// (case-insensitive) and whose category equals category. CategoryAll or an
// empty category disables the category test.
func (c *Catalog) Filter(category, search string) iter.Seq[WidgetDefinition] {
	q := strings.ToLower(strings.TrimSpace(search))
	all := category == "" || category == CategoryAll
	return func(yield func(WidgetDefinition) bool) {
		for _, d := range c.defs {
			if !all && d.Category != category {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(d.DisplayName), q) &&
				!strings.Contains(strings.ToLower(d.Description), q) {
				continue
			}
			if !yield(d.clone()) {
				return
			}
		}
	}
}

// Categories returns CategoryAll followed by categories in first-appearance order.
func (c *Catalog) Categories() []string {
	out := []string{CategoryAll}
	seen := map[string]bool{}
	for _, d := range c.defs {
		if d.Category == "" || seen[d.Category] {
			continue
		}
		seen[d.Category] = true
		out = append(out, d.Category)
	}
	return out
}

// AllowedStyle reports whether the properties panel should offer key for typeID.
// The canvas model itself accepts any key.
func (c *Catalog) AllowedStyle(typeID, key string) bool {
	i, ok := c.index[typeID]
	if !ok {
		return false
	}
	props := c.defs[i].Properties
	if len(props) == 0 {
		props = BaseProperties
	}
	for _, p := range props {
		if p == key {
			return true
		}
	}
	_, inDefaults := c.defs[i].DefaultStyle[key]
	return inDefaults
}

func (d WidgetDefinition) clone() WidgetDefinition {
	d.DefaultStyle = maps.Clone(d.DefaultStyle)
	d.Properties = append([]string(nil), d.Properties...)
	return d
}
