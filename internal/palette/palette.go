/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package palette is the component picker beside the canvas: category tabs,
// a search box and draggable widget cards.
package palette

import (
	"fmt"
	"slices"
	"strings"

	"buildify/internal/catalog"
	"buildify/internal/dragdrop"
)

// Palette holds the filter state over a catalog.
type Palette struct {
	cat      *catalog.Catalog
	category string
	search   string
}

func New(cat *catalog.Catalog) *Palette {
	return &Palette{cat: cat, category: catalog.CategoryAll}
}

// Categories returns the tab labels.
func (p *Palette) Categories() []string { return p.cat.Categories() }

// SetCategory switches the active tab. Unknown categories fall back to All.
func (p *Palette) SetCategory(c string) {
	if !slices.Contains(p.cat.Categories(), c) {
		c = catalog.CategoryAll
	}
	p.category = c
}

func (p *Palette) Category() string { return p.category }

func (p *Palette) SetSearch(q string) { p.search = q }

func (p *Palette) Search() string { return p.search }

// Items returns the definitions matching the current filter.
func (p *Palette) Items() []catalog.WidgetDefinition {
	return slices.Collect(p.cat.Filter(p.category, p.search))
}

// EmptyMessage is shown when the filter matches nothing; "" otherwise.
func (p *Palette) EmptyMessage() string {
	for range p.cat.Filter(p.category, p.search) {
		return ""
	}
	return fmt.Sprintf("No components found for %q", strings.TrimSpace(p.search))
}

// DragStart builds the data transfer for dragging typeID onto the canvas.
func (p *Palette) DragStart(typeID string) (*dragdrop.DataTransfer, error) {
	def, err := p.cat.Get(typeID)
	if err != nil {
		return nil, err
	}
	s, err := dragdrop.Encode(dragdrop.Payload{TypeID: def.TypeID, DisplayName: def.DisplayName})
	if err != nil {
		return nil, err
	}
	dt := dragdrop.NewDataTransfer()
	dt.SetData(dragdrop.MIMEType, s)
	return dt, nil
}
