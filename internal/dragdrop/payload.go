/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dragdrop implements the palette-to-canvas drag protocol: the JSON
// payload carried in the drag data transfer and the canvas drop target that
// turns a drop into a placement.
package dragdrop

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MIMEType is the data transfer key the payload travels under.
const MIMEType = "application/json"

// ErrNoType is returned when a payload carries no widget type.
var ErrNoType = errors.New("dragdrop: payload has no typeId")

// Payload is the dragged widget reference.
type Payload struct {
	TypeID      string `json:"typeId"`
	DisplayName string `json:"displayName"`
}

// wire also accepts the older palette spelling {"id","name"}.
type wire struct {
	TypeID      string `json:"typeId"`
	DisplayName string `json:"displayName"`
	ID          string `json:"id"`
	Name        string `json:"name"`
}

// Encode renders p in wire form.
func Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a wire payload. Malformed JSON and an empty type id are errors.
func Decode(s string) (Payload, error) {
	var w wire
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return Payload{}, fmt.Errorf("dragdrop: decode payload: %w", err)
	}
	p := Payload{TypeID: strings.TrimSpace(w.TypeID), DisplayName: w.DisplayName}
	if p.TypeID == "" {
		p.TypeID = strings.TrimSpace(w.ID)
	}
	if p.DisplayName == "" {
		p.DisplayName = w.Name
	}
	if p.TypeID == "" {
		return Payload{}, ErrNoType
	}
	return p, nil
}

// DataTransfer is the string map a drag carries, keyed by MIME type.
type DataTransfer struct {
	items map[string]string
}

func NewDataTransfer() *DataTransfer { return &DataTransfer{items: map[string]string{}} }

func (d *DataTransfer) SetData(format, data string) {
	if d.items == nil {
		d.items = map[string]string{}
	}
	d.items[format] = data
}

// GetData returns "" for a missing format, like the browser API.
func (d *DataTransfer) GetData(format string) string {
	if d == nil {
		return ""
	}
	return d.items[format]
}

// Types lists the formats present.
func (d *DataTransfer) Types() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.items))
	for k := range d.items {
		out = append(out, k)
	}
	return out
}
