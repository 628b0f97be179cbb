/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed snapshot.schema.json
var componentSchemaJSON []byte

var componentSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(componentSchemaJSON))
})

// Encode writes the persisted snapshot form of s.
func Encode(s State) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a persisted snapshot. Entries that fail the component schema
// are skipped and reported as warnings; only a malformed envelope is an error.
// An empty input decodes to an empty state.
func Decode(data []byte) (State, []Warning, error) {
	if len(strings.TrimSpace(string(data))) == 0 || string(data) == "null" {
		return State{}, nil, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, nil, fmt.Errorf("decode canvas snapshot: %w", err)
	}
	var out State
	if sel, ok := env["selectedInstanceId"]; ok {
		_ = json.Unmarshal(sel, &out.SelectedInstanceID)
	}
	extra, _ := unknownKeys(data, stateKeys)
	out.Extra = extra

	rawComps, ok := env["components"]
	if !ok || string(rawComps) == "null" {
		return out, nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawComps, &entries); err != nil {
		return State{}, nil, fmt.Errorf("decode canvas snapshot: components: %w", err)
	}
	schema, err := componentSchema()
	if err != nil {
		return State{}, nil, fmt.Errorf("load component schema: %w", err)
	}
	var warns []Warning
	for i, raw := range entries {
		res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			warns = append(warns, Warning{Index: i, Reason: "not an object: " + err.Error()})
			continue
		}
		if !res.Valid() {
			var reasons []string
			for _, e := range res.Errors() {
				reasons = append(reasons, e.String())
			}
			w := Warning{Index: i, Reason: strings.Join(reasons, "; ")}
			var peek struct {
				InstanceID string `json:"instanceId"`
				TypeID     string `json:"typeId"`
			}
			if json.Unmarshal(raw, &peek) == nil {
				w.InstanceID, w.TypeID = peek.InstanceID, peek.TypeID
			}
			warns = append(warns, w)
			continue
		}
		var c PlacedComponent
		if err := json.Unmarshal(raw, &c); err != nil {
			warns = append(warns, Warning{Index: i, Reason: err.Error()})
			continue
		}
		out.Components = append(out.Components, c)
	}
	return out, warns, nil
}

// Load decodes data and replaces the model state with it, returning warnings
// from both the schema pass and the catalog pass.
func (m *Model) Load(data []byte) ([]Warning, error) {
	s, warns, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return append(warns, m.Deserialize(s)...), nil
}
