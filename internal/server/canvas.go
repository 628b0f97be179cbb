/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"fmt"

	"buildify/internal/builder"
	"buildify/internal/canvas"
	"buildify/internal/dragdrop"
	"buildify/internal/project"
	"buildify/internal/render"
)

// canvasFrame is the rendered editor state sent to clients.
type canvasFrame struct {
	State          canvas.State   `json:"state"`
	HTML           string         `json:"html"`
	Mode           builder.Mode   `json:"mode"`
	Device         builder.Device `json:"device"`
	PaletteVisible bool           `json:"paletteVisible"`
	Dirty          bool           `json:"dirty"`
	Busy           bool           `json:"busy"`
}

func frameOf(sh *builder.Shell) (*canvasFrame, error) {
	st := sh.Snapshot()
	var buf bytes.Buffer
	if err := render.RenderHTMLWith(&buf, st, sh.RenderOptions()); err != nil {
		return nil, err
	}
	return &canvasFrame{
		State:          st,
		HTML:           buf.String(),
		Mode:           sh.Mode(),
		Device:         sh.Device(),
		PaletteVisible: sh.PaletteVisible(),
		Dirty:          sh.Dirty(),
		Busy:           sh.Busy(),
	}, nil
}

type dropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// canvasOp is one editing operation posted by a client.
type canvasOp struct {
	Op         string            `json:"op"`
	TypeID     string            `json:"typeId,omitempty"`
	InstanceID string            `json:"instanceId,omitempty"`
	Position   *canvas.Point     `json:"position,omitempty"`
	Size       *canvas.Size      `json:"size,omitempty"`
	Style      map[string]string `json:"style,omitempty"`
	Content    *string           `json:"content,omitempty"`
	Name       string            `json:"name,omitempty"`
	Device     string            `json:"device,omitempty"`
	// Snap aligns a moved component to the edges and centers of the others.
	Snap bool `json:"snap,omitempty"`

	// drop: the drag payload, the pointer and the canvas element's rectangle
	Payload string        `json:"payload,omitempty"`
	Client  *canvas.Point `json:"client,omitempty"`
	Target  *dropRect     `json:"target,omitempty"`
}

type opResult struct {
	InstanceID string         `json:"instanceId,omitempty"`
	Placed     *bool          `json:"placed,omitempty"`
	Guides     []canvas.Guide `json:"guides,omitempty"`
	Canvas     *canvasFrame   `json:"canvas"`
}

func invalidOp(format string, args ...any) error {
	return fmt.Errorf("%w: %s", project.ErrInvalid, fmt.Sprintf(format, args...))
}

// apply runs op against the session. Content changes are refused while
// previewing; mode and device switches are not.
func apply(sh *builder.Shell, op canvasOp) (opResult, error) {
	var res opResult
	switch op.Op {
	case "toggle_preview":
		sh.TogglePreview()
		return res, nil
	case "device":
		d, ok := builder.ParseDevice(op.Device)
		if !ok {
			return res, invalidOp("device %q", op.Device)
		}
		sh.SetDevice(d)
		return res, nil
	case "drop":
		if sh.Mode() != builder.ModeEditing {
			return res, errPreviewing
		}
		dt := dragdrop.NewDataTransfer()
		dt.SetData(dragdrop.MIMEType, op.Payload)
		evt := dragdrop.Event{Data: dt}
		if op.Client != nil {
			evt.ClientX, evt.ClientY = op.Client.X, op.Client.Y
		}
		if op.Target != nil {
			evt.Target = canvas.R(op.Target.X, op.Target.Y, op.Target.Width, op.Target.Height)
		}
		id, placed := sh.Drop(evt)
		res.InstanceID, res.Placed = id, &placed
		return res, nil
	}
	if sh.Mode() != builder.ModeEditing {
		return res, errPreviewing
	}
	err := sh.Do(func(m *canvas.Model) error {
		var err error
		switch op.Op {
		case "add":
			var at canvas.Point
			if op.Position != nil {
				at = *op.Position
			}
			res.InstanceID, err = m.Add(op.TypeID, at)
		case "select":
			if op.InstanceID == "" {
				m.ClearSelection()
			} else {
				m.Select(op.InstanceID)
			}
		case "move":
			if op.Position == nil {
				return invalidOp("move needs a position")
			}
			if op.Snap {
				res.Guides, err = m.SnapMove(op.InstanceID, *op.Position, canvas.SnapOptions{Edges: true, Centers: true})
			} else {
				err = m.Move(op.InstanceID, *op.Position)
			}
		case "resize":
			if op.Size == nil {
				return invalidOp("resize needs a size")
			}
			err = m.Resize(op.InstanceID, *op.Size)
		case "delete":
			m.Delete(op.InstanceID)
		case "duplicate":
			res.InstanceID, err = m.Duplicate(op.InstanceID)
		case "restyle":
			m.Restyle(op.InstanceID, op.Style)
		case "content":
			if op.Content == nil {
				return invalidOp("content is required")
			}
			m.SetContent(op.InstanceID, *op.Content)
		case "rename":
			m.Rename(op.InstanceID, op.Name)
		default:
			return invalidOp("unknown op %q", op.Op)
		}
		return err
	})
	return res, err
}
