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
	"log/slog"

	"buildify/internal/canvas"
	"buildify/internal/catalog"
	applog "buildify/internal/log"
)

// Event is a drag event as seen by the canvas element. Client coordinates are
// screen-space; Target is the canvas element's on-screen rectangle.
type Event struct {
	Data    *DataTransfer
	ClientX float64
	ClientY float64
	Target  canvas.Rect
}

// Result tells the host whether to suppress the platform default handling.
type Result struct {
	PreventDefault bool
}

// DropTarget accepts drops onto a canvas model.
type DropTarget struct {
	model *canvas.Model
	log   *slog.Logger
}

func NewDropTarget(m *canvas.Model, l *slog.Logger) *DropTarget {
	if l == nil {
		l = applog.WithComponent("dragdrop")
	}
	return &DropTarget{model: m, log: l}
}

// DragOver always accepts so the canvas stays a valid drop zone.
func (t *DropTarget) DragOver(Event) Result { return Result{PreventDefault: true} }

// Drop places the dragged widget at the pointer, translated into canvas-local
// coordinates. An unreadable payload or an unknown type is ignored: ok is false
// and the model is untouched.
func (t *DropTarget) Drop(evt Event) (res Result, instanceID string, ok bool) {
	res = Result{PreventDefault: true}
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("drop panicked", slog.Any("panic", r))
			instanceID, ok = "", false
		}
	}()
	raw := evt.Data.GetData(MIMEType)
	if raw == "" {
		t.log.Debug("drop without payload")
		return res, "", false
	}
	p, err := Decode(raw)
	if err != nil {
		t.log.Debug("drop payload ignored", slog.String("err", err.Error()))
		return res, "", false
	}
	at := canvas.Point{X: evt.ClientX - evt.Target.X, Y: evt.ClientY - evt.Target.Y}
	id, err := t.model.Add(p.TypeID, at)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownType) {
			t.log.Warn("drop of unknown widget type", slog.String("type", p.TypeID))
		} else {
			t.log.Error("drop failed", slog.String("type", p.TypeID), slog.String("err", err.Error()))
		}
		return res, "", false
	}
	t.log.Debug("component dropped", slog.String("type", p.TypeID), slog.String("id", id))
	return res, id, true
}
