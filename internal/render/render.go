/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"slices"
	"strconv"
	"strings"

	"buildify/internal/canvas"
)

const (
	selectionOutline = "2px solid #3b82f6"
	gridBackground   = "radial-gradient(circle, #e2e8f0 1px, transparent 1px)"

	ActionBackground = "background"
	ActionSelect     = "select"
	ActionDuplicate  = "duplicate"
	ActionSettings   = "settings"
	ActionDelete     = "delete"
)

// Options tweak the projection.
type Options struct {
	// ReadOnly drops selection outlines, the toolbar and action hooks (preview mode).
	ReadOnly bool
	// DeviceWidth fixes the canvas width in pixels; 0 keeps it fluid.
	DeviceWidth int
	// Bare omits the editor chrome (empty-state hint and component badge) for published pages.
	Bare bool
}

// Render projects s with default options.
func Render(s canvas.State) *Node { return RenderWith(s, Options{}) }

// RenderWith projects s onto a visual tree. It is pure and never fails:
// unknown types render as a labeled placeholder.
func RenderWith(s canvas.State, opts Options) *Node {
	root := el("div", Attr{"class", "canvas"})
	if !opts.ReadOnly {
		root.Attrs = append(root.Attrs, Attr{"data-action", ActionBackground})
	}
	root.css("position", "relative")
	if opts.DeviceWidth > 0 {
		root.css("width", px(float64(opts.DeviceWidth))).css("margin", "0 auto")
	} else {
		root.css("width", "100%")
	}
	root.css("min-height", "500px").
		css("background-image", gridBackground).
		css("background-size", "20px 20px")

	for _, c := range s.Components {
		root.add(component(c, !opts.ReadOnly && c.InstanceID == s.SelectedInstanceID, opts))
	}
	if opts.Bare {
		return root
	}
	if len(s.Components) == 0 {
		root.add(emptyState(opts))
	}
	if !opts.ReadOnly && s.SelectedInstanceID != "" {
		root.add(toolbar(s.SelectedInstanceID))
	}
	badge := el("div", Attr{"class", "canvas-badge"}).add(text(strconv.Itoa(len(s.Components)) + " components"))
	badge.css("position", "absolute").css("bottom", "16px").css("left", "16px")
	root.add(badge)
	return root
}

func component(c canvas.PlacedComponent, selected bool, opts Options) *Node {
	w := el("div",
		Attr{"class", "canvas-component"},
		Attr{"data-instance-id", c.InstanceID},
		Attr{"data-type-id", c.TypeID},
	)
	if !opts.ReadOnly {
		w.Attrs = append(w.Attrs, Attr{"data-action", ActionSelect})
	}
	w.css("position", "absolute").
		css("left", px(c.Position.X)).
		css("top", px(c.Position.Y)).
		css("width", px(c.Size.Width)).
		css("height", px(c.Size.Height))
	own := styleDecls(c.Style)
	w.Style = append(w.Style, own...)
	if opts.ReadOnly {
		w.css("user-select", "auto")
	} else {
		w.css("cursor", "pointer").css("user-select", "none")
	}
	if selected {
		w.css("outline", selectionOutline).css("outline-offset", "2px")
	} else {
		w.css("outline", "none").css("outline-offset", "0")
	}
	return w.add(visual(c, own))
}

func visual(c canvas.PlacedComponent, own []Decl) *Node {
	var n *Node
	switch c.TypeID {
	case "button":
		n = el("button", Attr{"type", "button"}, Attr{"class", "w-full h-full"}).add(text(c.Content))
	case "text-input":
		n = el("input", Attr{"type", "text"}, Attr{"placeholder", "Enter text..."}, Attr{"class", "w-full h-full"})
		if c.Content != "" {
			n.Attrs = append(n.Attrs, Attr{"value", c.Content})
		}
	case "text":
		n = el("div").add(text(c.Content))
	case "image":
		n = el("img", Attr{"src", c.Content}, Attr{"alt", "Component"}, Attr{"class", "w-full h-full object-cover"})
	case "container":
		n = el("div", Attr{"class", "w-full h-full placeholder"}).add(text("Container"))
	case "card":
		n = el("div", Attr{"class", "w-full h-full"}).add(
			el("div", Attr{"class", "p-4"}).add(
				el("h3").add(text("Card Title")),
				el("p").add(text("Card content goes here.")),
			),
		)
	default:
		n = el("div", Attr{"class", "w-full h-full placeholder"}).add(text(c.DisplayName))
	}
	n.Style = append(n.Style, own...)
	return n
}

func emptyState(opts Options) *Node {
	n := el("div", Attr{"class", "canvas-empty"}).add(
		el("h3").add(text("Start Building")),
	)
	if !opts.ReadOnly {
		n.add(el("p").add(text("Drag components from the palette to start building your application.")))
	}
	return n
}

func toolbar(selected string) *Node {
	bar := el("div", Attr{"class", "canvas-toolbar"}, Attr{"data-instance-id", selected})
	for _, a := range []string{ActionDuplicate, ActionSettings, ActionDelete} {
		bar.add(el("button", Attr{"type", "button"}, Attr{"data-action", a}, Attr{"title", a}))
	}
	return bar
}

// styleDecls turns a component style map into declarations in key order.
func styleDecls(style map[string]string) []Decl {
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Decl, 0, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(style[k])
		if v == "" {
			continue
		}
		out = append(out, Decl{Prop: cssProp(k), Value: v})
	}
	return out
}

func px(v float64) string {
	return strconv.FormatFloat(canvas.Round(v, 2), 'f', -1, 64) + "px"
}
