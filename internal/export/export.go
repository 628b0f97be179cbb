/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes wireframe thumbnails of a canvas as SVG, PNG or PDF.
// Each placed component becomes a filled, outlined box with its label.
package export

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"buildify/internal/canvas"
)

// Options control the thumbnail frame.
type Options struct {
	// DeviceWidth fixes the frame width; 0 fits the content.
	DeviceWidth int
	// Padding is added right of and below the content. Default 20.
	Padding float64
	// Scale multiplies the PNG pixel size. Default 1.
	Scale float64
	// Title is stored in PDF metadata.
	Title    string
	NoLabels bool
	ShowGrid bool
}

const (
	minFrameW = 320
	minFrameH = 240
	gridStep  = 20
)

func (o Options) withDefaults() Options {
	if o.Padding <= 0 {
		o.Padding = 20
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	return o
}

// frame returns the page size that holds every component.
func frame(s canvas.State, o Options) (w, h float64) {
	b := s.Bounds()
	w = math.Max(b.X+b.W+o.Padding, minFrameW)
	h = math.Max(b.Y+b.H+o.Padding, minFrameH)
	if o.DeviceWidth > 0 {
		w = float64(o.DeviceWidth)
	}
	return math.Ceil(w), math.Ceil(h)
}

type rgb struct{ R, G, B uint8 }

var (
	white     = rgb{255, 255, 255}
	outline   = rgb{148, 163, 184}
	ink       = rgb{31, 41, 55}
	gridColor = rgb{226, 232, 240}
)

// parseColor understands #rgb and #rrggbb plus a few names; anything else yields def.
func parseColor(s string, def rgb) rgb {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "white":
		return white
	case "black":
		return rgb{}
	}
	if !strings.HasPrefix(s, "#") {
		return def
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return def
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return def
	}
	return rgb{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

func (c rgb) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// box is the resolved drawing of one component.
type box struct {
	id           string
	x, y, w, h   float64
	fill, stroke rgb
	text         rgb
	label        string
	fontSize     float64
}

func boxes(s canvas.State, o Options) []box {
	out := make([]box, 0, len(s.Components))
	for _, c := range s.Components {
		b := box{
			id:       c.InstanceID,
			x:        c.Position.X,
			y:        c.Position.Y,
			w:        c.Size.Width,
			h:        c.Size.Height,
			fill:     parseColor(c.Style["backgroundColor"], white),
			stroke:   parseColor(c.Style["borderColor"], outline),
			text:     parseColor(c.Style["color"], ink),
			fontSize: fontSize(c.Style["fontSize"]),
		}
		if !o.NoLabels {
			b.label = label(c)
		}
		out = append(out, b)
	}
	return out
}

// label prefers the component's own text; media types show their name.
func label(c canvas.PlacedComponent) string {
	switch c.TypeID {
	case "image", "video":
		return c.DisplayName
	}
	if t := strings.TrimSpace(c.Content); t != "" {
		return t
	}
	return c.DisplayName
}

func fontSize(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 12
	}
	return f
}

// Palette is the resolved look of one component as the exporters draw it.
type Palette struct {
	Fill, Stroke, Text color.RGBA
	Label              string
	FontSize           float64
}

// Look resolves the colors, caption and font size of c.
func Look(c canvas.PlacedComponent) Palette {
	b := boxes(canvas.State{Components: []canvas.PlacedComponent{c}}, Options{})[0]
	return Palette{Fill: toRGBA(b.fill), Stroke: toRGBA(b.stroke), Text: toRGBA(b.text), Label: b.label, FontSize: b.fontSize}
}

// WriteFile exports s to path, choosing the format by extension.
func WriteFile(path string, s canvas.State, o Options) error {
	ext := strings.ToLower(filepath.Ext(path))
	var write func(*os.File) error
	switch ext {
	case ".svg":
		write = func(f *os.File) error { return SVG(f, s, o) }
	case ".png":
		write = func(f *os.File) error { return PNG(f, s, o) }
	case ".pdf":
		write = func(f *os.File) error { return PDF(f, s, o) }
	default:
		return fmt.Errorf("unsupported export format %q", ext)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", ext, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", ext, err)
	}
	return nil
}

// ContentType returns the MIME type of a supported format name (svg, png, pdf).
func ContentType(format string) (string, bool) {
	switch strings.ToLower(format) {
	case "svg":
		return "image/svg+xml", true
	case "png":
		return "image/png", true
	case "pdf":
		return "application/pdf", true
	}
	return "", false
}
