/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buildify/internal/canvas"
)

func sampleState() canvas.State {
	return canvas.State{Components: []canvas.PlacedComponent{
		{
			InstanceID: "button-1", TypeID: "button", DisplayName: "Button",
			Position: canvas.Point{X: 40, Y: 80}, Size: canvas.Size{Width: 120, Height: 40},
			Content: "Buy <now> & save",
			Style:   map[string]string{"backgroundColor": "#3b82f6", "color": "#fff", "fontSize": "14px"},
		},
		{
			InstanceID: "image-1", TypeID: "image", DisplayName: "Image",
			Position: canvas.Point{X: 200, Y: 300}, Size: canvas.Size{Width: 200, Height: 150},
			Content: "https://example.com/a.png",
			Style:   map[string]string{},
		},
	}}
}

func TestFrameFitsContent(t *testing.T) {
	o := Options{}.withDefaults()
	w, h := frame(sampleState(), o)
	if w != 420 || h != 470 {
		t.Fatalf("frame = %vx%v, want 420x470", w, h)
	}
	w, h = frame(canvas.State{}, o)
	if w != minFrameW || h != minFrameH {
		t.Fatalf("empty frame = %vx%v", w, h)
	}
	w, _ = frame(sampleState(), Options{DeviceWidth: 375}.withDefaults())
	if w != 375 {
		t.Fatalf("device width ignored: %v", w)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want rgb
	}{
		{"#3b82f6", rgb{0x3b, 0x82, 0xf6}},
		{"#fff", white},
		{"black", rgb{}},
		{"transparent", outline},
		{"#12", outline},
		{"#zzzzzz", outline},
	}
	for _, tc := range cases {
		if got := parseColor(tc.in, outline); got != tc.want {
			t.Fatalf("parseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLabels(t *testing.T) {
	bs := boxes(sampleState(), Options{})
	if bs[0].label != "Buy <now> & save" || bs[1].label != "Image" {
		t.Fatalf("labels = %q, %q", bs[0].label, bs[1].label)
	}
	if bs[0].fontSize != 14 || bs[1].fontSize != 12 {
		t.Fatalf("font sizes = %v, %v", bs[0].fontSize, bs[1].fontSize)
	}
	if bs := boxes(sampleState(), Options{NoLabels: true}); bs[0].label != "" {
		t.Fatalf("NoLabels kept %q", bs[0].label)
	}
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, sampleState(), Options{ShowGrid: true}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`viewBox="0 0 420 470"`,
		`<g data-instance-id="button-1">`,
		`<rect x="40" y="80" width="120" height="40" rx="4" ry="4" fill="#3b82f6"`,
		"Buy &lt;now&gt; &amp; save",
		`fill="url(#grid)"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q:\n%s", want, out)
		}
	}
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := PNG(&buf, sampleState(), Options{Scale: 2}); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 840 || b.Dy() != 940 {
		t.Fatalf("size = %v", b)
	}
	// bottom-right inside the button, clear of the label
	got := color.RGBAModel.Convert(img.At(2*158, 2*118)).(color.RGBA)
	if got != (color.RGBA{0x3b, 0x82, 0xf6, 255}) {
		t.Fatalf("button fill = %v", got)
	}
	if got := color.RGBAModel.Convert(img.At(5, 5)).(color.RGBA); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background = %v", got)
	}
}

func TestFitText(t *testing.T) {
	if got := fitText("Hello world", 35, 7); got != "Hello" {
		t.Fatalf("fitText = %q", got)
	}
	if got := fitText("Hi", 100, 7); got != "Hi" {
		t.Fatalf("fitText short = %q", got)
	}
	if got := fitText("Hi", 3, 7); got != "" {
		t.Fatalf("fitText narrow = %q", got)
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, sampleState(), Options{Title: "Landing"}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:8])
	}
}

func TestWriteFileByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.svg", "b.png", "nested/c.pdf"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(path, sampleState(), Options{}); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		st, err := os.Stat(path)
		if err != nil || st.Size() == 0 {
			t.Fatalf("%s: empty or missing (%v)", name, err)
		}
	}
	if err := WriteFile(filepath.Join(dir, "d.gif"), sampleState(), Options{}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if ct, ok := ContentType("PNG"); !ok || ct != "image/png" {
		t.Fatalf("ContentType = %q %v", ct, ok)
	}
}

func TestLook(t *testing.T) {
	s := sampleState()
	p := Look(s.Components[0])
	if p.Fill != (color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}) {
		t.Fatalf("fill: %+v", p.Fill)
	}
	if p.Text != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("text: %+v", p.Text)
	}
	if p.Label != "Buy <now> & save" || p.FontSize != 14 {
		t.Fatalf("label/font: %q %v", p.Label, p.FontSize)
	}
	if img := Look(s.Components[1]); img.Label != "Image" || img.Fill != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("image look: %+v", img)
	}
}
