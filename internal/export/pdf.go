/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"buildify/internal/canvas"
)

// PDF writes s as a single-page vector document. One canvas pixel maps to
// one point; built-in Helvetica keeps text vector without embedding.
func PDF(w io.Writer, s canvas.State, o Options) error {
	o = o.withDefaults()
	fw, fh := frame(s, o)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: fw, Ht: fh},
	})
	title := o.Title
	if title == "" {
		title = "Canvas"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("Buildify", false)
	pdf.SetCreator("buildify export", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: fw, Ht: fh})
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if o.ShowGrid {
		setFillColor(pdf, gridColor)
		for y := 0.0; y < fh; y += gridStep {
			for x := 0.0; x < fw; x += gridStep {
				pdf.Rect(x, y, 1, 1, "F")
			}
		}
	}

	pdf.SetLineWidth(1)
	for _, b := range boxes(s, o) {
		setFillColor(pdf, b.fill)
		setDrawColor(pdf, b.stroke)
		pdf.Rect(b.x, b.y, b.w, b.h, "FD")
		if b.label == "" {
			continue
		}
		pdf.SetFont("Helvetica", "", b.fontSize)
		pdf.SetTextColor(int(b.text.R), int(b.text.G), int(b.text.B))
		pdf.ClipRect(b.x, b.y, b.w, b.h, false)
		pdf.Text(b.x+6, b.y+6+b.fontSize, tr(b.label))
		pdf.ClipEnd()
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c rgb) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c rgb) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
