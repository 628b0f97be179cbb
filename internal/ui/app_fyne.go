//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"buildify/internal/builder"
	"buildify/internal/canvas"
	"buildify/internal/catalog"
	"buildify/internal/crash"
	applog "buildify/internal/log"
	"buildify/internal/render"
)

const (
	saveTimeout = 30 * time.Second
	// snap distance in screen pixels
	snapThreshold = 6
)

// Run opens the desktop previewer for an opened shell. It blocks until the
// window is closed.
func Run(opts Options) error {
	if opts.Shell == nil {
		return errors.New("ui: no builder shell")
	}
	defer crash.Recover(opts.Workspace)

	sh := opts.Shell
	p, ok := sh.Project()
	if !ok {
		return builder.ErrNoProject
	}
	l := applog.WithProject(applog.WithComponent("ui"), p.ID)
	l.Info("starting previewer")

	title := opts.Title
	if title == "" {
		title = "Buildify - " + p.Name
	}
	fyneApp := app.NewWithID("buildify")
	w := fyneApp.NewWindow(title)
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	view := NewCanvasView(sh)

	refreshStatus := func() {
		msg := fmt.Sprintf("%s  |  %s  |  %d component(s)", sh.Mode(), sh.Device(), len(sh.Snapshot().Components))
		if sh.Dirty() {
			msg += "  |  unsaved changes"
		}
		if sh.Busy() {
			msg += "  |  saving..."
		}
		status.SetText(msg)
	}

	// Model change callbacks run under the shell's model lock; hand them to a
	// goroutine that forwards a coalesced redraw to the UI thread.
	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)
	unsubscribe := sh.OnChange(func(canvas.Change) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-wake:
				fyne.Do(func() {
					view.Refresh()
					refreshStatus()
				})
			}
		}
	}()

	// Palette
	pal := sh.Palette()
	items := pal.Items()
	paletteList := widget.NewList(
		func() int { return len(items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < len(items) {
				o.(*widget.Label).SetText(items[id].DisplayName + " (" + items[id].Category + ")")
			}
		},
	)
	emptyLabel := widget.NewLabel("")
	reloadPalette := func() {
		items = pal.Items()
		emptyLabel.SetText(pal.EmptyMessage())
		if len(items) == 0 {
			emptyLabel.Show()
		} else {
			emptyLabel.Hide()
		}
		paletteList.UnselectAll()
		paletteList.Refresh()
	}
	paletteList.OnSelected = func(id widget.ListItemID) {
		if id >= len(items) {
			return
		}
		def := items[id]
		paletteList.UnselectAll()
		if err := view.AddAtCenter(def); err != nil {
			l.Warn("add from palette failed", slog.String("type", def.TypeID), slog.Any("err", err))
			dialog.ShowError(err, w)
		}
	}
	search := widget.NewEntry()
	search.SetPlaceHolder("Search components")
	search.OnChanged = func(q string) {
		pal.SetSearch(q)
		reloadPalette()
	}
	categories := widget.NewSelect(pal.Categories(), func(c string) {
		pal.SetCategory(c)
		reloadPalette()
	})
	categories.SetSelected(catalog.CategoryAll)
	reloadPalette()
	left := container.NewBorder(
		container.NewVBox(widget.NewLabel("Components"), search, categories, emptyLabel),
		nil, nil, nil, paletteList,
	)

	// Toolbar
	var btnPreview *widget.Button
	syncMode := func() {
		if sh.PaletteVisible() {
			btnPreview.SetText("Preview")
			left.Show()
		} else {
			btnPreview.SetText("Edit")
			left.Hide()
		}
		view.Refresh()
		refreshStatus()
	}
	btnPreview = widget.NewButton("Preview", func() {
		sh.TogglePreview()
		syncMode()
	})
	devices := widget.NewSelect([]string{string(builder.DeviceDesktop), string(builder.DeviceTablet), string(builder.DeviceMobile)}, func(s string) {
		d, _ := builder.ParseDevice(s)
		sh.SetDevice(d)
		view.Refresh()
		refreshStatus()
	})
	devices.SetSelected(string(sh.Device()))

	btnDuplicate := widget.NewButton("Duplicate", func() { sh.Dispatch(render.Event{Kind: render.Duplicate}) })
	btnDelete := widget.NewButton("Delete", func() { sh.Dispatch(render.Event{Kind: render.Delete}) })

	btnSave := widget.NewButton("Save", func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			err := sh.Save(ctx)
			fyne.Do(func() {
				refreshStatus()
				if err != nil && !errors.Is(err, builder.ErrBusy) {
					dialog.ShowError(err, w)
				}
			})
		}()
		refreshStatus()
	})
	btnPublish := widget.NewButton(sh.ConfirmLabel(), func() {
		dialog.ShowConfirm(sh.ConfirmLabel(), fmt.Sprintf("Publish %q with the current canvas?", p.Name), func(ok bool) {
			if !ok {
				return
			}
			ps := sh.PublishSettings()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
				defer cancel()
				url, err := sh.Publish(ctx, ps)
				fyne.Do(func() {
					refreshStatus()
					if err != nil {
						dialog.ShowError(err, w)
						return
					}
					dialog.ShowInformation("Project published", url, w)
				})
			}()
		}, w)
	})
	if !sh.Role().CanEdit() {
		btnSave.Disable()
		btnPublish.Disable()
	}
	toolbar := container.NewHBox(btnPreview, devices, widget.NewSeparator(), btnDuplicate, btnDelete, widget.NewSeparator(), btnSave, btnPublish)

	w.SetContent(container.NewBorder(toolbar, status, left, nil, container.NewStack(view)))
	w.SetCloseIntercept(func() {
		prefs.SetInt("window.width", int(w.Canvas().Size().Width))
		prefs.SetInt("window.height", int(w.Canvas().Size().Height))
		if sh.Dirty() {
			dialog.ShowConfirm("Unsaved changes", "Close without saving?", func(ok bool) {
				if ok {
					w.Close()
				}
			}, w)
			return
		}
		w.Close()
	})
	syncMode()
	w.ShowAndRun()
	l.Info("previewer closed")
	return nil
}

var (
	workspaceBG = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	frameFill   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	frameStroke = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	selectColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
)

// CanvasView draws the shell's canvas at the current device width. In editing
// mode a tap selects the component under the pointer and a drag moves it.
type CanvasView struct {
	widget.BaseWidget
	shell *builder.Shell

	vp Viewport
	// drag state
	dragID     string
	dragOrigin canvas.Point
	dragDX     float32
	dragDY     float32
}

func NewCanvasView(sh *builder.Shell) *CanvasView {
	v := &CanvasView{shell: sh, vp: Viewport{Scale: 1}}
	v.ExtendBaseWidget(v)
	return v
}

// AddAtCenter places a new component of def in the middle of the visible frame.
func (v *CanvasView) AddAtCenter(def catalog.WidgetDefinition) error {
	if !v.shell.PaletteVisible() {
		return nil
	}
	at := canvas.Point{X: float64(v.vp.FrameW / 2), Y: 120}
	return v.shell.Do(func(m *canvas.Model) error {
		_, err := m.Add(def.TypeID, at)
		return err
	})
}

func (v *CanvasView) editing() bool { return v.shell.Mode() == builder.ModeEditing }

// Tapped selects the top-most component under the pointer or clears the selection.
func (v *CanvasView) Tapped(e *fyne.PointEvent) {
	if !v.editing() {
		return
	}
	pt := v.vp.ToCanvas(e.Position.X, e.Position.Y)
	v.shell.Dispatch(render.Event{Kind: render.Click, Point: pt, HasPoint: true})
}

// Dragged moves the component the drag started on, snapping it to the
// edges and centers of its neighbours.
func (v *CanvasView) Dragged(e *fyne.DragEvent) {
	if !v.editing() {
		return
	}
	if v.dragID == "" {
		start := v.vp.ToCanvas(e.Position.X-e.Dragged.DX, e.Position.Y-e.Dragged.DY)
		id, ok := render.HitTest(v.shell.Snapshot(), start)
		if !ok {
			return
		}
		_ = v.shell.Do(func(m *canvas.Model) error {
			c, found := m.Component(id)
			if !found {
				return canvas.ErrNotFound
			}
			m.Select(id)
			v.dragID, v.dragOrigin = id, c.Position
			return nil
		})
		v.dragDX, v.dragDY = 0, 0
		if v.dragID == "" {
			return
		}
	}
	v.dragDX += e.Dragged.DX
	v.dragDY += e.Dragged.DY
	dx, dy := v.vp.Delta(v.dragDX, v.dragDY)
	to := canvas.Point{X: v.dragOrigin.X + dx, Y: v.dragOrigin.Y + dy}
	id := v.dragID
	_ = v.shell.Do(func(m *canvas.Model) error {
		_, err := m.SnapMove(id, to, canvas.SnapOptions{Threshold: float64(snapThreshold / v.vp.Scale), Edges: true, Centers: true})
		return err
	})
}

func (v *CanvasView) DragEnd() { v.dragID = "" }

// MinSize keeps a phone frame readable.
func (v *CanvasView) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

func (v *CanvasView) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(workspaceBG)
	frame := fcanvas.NewRectangle(frameFill)
	frame.StrokeColor = frameStroke
	frame.StrokeWidth = 1
	r := &canvasViewRenderer{v: v, bg: bg, frame: frame}
	r.objects = []fyne.CanvasObject{bg, frame}
	return r
}

// canvasViewRenderer rebuilds the component objects on every layout; the
// component set changes with each edit.
type canvasViewRenderer struct {
	v         *CanvasView
	bg, frame *fcanvas.Rectangle
	objects   []fyne.CanvasObject
}

func (r *canvasViewRenderer) Destroy()                     {}
func (r *canvasViewRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *canvasViewRenderer) MinSize() fyne.Size           { return r.v.MinSize() }
func (r *canvasViewRenderer) Refresh()                     { r.Layout(r.v.Size()); fcanvas.Refresh(r.v) }

func (r *canvasViewRenderer) Layout(size fyne.Size) {
	st := r.v.shell.Snapshot()
	opts := r.v.shell.RenderOptions()
	vp := Fit(st, opts.DeviceWidth, size.Width, size.Height)
	r.v.vp = vp

	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(size)
	r.frame.Move(fyne.NewPos(vp.OriginX, vp.OriginY))
	r.frame.Resize(fyne.NewSize(vp.FrameW*vp.Scale, vp.FrameH*vp.Scale))

	objs := []fyne.CanvasObject{r.bg, r.frame}
	for _, t := range vp.Tiles(st, opts.ReadOnly) {
		rect := fcanvas.NewRectangle(t.Look.Fill)
		rect.StrokeColor = t.Look.Stroke
		rect.StrokeWidth = 1
		if t.Selected {
			rect.StrokeColor = selectColor
			rect.StrokeWidth = 2
		}
		rect.Move(fyne.NewPos(t.X, t.Y))
		rect.Resize(fyne.NewSize(t.W, t.H))
		objs = append(objs, rect)

		if t.Look.Label == "" {
			continue
		}
		txt := fcanvas.NewText(t.Look.Label, t.Look.Text)
		txt.TextSize = float32(t.Look.FontSize) * vp.Scale
		txt.Move(fyne.NewPos(t.X+4*vp.Scale, t.Y+4*vp.Scale))
		objs = append(objs, txt)
	}
	r.objects = objs
}
