/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package builder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"buildify/internal/canvas"
	"buildify/internal/catalog"
	"buildify/internal/dragdrop"
	applog "buildify/internal/log"
	"buildify/internal/project"
	"buildify/internal/storage"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

type note struct {
	kind           project.NotificationType
	title, message string
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(_ context.Context, kind project.NotificationType, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{kind, title, message})
}

func (r *recorder) last(t *testing.T) note {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		t.Fatal("no notification recorded")
	}
	return r.notes[len(r.notes)-1]
}

type tracked struct {
	mu    sync.Mutex
	names []string
}

func (tr *tracked) Track(_, name string, _ map[string]any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.names = append(tr.names, name)
}

func (tr *tracked) has(name string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, n := range tr.names {
		if n == name {
			return true
		}
	}
	return false
}

// flakyStore fails the first fails updates with err and can hold updates
// until release is closed.
type flakyStore struct {
	project.Store
	fails   int
	err     error
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *flakyStore) Update(ctx context.Context, id string, p project.Patch) (project.Project, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if n <= f.fails {
		return project.Project{}, f.err
	}
	return f.Store.Update(ctx, id, p)
}

func (f *flakyStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	html []byte
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, p project.Project, html []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.html = html
	return "https://" + p.Slug() + ".buildify.app", nil
}

type fixture struct {
	db      *storage.Store
	store   *flakyStore
	notes   *recorder
	tracker *tracked
	pub     *fakePublisher
	proj    project.Project
}

func noSleep(context.Context, time.Duration) error { return nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetClock(func() time.Time { return fixedNow.Add(-time.Hour) })
	p, err := db.Create(context.Background(), "owner-1", project.Patch{
		Name:     project.Ptr("My Shop"),
		Settings: map[string]json.RawMessage{"theme": json.RawMessage(`"dark"`)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return &fixture{db: db, store: &flakyStore{Store: db}, notes: &recorder{}, tracker: &tracked{}, pub: &fakePublisher{}, proj: p}
}

func (f *fixture) shell(userID string) *Shell {
	return New(Deps{
		Store:         f.store,
		Collaborators: f.db,
		Profiles:      f.db,
		Revisions:     f.db,
		Publisher:     f.pub,
		Notifier:      f.notes,
		Tracker:       f.tracker,
		Retry:         RetryPolicy{Attempts: 3, Timeout: time.Second, sleep: noSleep},
		Log:           applog.Discard(),
		Now:           func() time.Time { return fixedNow },
	}, userID)
}

func (f *fixture) open(t *testing.T) *Shell {
	t.Helper()
	s := f.shell("owner-1")
	if _, err := s.Open(context.Background(), f.proj.ID); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func addButton(t *testing.T, s *Shell) string {
	t.Helper()
	var id string
	err := s.Do(func(m *canvas.Model) error {
		var err error
		id, err = m.Add("button", canvas.Point{X: 40, Y: 60})
		return err
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return id
}

func dragEvent(t *testing.T, s *Shell) dragdrop.Event {
	t.Helper()
	dt, err := s.Palette().DragStart("button")
	if err != nil {
		t.Fatalf("drag start: %v", err)
	}
	return dragdrop.Event{Data: dt, ClientX: 150, ClientY: 120, Target: canvas.Rect{X: 50, Y: 20}}
}

func TestModeAndDevice(t *testing.T) {
	s := newFixture(t).open(t)
	if s.Mode() != ModeEditing || s.Device() != DeviceDesktop || !s.PaletteVisible() {
		t.Fatalf("initial state: mode=%s device=%s", s.Mode(), s.Device())
	}
	addButton(t, s)
	if got := s.TogglePreview(); got != ModePreviewing {
		t.Fatalf("toggle = %s", got)
	}
	if s.PaletteVisible() {
		t.Fatal("palette must be hidden while previewing")
	}
	s.SetDevice(DeviceMobile)
	if o := s.RenderOptions(); !o.ReadOnly || o.DeviceWidth != 375 {
		t.Fatalf("render options = %+v", o)
	}
	if _, ok := s.Drop(dragEvent(t, s)); ok {
		t.Fatal("drops are ignored while previewing")
	}
	s.TogglePreview()
	if _, ok := s.Drop(dragEvent(t, s)); !ok {
		t.Fatal("drop while editing must place a component")
	}
	if s.Mode() != ModeEditing || s.Snapshot().Components == nil || len(s.Snapshot().Components) != 2 {
		t.Fatal("toggling preview must keep the canvas")
	}
}

func TestParseDevice(t *testing.T) {
	cases := map[string]struct {
		d     Device
		ok    bool
		width int
	}{
		"desktop": {DeviceDesktop, true, 0},
		" Tablet": {DeviceTablet, true, 768},
		"MOBILE":  {DeviceMobile, true, 375},
		"watch":   {DeviceDesktop, false, 0},
	}
	for in, want := range cases {
		d, ok := ParseDevice(in)
		if d != want.d || ok != want.ok || d.Width() != want.width {
			t.Errorf("ParseDevice(%q) = %s,%v width %d", in, d, ok, d.Width())
		}
	}
}

func TestOpenMissingProject(t *testing.T) {
	f := newFixture(t)
	s := f.shell("owner-1")
	_, err := s.Open(context.Background(), "missing")
	if !errors.Is(err, project.ErrProjectNotFound) {
		t.Fatalf("err = %v", err)
	}
	if n := f.notes.last(t); n.title != "Project not found" || n.kind != project.NotifyError {
		t.Fatalf("note = %+v", n)
	}
	if _, ok := s.Project(); ok {
		t.Fatal("shell must stay without project")
	}
}

func TestOpenChecksAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.shell("user-2")
	if _, err := other.Open(ctx, f.proj.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger open err = %v", err)
	}
	if _, err := f.db.AddCollaborator(ctx, project.Collaborator{ProjectID: f.proj.ID, UserID: "user-2", Role: project.RoleViewer}); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Open(ctx, f.proj.ID); err != nil {
		t.Fatalf("viewer open: %v", err)
	}
	if other.Role() != project.RoleViewer {
		t.Fatalf("role = %s", other.Role())
	}
	if err := other.Save(ctx); !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewer save err = %v", err)
	}
	if other.Busy() {
		t.Fatal("busy flag leaked")
	}
}

func TestOpenReportsSkippedComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := canvas.NewModel(catalog.Default())
	if _, err := m.Add("button", canvas.Point{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	st := m.Serialize()
	ghost := st.Components[0].Clone()
	ghost.InstanceID, ghost.TypeID = "ghost-1", "ghost"
	st.Components = append(st.Components, ghost)
	data, err := canvas.Encode(st)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.Update(ctx, f.proj.ID, project.Patch{Settings: map[string]json.RawMessage{project.SettingsCanvas: data}}); err != nil {
		t.Fatal(err)
	}
	s := f.shell("owner-1")
	warns, err := s.Open(ctx, f.proj.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 1 || warns[0].InstanceID != "ghost-1" {
		t.Fatalf("warnings = %+v", warns)
	}
	if got := len(s.Snapshot().Components); got != 1 {
		t.Fatalf("components = %d", got)
	}
	if n := f.notes.last(t); n.kind != project.NotifyWarning || !strings.Contains(n.title, "1 component") {
		t.Fatalf("note = %+v", n)
	}
	if s.Dirty() {
		t.Fatal("freshly opened project must not be dirty")
	}
	if !f.tracker.has(EventEditorOpened) {
		t.Fatal("open not tracked")
	}
}

func TestOpenUnreadableCanvasStartsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad := map[string]json.RawMessage{project.SettingsCanvas: json.RawMessage(`{"components":5}`)}
	if _, err := f.db.Update(ctx, f.proj.ID, project.Patch{Settings: bad}); err != nil {
		t.Fatal(err)
	}
	s := f.shell("owner-1")
	if _, err := s.Open(ctx, f.proj.ID); err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(s.Snapshot().Components) != 0 {
		t.Fatal("expected empty canvas")
	}
	if n := f.notes.last(t); n.title != "Canvas could not be restored" {
		t.Fatalf("note = %+v", n)
	}
}

func TestSaveMergesCanvasIntoSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	addButton(t, s)
	if !s.Dirty() {
		t.Fatal("expected dirty after add")
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := f.db.Get(ctx, f.proj.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Settings["theme"]) != `"dark"` {
		t.Fatalf("other settings lost: %v", got.Settings)
	}
	st, _, err := canvas.Decode(got.Canvas())
	if err != nil || len(st.Components) != 1 || st.Components[0].TypeID != "button" {
		t.Fatalf("stored canvas = %+v err %v", st, err)
	}
	if !got.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("updated_at = %v", got.UpdatedAt)
	}
	rev, _, err := f.db.LatestRevision(ctx, f.proj.ID)
	if err != nil || string(rev) != string(got.Canvas()) {
		t.Fatalf("revision = %s err %v", rev, err)
	}
	if n := f.notes.last(t); n.title != "Project saved" || n.message != "Your changes have been saved successfully." {
		t.Fatalf("note = %+v", n)
	}
	if s.Dirty() || !f.tracker.has(EventCanvasSaved) {
		t.Fatal("save must clear dirty and be tracked")
	}
}

func TestSaveRejectsConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	f.store.entered = make(chan struct{}, 1)
	f.store.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Save(ctx) }()
	<-f.store.entered
	if !s.Busy() {
		t.Fatal("expected busy during save")
	}
	if err := s.Save(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("second save err = %v", err)
	}
	if _, err := s.Publish(ctx, DefaultPublishSettings()); !errors.Is(err, ErrBusy) {
		t.Fatalf("publish during save err = %v", err)
	}
	close(f.store.release)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if s.Busy() || f.store.count() != 1 {
		t.Fatalf("busy=%v calls=%d", s.Busy(), f.store.count())
	}
}

func TestSaveRetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	f.store.fails = 2
	f.store.err = project.Fail("update", errors.New("connection reset"))
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if f.store.count() != 3 {
		t.Fatalf("calls = %d", f.store.count())
	}
}

func TestSaveFailureKeepsCanvas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	addButton(t, s)
	f.store.fails = 100
	f.store.err = project.Fail("update", errors.New("connection reset"))
	err := s.Save(ctx)
	var pe *project.PersistenceError
	if !errors.As(err, &pe) || !project.Retriable(err) {
		t.Fatalf("err = %v", err)
	}
	if f.store.count() != 3 {
		t.Fatalf("calls = %d", f.store.count())
	}
	if len(s.Snapshot().Components) != 1 || !s.Dirty() {
		t.Fatal("failed save must keep the unsaved canvas")
	}
	if n := f.notes.last(t); n.title != "Failed to save" || n.kind != project.NotifyError {
		t.Fatalf("note = %+v", n)
	}
	got, _ := f.db.Get(ctx, f.proj.ID)
	if got.Canvas() != nil {
		t.Fatal("nothing should be stored")
	}
}

func TestSaveMissingProjectIsNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	if err := f.db.Delete(ctx, f.proj.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); !errors.Is(err, project.ErrProjectNotFound) {
		t.Fatalf("err = %v", err)
	}
	if f.store.count() != 1 {
		t.Fatalf("calls = %d", f.store.count())
	}
}

func TestSaveWithoutProject(t *testing.T) {
	s := newFixture(t).shell("owner-1")
	if err := s.Save(context.Background()); !errors.Is(err, ErrNoProject) {
		t.Fatalf("err = %v", err)
	}
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	addButton(t, s)
	if s.ConfirmLabel() != "Publish Project" {
		t.Fatalf("label = %q", s.ConfirmLabel())
	}
	ps := DefaultPublishSettings()
	ps.MetaDescription = "Best shop in town"
	url, err := s.Publish(ctx, ps)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if url != "https://my-shop.buildify.app" {
		t.Fatalf("url = %q", url)
	}
	html := string(f.pub.html)
	if !strings.Contains(html, "Best shop in town") || !strings.Contains(html, "<title>My Shop</title>") {
		t.Fatalf("page = %s", html)
	}
	got, _ := f.db.Get(ctx, f.proj.ID)
	if got.Status != project.StatusPublished {
		t.Fatalf("status = %s", got.Status)
	}
	if s.ConfirmLabel() != "Update Project" {
		t.Fatalf("label after publish = %q", s.ConfirmLabel())
	}
	if stored := s.PublishSettings(); stored != ps {
		t.Fatalf("stored settings = %+v", stored)
	}
	if n := f.notes.last(t); n.title != "Project published" {
		t.Fatalf("note = %+v", n)
	}
	if !f.tracker.has(EventProjectPublished) || s.Dirty() {
		t.Fatal("publish must be tracked and count as saved")
	}
}

func TestPublishUploadFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	f.pub.err = errors.New("bucket unavailable")
	if _, err := s.Publish(ctx, DefaultPublishSettings()); err == nil {
		t.Fatal("expected error")
	}
	got, _ := f.db.Get(ctx, f.proj.ID)
	if got.Status != project.StatusDraft {
		t.Fatalf("status = %s", got.Status)
	}
	if n := f.notes.last(t); n.title != "Failed to publish" {
		t.Fatalf("note = %+v", n)
	}
}

func TestPublishCustomDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.open(t)
	url, err := s.Publish(ctx, PublishSettings{CustomDomain: " Shop.Example.com "})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://shop.example.com" {
		t.Fatalf("url = %q", url)
	}
	for _, bad := range []string{"not a domain", "localhost", "https://x.com"} {
		if _, err := s.Publish(ctx, PublishSettings{CustomDomain: bad}); !errors.Is(err, project.ErrInvalid) {
			t.Errorf("%q: err = %v", bad, err)
		}
	}
}

func TestPublishSettingsDefaults(t *testing.T) {
	ps := SettingsOf(project.Project{})
	if !ps.Public || !ps.Analytics || ps.Comments || ps.CustomDomain != "" {
		t.Fatalf("defaults = %+v", ps)
	}
	p := project.Project{Settings: map[string]json.RawMessage{project.SettingsPublish: json.RawMessage(`{"comments":true}`)}}
	if ps := SettingsOf(p); !ps.Comments || !ps.Public {
		t.Fatalf("merged = %+v", ps)
	}
	if got := ProjectURL("My  Cool App"); got != "https://my-cool-app.buildify.app" {
		t.Fatalf("url = %q", got)
	}
	if ConfirmLabel(project.StatusDraft) != "Publish Project" || ConfirmLabel(project.StatusPublished) != "Update Project" {
		t.Fatal("confirm labels")
	}
}
