/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"buildify/internal/canvas"
	"buildify/internal/catalog"
	"buildify/internal/dragdrop"
	applog "buildify/internal/log"
	"buildify/internal/palette"
	"buildify/internal/project"
	"buildify/internal/publish"
	"buildify/internal/render"
)

var (
	// ErrBusy is returned while a save or publish is already in flight.
	ErrBusy = errors.New("save or publish already in progress")
	// ErrNoProject is returned by operations that need an open project.
	ErrNoProject = errors.New("no project open")
	// ErrForbidden means the user may not open or change the project.
	ErrForbidden = errors.New("access denied")
)

// Deps are the collaborators of a Shell. Only Store is required.
type Deps struct {
	Store         project.Store
	Collaborators project.Collaborators
	Profiles      project.Profiles
	Revisions     project.Revisions
	Publisher     publish.Publisher
	Notifier      Notifier
	Tracker       Tracker
	Catalog       *catalog.Catalog
	Retry         RetryPolicy
	Log           *slog.Logger
	Now           func() time.Time
}

// Shell is one user's editor session over one project. Model access goes
// through Do so that a shell can be shared between goroutines.
type Shell struct {
	deps   Deps
	userID string
	log    *slog.Logger

	modelMu sync.Mutex
	model   *canvas.Model
	drop    *dragdrop.DropTarget
	gen     uint64
	saved   uint64

	mu      sync.Mutex
	mode    Mode
	device  Device
	proj    *project.Project
	role    project.Role
	palette *palette.Palette

	busy atomic.Bool
}

// New builds a shell for userID with an empty canvas and no project.
func New(deps Deps, userID string) *Shell {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Log == nil {
		deps.Log = applog.WithComponent("builder")
	}
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{Log: deps.Log}
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Retry.Attempts == 0 {
		deps.Retry = DefaultRetry()
	}
	s := &Shell{
		deps:    deps,
		userID:  userID,
		log:     deps.Log,
		model:   canvas.NewModel(deps.Catalog),
		mode:    ModeEditing,
		device:  DeviceDesktop,
		palette: palette.New(deps.Catalog),
	}
	s.drop = dragdrop.NewDropTarget(s.model, deps.Log)
	s.model.OnChange(func(c canvas.Change) {
		if c.Kind != canvas.ChangeSelect {
			s.gen++
		}
	})
	return s
}

// UserID is the session owner.
func (s *Shell) UserID() string { return s.userID }

func (s *Shell) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// TogglePreview flips between editing and previewing. The canvas is not
// touched.
func (s *Shell) TogglePreview() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeEditing {
		s.mode = ModePreviewing
	} else {
		s.mode = ModeEditing
	}
	return s.mode
}

func (s *Shell) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == ModePreviewing {
		s.mode = ModePreviewing
		return
	}
	s.mode = ModeEditing
}

func (s *Shell) Device() Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *Shell) SetDevice(d Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = d
}

// PaletteVisible reports whether the palette and the properties panel are
// shown; both are hidden while previewing.
func (s *Shell) PaletteVisible() bool { return s.Mode() == ModeEditing }

// Palette returns the shell's palette view state.
func (s *Shell) Palette() *palette.Palette { return s.palette }

// RenderOptions are the options the canvas should currently render with.
func (s *Shell) RenderOptions() render.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render.Options{ReadOnly: s.mode == ModePreviewing, DeviceWidth: s.device.Width()}
}

// Do runs fn with exclusive access to the canvas model.
func (s *Shell) Do(fn func(m *canvas.Model) error) error {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	return fn(s.model)
}

// Snapshot returns a copy of the current canvas state.
func (s *Shell) Snapshot() canvas.State {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	return s.model.Serialize()
}

// Drop forwards a drop event to the canvas. Drops are ignored while
// previewing.
func (s *Shell) Drop(evt dragdrop.Event) (string, bool) {
	if s.Mode() != ModeEditing {
		return "", false
	}
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	_, id, ok := s.drop.Drop(evt)
	return id, ok
}

// Dispatch routes a rendered-tree event to the canvas. Events are ignored
// while previewing.
func (s *Shell) Dispatch(evt render.Event) {
	if s.Mode() != ModeEditing {
		return
	}
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	render.Dispatch(s.model, evt)
}

// OnChange subscribes to model changes. fn runs with the model lock held and
// must not call back into the shell.
func (s *Shell) OnChange(fn func(canvas.Change)) (remove func()) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	rm := s.model.OnChange(fn)
	return func() {
		s.modelMu.Lock()
		defer s.modelMu.Unlock()
		rm()
	}
}

// Dirty reports unsaved changes since the last load or successful save.
func (s *Shell) Dirty() bool {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	return s.gen != s.saved
}

// Busy reports whether a save or publish is in flight.
func (s *Shell) Busy() bool { return s.busy.Load() }

// Project returns the open project.
func (s *Shell) Project() (project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proj == nil {
		return project.Project{}, false
	}
	return *s.proj, true
}

// Refresh adopts a project row written elsewhere, such as a rename. Rows of
// other projects are ignored.
func (s *Shell) Refresh(p project.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proj != nil && s.proj.ID == p.ID {
		s.proj = &p
	}
}

// Role is the user's role on the open project.
func (s *Shell) Role() project.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Access loads a project and resolves userID's role on it: owner, a
// collaborator role, or ErrForbidden.
func Access(ctx context.Context, store project.Store, collabs project.Collaborators, projectID, userID string) (project.Project, project.Role, error) {
	p, err := store.Get(ctx, projectID)
	if err != nil {
		return project.Project{}, "", err
	}
	if p.OwnerID == userID {
		return p, project.RoleOwner, nil
	}
	if collabs != nil && userID != "" {
		list, err := collabs.ListCollaborators(ctx, projectID)
		if err != nil {
			return project.Project{}, "", err
		}
		for _, c := range list {
			if c.UserID == userID {
				return p, c.Role, nil
			}
		}
	}
	return project.Project{}, "", ErrForbidden
}

// Open loads the project and restores its canvas. A project that is
// missing or not shared with the user fails without changing the shell.
// Snapshot entries that cannot be restored are skipped and reported.
func (s *Shell) Open(ctx context.Context, projectID string) ([]canvas.Warning, error) {
	l := applog.WithProject(applog.WithOperation(s.log, "open"), projectID)
	type access struct {
		p    project.Project
		role project.Role
	}
	a, err := retryValue(ctx, s.deps.Retry, func(ctx context.Context) (access, error) {
		p, role, err := Access(ctx, s.deps.Store, s.deps.Collaborators, projectID, s.userID)
		return access{p, role}, err
	})
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			s.deps.Notifier.Notify(ctx, project.NotifyError, "Project not found", "The project you're looking for doesn't exist or you don't have access to it.")
		}
		l.Warn("open failed", slog.Any("err", err))
		return nil, err
	}

	s.modelMu.Lock()
	warns, lerr := s.model.Load(a.p.Canvas())
	if lerr != nil {
		s.model.Deserialize(canvas.State{})
	}
	s.saved = s.gen
	s.modelMu.Unlock()

	s.mu.Lock()
	s.proj = &a.p
	s.role = a.role
	s.mode = ModeEditing
	s.mu.Unlock()

	switch {
	case lerr != nil:
		l.Error("canvas snapshot unreadable", slog.Any("err", lerr))
		s.deps.Notifier.Notify(ctx, project.NotifyWarning, "Canvas could not be restored", "The saved canvas is unreadable; starting with an empty canvas.")
	case len(warns) > 0:
		msgs := make([]string, len(warns))
		for i, w := range warns {
			msgs[i] = w.String()
		}
		l.Warn("canvas restored with warnings", slog.Int("skipped", len(warns)))
		s.deps.Notifier.Notify(ctx, project.NotifyWarning,
			fmt.Sprintf("%d component(s) could not be restored", len(warns)), strings.Join(msgs, "\n"))
	}
	s.track(a.p.ID, EventEditorOpened, map[string]any{"role": string(a.role)})
	l.Info("project opened", slog.String("role", string(a.role)))
	return warns, nil
}

func (s *Shell) acquire() (project.Project, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return project.Project{}, ErrBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proj == nil {
		s.busy.Store(false)
		return project.Project{}, ErrNoProject
	}
	if !s.role.CanEdit() {
		s.busy.Store(false)
		return project.Project{}, ErrForbidden
	}
	return *s.proj, nil
}

// encode serializes the canvas and returns the change generation it
// represents.
func (s *Shell) encode() (canvas.State, []byte, uint64, error) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	st := s.model.Serialize()
	data, err := canvas.Encode(st)
	return st, data, s.gen, err
}

func (s *Shell) markSaved(gen uint64) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	s.saved = gen
}

// Save persists the canvas into settings.canvas, keeping every other
// settings key. On failure the in-memory canvas is kept as is.
func (s *Shell) Save(ctx context.Context) error {
	p, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.busy.Store(false)
	l := applog.WithProject(applog.WithOperation(s.log, "save"), p.ID)

	st, data, gen, err := s.encode()
	if err != nil {
		return s.saveFailed(ctx, l, project.Fail("save", err))
	}
	now := s.deps.Now()
	settings := maps.Clone(p.Settings)
	if settings == nil {
		settings = map[string]json.RawMessage{}
	}
	settings[project.SettingsCanvas] = data
	updated, err := retryValue(ctx, s.deps.Retry, func(ctx context.Context) (project.Project, error) {
		return s.deps.Store.Update(ctx, p.ID, project.Patch{Settings: settings, UpdatedAt: &now})
	})
	if err != nil {
		return s.saveFailed(ctx, l, err)
	}
	s.committed(ctx, l, updated, data, gen, now)
	s.track(p.ID, EventCanvasSaved, map[string]any{"components": len(st.Components)})
	s.deps.Notifier.Notify(ctx, project.NotifySuccess, "Project saved", "Your changes have been saved successfully.")
	l.Info("project saved", slog.Int("components", len(st.Components)))
	return nil
}

func (s *Shell) saveFailed(ctx context.Context, l *slog.Logger, err error) error {
	l.Error("save failed", slog.Any("err", err))
	s.deps.Notifier.Notify(ctx, project.NotifyError, "Failed to save", "There was an error saving your project. Please try again.")
	return err
}

// committed records a successful write: the shell adopts the stored row,
// the saved generation advances and a revision is kept.
func (s *Shell) committed(ctx context.Context, l *slog.Logger, p project.Project, data []byte, gen uint64, now time.Time) {
	s.mu.Lock()
	if s.proj != nil && s.proj.ID == p.ID {
		s.proj = &p
	}
	s.mu.Unlock()
	s.markSaved(gen)
	if s.deps.Revisions == nil {
		return
	}
	if err := s.deps.Revisions.SaveRevision(ctx, p.ID, data, now); err != nil {
		l.Warn("save revision failed", slog.Any("err", err))
	}
}

func (s *Shell) track(projectID, name string, props map[string]any) {
	if s.deps.Tracker != nil {
		s.deps.Tracker.Track(projectID, name, props)
	}
}

// PublishSettings returns the stored publish settings of the open project,
// or the defaults.
func (s *Shell) PublishSettings() PublishSettings {
	p, ok := s.Project()
	if !ok {
		return DefaultPublishSettings()
	}
	return SettingsOf(p)
}

// ConfirmLabel is the publish dialog's confirm button text.
func (s *Shell) ConfirmLabel() string {
	p, _ := s.Project()
	return ConfirmLabel(p.Status)
}

// Publish uploads the rendered page, then marks the project Published and
// stores the canvas and ps. It returns the public URL.
func (s *Shell) Publish(ctx context.Context, ps PublishSettings) (string, error) {
	if err := ps.Validate(); err != nil {
		return "", err
	}
	p, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer s.busy.Store(false)
	l := applog.WithProject(applog.WithOperation(s.log, "publish"), p.ID)

	st, data, gen, err := s.encode()
	if err != nil {
		return "", s.publishFailed(ctx, l, project.Fail("publish", err))
	}
	psData, err := json.Marshal(ps)
	if err != nil {
		return "", s.publishFailed(ctx, l, project.Fail("publish", err))
	}

	url := ps.ProjectURL(p.Name)
	if s.deps.Publisher != nil {
		var page bytes.Buffer
		if err := render.Page(&page, p.Name, ps.MetaDescription, st, render.Options{ReadOnly: true, Bare: true}); err != nil {
			return "", s.publishFailed(ctx, l, err)
		}
		u, err := s.deps.Publisher.Publish(ctx, p, page.Bytes())
		if err != nil {
			return "", s.publishFailed(ctx, l, err)
		}
		if ps.CustomDomain == "" {
			url = u
		}
	}

	now := s.deps.Now()
	settings := maps.Clone(p.Settings)
	if settings == nil {
		settings = map[string]json.RawMessage{}
	}
	settings[project.SettingsCanvas] = data
	settings[project.SettingsPublish] = psData
	updated, err := retryValue(ctx, s.deps.Retry, func(ctx context.Context) (project.Project, error) {
		return s.deps.Store.Update(ctx, p.ID, project.Patch{
			Status:    project.Ptr(project.StatusPublished),
			Settings:  settings,
			UpdatedAt: &now,
		})
	})
	if err != nil {
		return "", s.publishFailed(ctx, l, err)
	}
	s.committed(ctx, l, updated, data, gen, now)
	s.track(p.ID, EventProjectPublished, map[string]any{"public": ps.Public, "custom_domain": ps.CustomDomain != ""})
	s.deps.Notifier.Notify(ctx, project.NotifySuccess, "Project published", "Your project is now live and accessible to users.")
	l.Info("project published", slog.String("url", url))
	return url, nil
}

func (s *Shell) publishFailed(ctx context.Context, l *slog.Logger, err error) error {
	l.Error("publish failed", slog.Any("err", err))
	s.deps.Notifier.Notify(ctx, project.NotifyError, "Failed to publish", "There was an error publishing your project. Please try again.")
	return err
}
