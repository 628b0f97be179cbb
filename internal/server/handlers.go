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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"buildify/internal/builder"
	"buildify/internal/export"
	"buildify/internal/palette"
	"buildify/internal/project"
	"buildify/internal/render"
	"buildify/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(version.String()))
}

// handleIssueToken signs a token for any subject. It only exists while the
// service runs with the development secret.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Auth.Insecure() {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Subject    string `json:"subject"`
		Email      string `json:"email"`
		FullName   string `json:"full_name"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		req.Subject = "dev"
	}
	tok, exp, err := s.deps.Auth.Issue(req.Subject, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeErrorStatus(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := s.deps.Backend.GetProfile(r.Context(), req.Subject); errors.Is(err, project.ErrProfileNotFound) {
		prof := project.Profile{ID: req.Subject, Email: req.Email, FullName: req.FullName, Username: req.Subject}
		if _, err := s.deps.Backend.UpsertProfile(r.Context(), prof); err != nil {
			s.log.Warn("create profile failed", slog.String("user", req.Subject), slog.Any("err", err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	p := palette.New(s.deps.Catalog)
	p.SetCategory(r.URL.Query().Get("category"))
	p.SetSearch(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": p.Categories(),
		"category":   p.Category(),
		"items":      p.Items(),
		"empty":      p.EmptyMessage(),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Backend.List(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []project.Project{}
	}
	writeJSON(w, http.StatusOK, list)
}

type projectInput struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Type        *string         `json:"type"`
	Status      *project.Status `json:"status"`
	TemplateID  *string         `json:"template_id"`
}

func (in projectInput) patch() project.Patch {
	return project.Patch{Name: in.Name, Description: in.Description, Type: in.Type, Status: in.Status, TemplateID: in.TemplateID}
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in projectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.deps.Backend.Create(r.Context(), currentUser(r).ID, in.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	if s.deps.Tracker != nil {
		s.deps.Tracker.Track(p.ID, "project_created", map[string]any{"type": p.Type})
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) access(ctx context.Context, projectID, userID string) (project.Project, project.Role, error) {
	return builder.Access(ctx, s.deps.Backend, s.deps.Backend, projectID, userID)
}

// authorize resolves the project of the request and the caller's role;
// edit demands owner or editor.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, edit bool) (project.Project, project.Role, bool) {
	p, role, err := s.access(r.Context(), chi.URLParam(r, "id"), currentUser(r).ID)
	if err != nil {
		writeError(w, err)
		return project.Project{}, "", false
	}
	if edit && !role.CanEdit() {
		writeError(w, builder.ErrForbidden)
		return project.Project{}, "", false
	}
	return p, role, true
}

// editor is authorize plus the project's session shell.
func (s *Server) editor(w http.ResponseWriter, r *http.Request, edit bool) (*builder.Shell, project.Project, bool) {
	p, _, ok := s.authorize(w, r, edit)
	if !ok {
		return nil, p, false
	}
	sh, err := s.sessions.get(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return nil, p, false
	}
	if cur, ok := sh.Project(); ok {
		p = cur
	}
	return sh, p, true
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, role, ok := s.authorize(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p, "role": role})
}

func (s *Server) handlePatchProject(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.authorize(w, r, true)
	if !ok {
		return
	}
	var in projectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.deps.Backend.Update(r.Context(), p.ID, in.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	if sh, ok := s.sessions.peek(p.ID); ok {
		sh.Refresh(updated)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p, role, ok := s.authorize(w, r, false)
	if !ok {
		return
	}
	if role != project.RoleOwner {
		writeError(w, errNotOwner)
		return
	}
	if err := s.deps.Backend.Delete(r.Context(), p.ID); err != nil {
		writeError(w, err)
		return
	}
	s.sessions.drop(p.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	sh, _, ok := s.editor(w, r, false)
	if !ok {
		return
	}
	frame, err := frameOf(sh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleCanvasOp(w http.ResponseWriter, r *http.Request) {
	sh, _, ok := s.editor(w, r, true)
	if !ok {
		return
	}
	var op canvasOp
	if err := decodeJSON(r, &op); err != nil {
		writeError(w, err)
		return
	}
	res, err := apply(sh, op)
	if err != nil {
		writeError(w, err)
		return
	}
	frame, err := frameOf(sh)
	if err != nil {
		writeError(w, err)
		return
	}
	res.Canvas = frame
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sh, _, ok := s.editor(w, r, true)
	if !ok {
		return
	}
	if err := sh.Save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	p, _ := sh.Project()
	writeJSON(w, http.StatusOK, map[string]any{"saved": true, "updated_at": p.UpdatedAt})
}

func (s *Server) handlePublishDialog(w http.ResponseWriter, r *http.Request) {
	sh, p, ok := s.editor(w, r, false)
	if !ok {
		return
	}
	ps := sh.PublishSettings()
	writeJSON(w, http.StatusOK, map[string]any{
		"settings":     ps,
		"confirmLabel": sh.ConfirmLabel(),
		"url":          ps.ProjectURL(p.Name),
		"status":       p.Status,
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sh, _, ok := s.editor(w, r, true)
	if !ok {
		return
	}
	ps := sh.PublishSettings()
	if err := decodeJSON(r, &ps); err != nil {
		writeError(w, err)
		return
	}
	url, err := sh.Publish(r.Context(), ps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url, "status": project.StatusPublished})
}

func deviceParam(r *http.Request) (builder.Device, error) {
	v := r.URL.Query().Get("device")
	if v == "" {
		return builder.DeviceDesktop, nil
	}
	d, ok := builder.ParseDevice(v)
	if !ok {
		return d, fmt.Errorf("%w: device %q", project.ErrInvalid, v)
	}
	return d, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sh, p, ok := s.editor(w, r, false)
	if !ok {
		return
	}
	d, err := deviceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	desc := builder.SettingsOf(p).MetaDescription
	if err := render.Page(&buf, p.Name, desc, sh.Snapshot(), render.Options{DeviceWidth: d.Width()}); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(chi.URLParam(r, "format"))
	ctype, ok := export.ContentType(format)
	if !ok {
		writeError(w, fmt.Errorf("%w: export format %q", project.ErrInvalid, format))
		return
	}
	sh, p, ok := s.editor(w, r, false)
	if !ok {
		return
	}
	d, err := deviceParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts := export.Options{DeviceWidth: d.Width(), Title: p.Name}
	st := sh.Snapshot()
	var buf bytes.Buffer
	switch format {
	case "svg":
		err = export.SVG(&buf, st, opts)
	case "png":
		err = export.PNG(&buf, st, opts)
	case "pdf":
		err = export.PDF(&buf, st, opts)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", project.Slug(p.Name)+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.authorize(w, r, false)
	if !ok {
		return
	}
	revs, err := s.deps.Backend.ListRevisions(r.Context(), p.ID, 20)
	if err != nil {
		writeError(w, err)
		return
	}
	type entry struct {
		TS   time.Time `json:"ts"`
		Size int       `json:"size"`
	}
	out := make([]entry, 0, len(revs))
	for _, rv := range revs {
		out = append(out, entry{TS: rv.TS, Size: len(rv.Blob)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) team(projectID string) *builder.Team {
	notes := builder.Fanout(userNotifier{store: s.deps.Backend, log: s.log}, s.hub.notifier(projectID))
	return builder.NewTeam(projectID, s.deps.Backend, s.deps.Backend, notes, s.deps.Retry)
}

type teamMember struct {
	project.Collaborator
	Initials        string `json:"initials"`
	RoleDescription string `json:"roleDescription"`
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.authorize(w, r, false)
	if !ok {
		return
	}
	t := s.team(p.ID)
	list, err := t.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	members := make([]teamMember, 0, len(list))
	for _, c := range list {
		members = append(members, teamMember{Collaborator: c, Initials: builder.Initials(c.Profile), RoleDescription: builder.RoleDescription(c.Role)})
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collaborators": members,
		"inviteLink":    t.InviteLink(scheme + "://" + r.Host),
	})
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.authorize(w, r, true)
	if !ok {
		return
	}
	var req struct {
		Email string       `json:"email"`
		Role  project.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	inv, err := s.team(p.ID).Invite(r.Context(), req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	p, role, ok := s.authorize(w, r, false)
	if !ok {
		return
	}
	if role != project.RoleOwner {
		writeError(w, errNotOwner)
		return
	}
	if err := s.team(p.ID).Remove(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	list, err := s.deps.Backend.ListNotifications(r.Context(), u.ID, project.NotificationLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	unread, err := s.deps.Backend.UnreadCount(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []project.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "unread": unread})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Backend.MarkRead(r.Context(), currentUser(r).ID, chi.URLParam(r, "nid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Backend.MarkAllRead(r.Context(), currentUser(r).ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
