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
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	applog "buildify/internal/log"
	"buildify/internal/project"
)

// Team is the team dialog of one project.
type Team struct {
	projectID string
	collabs   project.Collaborators
	profiles  project.Profiles
	notes     Notifier
	retry     RetryPolicy
	log       *slog.Logger
}

// Team returns the team dialog for the open project.
func (s *Shell) Team() (*Team, error) {
	p, ok := s.Project()
	if !ok {
		return nil, ErrNoProject
	}
	if s.deps.Collaborators == nil || s.deps.Profiles == nil {
		return nil, errors.New("team management is not configured")
	}
	return NewTeam(p.ID, s.deps.Collaborators, s.deps.Profiles, s.deps.Notifier, s.deps.Retry), nil
}

func NewTeam(projectID string, collabs project.Collaborators, profiles project.Profiles, notes Notifier, retry RetryPolicy) *Team {
	l := applog.WithProject(applog.WithComponent("team"), projectID)
	if notes == nil {
		notes = LogNotifier{Log: l}
	}
	return &Team{projectID: projectID, collabs: collabs, profiles: profiles, notes: notes, retry: retry, log: l}
}

// List returns the collaborators, newest first, with profiles joined.
func (t *Team) List(ctx context.Context) ([]project.Collaborator, error) {
	return retryValue(ctx, t.retry, func(ctx context.Context) ([]project.Collaborator, error) {
		return t.collabs.ListCollaborators(ctx, t.projectID)
	})
}

// Invitation is the outcome of Invite. Added is false when no profile has
// the email yet; the invitation then stays pending.
type Invitation struct {
	Email  string       `json:"email"`
	Role   project.Role `json:"role"`
	UserID string       `json:"user_id,omitempty"`
	Added  bool         `json:"added"`
}

// ValidEmail reports whether s is a bare address such as a@b.co.
func ValidEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

// Invite shares the project with email in role, which must be editor or
// viewer. A known user is added as collaborator right away.
func (t *Team) Invite(ctx context.Context, email string, role project.Role) (Invitation, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return Invitation{}, fmt.Errorf("%w: email %q", project.ErrInvalid, email)
	}
	if role == "" {
		role = project.RoleViewer
	}
	if role != project.RoleEditor && role != project.RoleViewer {
		return Invitation{}, fmt.Errorf("%w: role %q", project.ErrInvalid, role)
	}
	inv := Invitation{Email: email, Role: role}
	prof, err := retryValue(ctx, t.retry, func(ctx context.Context) (project.Profile, error) {
		return t.profiles.FindProfileByEmail(ctx, email)
	})
	switch {
	case errors.Is(err, project.ErrProfileNotFound):
		t.log.Info("invitation pending", slog.String("role", string(role)))
	case err != nil:
		return Invitation{}, err
	default:
		c, err := retryValue(ctx, t.retry, func(ctx context.Context) (project.Collaborator, error) {
			return t.collabs.AddCollaborator(ctx, project.Collaborator{ProjectID: t.projectID, UserID: prof.ID, Role: role})
		})
		if err != nil {
			return Invitation{}, err
		}
		inv.UserID, inv.Added = c.UserID, true
		t.log.Info("collaborator added", slog.String("user", c.UserID), slog.String("role", string(role)))
	}
	t.notes.Notify(ctx, project.NotifySuccess, "Invitation sent", fmt.Sprintf("An invitation has been sent to %s.", email))
	return inv, nil
}

// Remove revokes a collaborator.
func (t *Team) Remove(ctx context.Context, userID string) error {
	return t.retry.Do(ctx, func(ctx context.Context) error {
		return t.collabs.RemoveCollaborator(ctx, t.projectID, userID)
	})
}

// InviteLink is the shareable link for the project under origin.
func (t *Team) InviteLink(origin string) string {
	return strings.TrimRight(origin, "/") + "/projects/" + t.projectID + "/invite"
}

var roleDescriptions = map[project.Role]string{
	project.RoleOwner:  "Full access and can manage the project",
	project.RoleEditor: "Can edit and modify the project",
	project.RoleViewer: "Can view but not edit the project",
}

func RoleDescription(r project.Role) string { return roleDescriptions[r] }

// Initials are the avatar fallback: the first letter of every word of the
// full name, else the first two letters of the username, else "U".
func Initials(p *project.Profile) string {
	if p == nil {
		return "U"
	}
	if words := strings.Fields(p.FullName); len(words) > 0 {
		var b strings.Builder
		for _, w := range words {
			b.WriteRune([]rune(w)[0])
		}
		return strings.ToUpper(b.String())
	}
	if u := []rune(strings.TrimSpace(p.Username)); len(u) > 0 {
		return strings.ToUpper(string(u[:min(2, len(u))]))
	}
	return "U"
}
