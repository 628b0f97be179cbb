/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"buildify/internal/project"
)

const profileCols = `id, full_name, username, avatar_url, email, updated_at`

const upsertProfileSQL = `INSERT INTO profiles (` + profileCols + `) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET full_name = excluded.full_name, username = excluded.username,
	avatar_url = excluded.avatar_url, email = excluded.email, updated_at = excluded.updated_at`

// language=SQL
const listCollaboratorsSQL = `SELECT c.id, c.project_id, c.user_id, c.role, c.created_at,
	p.id, p.full_name, p.username, p.avatar_url, p.email, p.updated_at
FROM collaborators c LEFT JOIN profiles p ON p.id = c.user_id
WHERE c.project_id = ? ORDER BY c.created_at DESC, c.id`

const upsertCollaboratorSQL = `INSERT INTO collaborators (id, project_id, user_id, role, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (project_id, user_id) DO UPDATE SET role = excluded.role`

func scanProfile(r rowScanner) (project.Profile, error) {
	var p project.Profile
	var updated dbTime
	if err := r.Scan(&p.ID, &p.FullName, &p.Username, &p.AvatarURL, &p.Email, &updated); err != nil {
		return project.Profile{}, err
	}
	p.UpdatedAt = updated.Time
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (project.Profile, error) {
	p, err := scanProfile(s.queryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return project.Profile{}, project.Failf("get profile", project.ErrProfileNotFound, "user %q", userID)
	}
	if err != nil {
		return project.Profile{}, project.Fail("get profile", err)
	}
	return p, nil
}

// FindProfileByEmail matches case-insensitively.
func (s *Store) FindProfileByEmail(ctx context.Context, email string) (project.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := scanProfile(s.queryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE LOWER(email) = ? ORDER BY id LIMIT 1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return project.Profile{}, project.Failf("find profile", project.ErrProfileNotFound, "email %q", email)
	}
	if err != nil {
		return project.Profile{}, project.Fail("find profile", err)
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p project.Profile) (project.Profile, error) {
	if strings.TrimSpace(p.ID) == "" {
		return project.Profile{}, project.Failf("upsert profile", project.ErrInvalid, "id is required")
	}
	p.UpdatedAt = s.now()
	if _, err := s.exec(ctx, upsertProfileSQL, p.ID, p.FullName, p.Username, p.AvatarURL, p.Email, s.dialect.Time(p.UpdatedAt)); err != nil {
		return project.Profile{}, project.Fail("upsert profile", err)
	}
	return p, nil
}

func (s *Store) ListCollaborators(ctx context.Context, projectID string) ([]project.Collaborator, error) {
	rows, err := s.query(ctx, listCollaboratorsSQL, projectID)
	if err != nil {
		return nil, project.Fail("list collaborators", err)
	}
	defer func() { _ = rows.Close() }()
	out := []project.Collaborator{}
	for rows.Next() {
		var (
			c                 project.Collaborator
			role              string
			created, pUpdated dbTime
			pID, pName, pUser sql.NullString
			pAvatar, pEmail   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &role, &created,
			&pID, &pName, &pUser, &pAvatar, &pEmail, &pUpdated); err != nil {
			return nil, project.Fail("list collaborators", err)
		}
		c.Role = project.Role(role)
		c.CreatedAt = created.Time
		if pID.Valid {
			c.Profile = &project.Profile{
				ID: pID.String, FullName: pName.String, Username: pUser.String,
				AvatarURL: pAvatar.String, Email: pEmail.String, UpdatedAt: pUpdated.Time,
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, project.Fail("list collaborators", err)
	}
	return out, nil
}

// AddCollaborator inserts the link or updates the role of an existing one.
func (s *Store) AddCollaborator(ctx context.Context, c project.Collaborator) (project.Collaborator, error) {
	if c.ProjectID == "" || c.UserID == "" {
		return project.Collaborator{}, project.Failf("add collaborator", project.ErrInvalid, "project and user are required")
	}
	switch c.Role {
	case project.RoleOwner, project.RoleEditor, project.RoleViewer:
	default:
		return project.Collaborator{}, project.Failf("add collaborator", project.ErrInvalid, "role %q", c.Role)
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	c.CreatedAt = s.now()
	if _, err := s.exec(ctx, upsertCollaboratorSQL, c.ID, c.ProjectID, c.UserID, string(c.Role), s.dialect.Time(c.CreatedAt)); err != nil {
		return project.Collaborator{}, project.Fail("add collaborator", err)
	}
	return c, nil
}

func (s *Store) RemoveCollaborator(ctx context.Context, projectID, userID string) error {
	if _, err := s.exec(ctx, `DELETE FROM collaborators WHERE project_id = ? AND user_id = ?`, projectID, userID); err != nil {
		return project.Fail("remove collaborator", err)
	}
	return nil
}
