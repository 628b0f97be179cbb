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
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"buildify/internal/project"
)

const projectCols = `id, name, description, type, status, template_id, settings, created_at, updated_at, user_id`

// language=SQL
const (
	selectProjectSQL = `SELECT ` + projectCols + ` FROM projects WHERE id = ?`
	listProjectsSQL  = `SELECT ` + projectCols + ` FROM projects WHERE user_id = ? ORDER BY updated_at DESC, id`
	insertProjectSQL = `INSERT INTO projects (` + projectCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateProjectSQL = `UPDATE projects SET name = ?, description = ?, type = ?, status = ?, template_id = ?, settings = ?, updated_at = ? WHERE id = ?`
	deleteProjectSQL = `DELETE FROM projects WHERE id = ?`
)

type rowScanner interface{ Scan(dest ...any) error }

func scanProject(r rowScanner) (project.Project, error) {
	var (
		p        project.Project
		status   string
		settings []byte
		created  dbTime
		updated  dbTime
	)
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Type, &status, &p.TemplateID, &settings, &created, &updated, &p.OwnerID); err != nil {
		return project.Project{}, err
	}
	p.Status = project.Status(status)
	p.CreatedAt, p.UpdatedAt = created.Time, updated.Time
	p.Settings = map[string]json.RawMessage{}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &p.Settings); err != nil {
			return project.Project{}, err
		}
	}
	return p, nil
}

func encodeSettings(m map[string]json.RawMessage) (jsonText, error) {
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	b, err := json.Marshal(m)
	return jsonText(b), err
}

func (s *Store) Get(ctx context.Context, id string) (project.Project, error) {
	p, err := scanProject(s.queryRow(ctx, selectProjectSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, project.NotFound("get", id)
	}
	if err != nil {
		return project.Project{}, project.Fail("get", err)
	}
	return p, nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]project.Project, error) {
	rows, err := s.query(ctx, listProjectsSQL, ownerID)
	if err != nil {
		return nil, project.Fail("list", err)
	}
	defer func() { _ = rows.Close() }()
	out := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, project.Fail("list", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, project.Fail("list", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, ownerID string, pt project.Patch) (project.Project, error) {
	if strings.TrimSpace(ownerID) == "" {
		return project.Project{}, project.Failf("create", project.ErrInvalid, "owner is required")
	}
	now := s.now()
	p := pt.Apply(project.Project{
		ID:        s.newID(),
		Type:      project.DefaultType,
		Status:    project.StatusDraft,
		Settings:  map[string]json.RawMessage{},
		CreatedAt: now,
		OwnerID:   ownerID,
	}, now)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return project.Project{}, project.Failf("create", project.ErrInvalid, "name is required")
	}
	if !p.Status.Valid() {
		return project.Project{}, project.Failf("create", project.ErrInvalid, "status %q", p.Status)
	}
	settings, err := encodeSettings(p.Settings)
	if err != nil {
		return project.Project{}, project.Fail("create", err)
	}
	if _, err := s.exec(ctx, insertProjectSQL,
		p.ID, p.Name, p.Description, p.Type, string(p.Status), p.TemplateID, settings,
		s.dialect.Time(p.CreatedAt), s.dialect.Time(p.UpdatedAt), p.OwnerID,
	); err != nil {
		return project.Project{}, project.Fail("create", err)
	}
	s.log.Debug("project created", slog.String("project", p.ID), slog.String("owner", ownerID))
	return p, nil
}

func (s *Store) Update(ctx context.Context, id string, pt project.Patch) (project.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return project.Project{}, project.Fail("update", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanProject(tx.QueryRowContext(ctx, s.dialect.Rebind(selectProjectSQL), id))
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, project.NotFound("update", id)
	}
	if err != nil {
		return project.Project{}, project.Fail("update", err)
	}
	p := pt.Apply(cur, s.now())
	if !p.Status.Valid() {
		return project.Project{}, project.Failf("update", project.ErrInvalid, "status %q", p.Status)
	}
	settings, err := encodeSettings(p.Settings)
	if err != nil {
		return project.Project{}, project.Fail("update", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(updateProjectSQL),
		p.Name, p.Description, p.Type, string(p.Status), p.TemplateID, settings, s.dialect.Time(p.UpdatedAt), id,
	); err != nil {
		return project.Project{}, project.Fail("update", err)
	}
	if err := tx.Commit(); err != nil {
		return project.Project{}, project.Fail("update", err)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, deleteProjectSQL, id)
	if err != nil {
		return project.Fail("delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return project.NotFound("delete", id)
	}
	return nil
}
