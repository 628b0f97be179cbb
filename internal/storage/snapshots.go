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
	"errors"
	"time"

	"buildify/internal/project"
)

// language=SQL
const insertRevisionSQL = `INSERT INTO canvas_revisions(project_id, ts, blob) VALUES (?, ?, ?)`

// language=SQL
const listRevisionsSQL = `SELECT project_id, ts, blob FROM canvas_revisions WHERE project_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
const pruneRevisionsSQL = `DELETE FROM canvas_revisions WHERE id IN (
	SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY project_id ORDER BY ts DESC, id DESC) AS rn FROM canvas_revisions
	) ranked WHERE rn > ?
)`

// SaveRevision persists a canvas snapshot blob with a timestamp.
func (s *Store) SaveRevision(ctx context.Context, projectID string, blob []byte, ts time.Time) error {
	if projectID == "" {
		return project.Failf("save revision", project.ErrInvalid, "project is required")
	}
	if blob == nil {
		blob = []byte{}
	}
	if ts.IsZero() {
		ts = s.now()
	}
	if _, err := s.exec(ctx, insertRevisionSQL, projectID, s.dialect.Time(ts), blob); err != nil {
		return project.Fail("save revision", err)
	}
	return nil
}

// ListRevisions returns up to limit most recent revisions for a project.
func (s *Store) ListRevisions(ctx context.Context, projectID string, limit int) ([]project.Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, listRevisionsSQL, projectID, limit)
	if err != nil {
		return nil, project.Fail("list revisions", err)
	}
	defer func() { _ = rows.Close() }()
	var out []project.Revision
	for rows.Next() {
		var r project.Revision
		var ts dbTime
		if err := rows.Scan(&r.ProjectID, &ts, &r.Blob); err != nil {
			return nil, project.Fail("list revisions", err)
		}
		r.TS = ts.Time
		out = append(out, r)
	}
	return out, project.Fail("list revisions", rows.Err())
}

// LatestRevision returns the newest blob or nil when none exists.
func (s *Store) LatestRevision(ctx context.Context, projectID string) ([]byte, time.Time, error) {
	revs, err := s.ListRevisions(ctx, projectID, 1)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(revs) == 0 {
		return nil, time.Time{}, nil
	}
	return revs[0].Blob, revs[0].TS, nil
}

// PruneRevisions keeps at most keep revisions per project and deletes older ones.
func (s *Store) PruneRevisions(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, errors.New("keep must be positive")
	}
	res, err := s.exec(ctx, pruneRevisionsSQL, keep)
	if err != nil {
		return 0, project.Fail("prune revisions", err)
	}
	return res.RowsAffected()
}
