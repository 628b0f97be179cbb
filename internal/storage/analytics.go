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

	"buildify/internal/project"
)

func (s *Store) RecordEvent(ctx context.Context, e project.AnalyticsEvent) error {
	if e.ProjectID == "" || e.Name == "" {
		return project.Failf("record event", project.ErrInvalid, "project and name are required")
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if _, err := s.exec(ctx, `INSERT INTO analytics_events (id, project_id, event_name, event_data, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.Name, jsonText(e.Props), s.dialect.Time(e.CreatedAt)); err != nil {
		return project.Fail("record event", err)
	}
	return nil
}

func (s *Store) CountEvents(ctx context.Context, projectID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM analytics_events WHERE project_id = ?`, projectID).Scan(&n); err != nil {
		return 0, project.Fail("count events", err)
	}
	return n, nil
}
