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
	"strings"

	"buildify/internal/project"
)

// language=SQL
const listNotificationsSQL = `SELECT id, user_id, title, message, type, read, created_at
FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`

func (s *Store) Notify(ctx context.Context, n project.Notification) (project.Notification, error) {
	if strings.TrimSpace(n.UserID) == "" || strings.TrimSpace(n.Title) == "" {
		return project.Notification{}, project.Failf("notify", project.ErrInvalid, "user and title are required")
	}
	if n.ID == "" {
		n.ID = s.newID()
	}
	if n.Type == "" {
		n.Type = project.NotifyInfo
	}
	n.CreatedAt = s.now()
	if _, err := s.exec(ctx, `INSERT INTO notifications (id, user_id, title, message, type, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Read, s.dialect.Time(n.CreatedAt)); err != nil {
		return project.Notification{}, project.Fail("notify", err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]project.Notification, error) {
	if limit <= 0 || limit > project.NotificationLimit {
		limit = project.NotificationLimit
	}
	rows, err := s.query(ctx, listNotificationsSQL, userID, limit)
	if err != nil {
		return nil, project.Fail("list notifications", err)
	}
	defer func() { _ = rows.Close() }()
	out := []project.Notification{}
	for rows.Next() {
		var n project.Notification
		var typ string
		var created dbTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.Read, &created); err != nil {
			return nil, project.Fail("list notifications", err)
		}
		n.Type = project.NotificationType(typ)
		n.CreatedAt = created.Time
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, project.Fail("list notifications", err)
	}
	return out, nil
}

// MarkRead only touches notifications owned by userID.
func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.exec(ctx, `UPDATE notifications SET read = ? WHERE id = ? AND user_id = ?`, true, id, userID); err != nil {
		return project.Fail("mark read", err)
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := s.exec(ctx, `UPDATE notifications SET read = ? WHERE user_id = ? AND read = ?`, true, userID, false); err != nil {
		return project.Fail("mark all read", err)
	}
	return nil
}

func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = ?`, userID, false).Scan(&n); err != nil {
		return 0, project.Fail("unread count", err)
	}
	return n, nil
}
