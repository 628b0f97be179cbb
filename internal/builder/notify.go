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
	"log/slog"

	"buildify/internal/project"
)

// Notifier surfaces outcome messages (the toast of a UI).
type Notifier interface {
	Notify(ctx context.Context, kind project.NotificationType, title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, kind project.NotificationType, title, message string)

func (f NotifierFunc) Notify(ctx context.Context, kind project.NotificationType, title, message string) {
	f(ctx, kind, title, message)
}

// StoreNotifier persists notifications for one user. Store failures are
// logged and otherwise ignored.
type StoreNotifier struct {
	Store  project.Notifications
	UserID string
	Log    *slog.Logger
}

func (n StoreNotifier) Notify(ctx context.Context, kind project.NotificationType, title, message string) {
	if n.Store == nil || n.UserID == "" {
		return
	}
	_, err := n.Store.Notify(ctx, project.Notification{UserID: n.UserID, Title: title, Message: message, Type: kind})
	if err != nil && n.Log != nil {
		n.Log.Warn("store notification failed", slog.String("title", title), slog.Any("err", err))
	}
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct{ Log *slog.Logger }

func (n LogNotifier) Notify(_ context.Context, kind project.NotificationType, title, message string) {
	level := slog.LevelInfo
	switch kind {
	case project.NotifyWarning:
		level = slog.LevelWarn
	case project.NotifyError:
		level = slog.LevelError
	}
	n.Log.Log(context.Background(), level, title, slog.String("message", message))
}

// Fanout delivers to every non-nil notifier in order.
func Fanout(ns ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, kind project.NotificationType, title, message string) {
		for _, n := range ns {
			if n != nil {
				n.Notify(ctx, kind, title, message)
			}
		}
	})
}

// Tracker records project analytics events; telemetry.Client implements it.
type Tracker interface {
	Track(projectID, name string, props map[string]any)
}

const (
	EventEditorOpened     = "editor_opened"
	EventCanvasSaved      = "canvas_saved"
	EventProjectPublished = "project_published"
)
