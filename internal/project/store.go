/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"context"
	"time"
)

// Store is CRUD over projects.
type Store interface {
	Get(ctx context.Context, id string) (Project, error)
	// List returns the owner's projects, most recently updated first.
	List(ctx context.Context, ownerID string) ([]Project, error)
	Create(ctx context.Context, ownerID string, p Patch) (Project, error)
	Update(ctx context.Context, id string, p Patch) (Project, error)
	Delete(ctx context.Context, id string) error
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile) (Profile, error)
}

type Collaborators interface {
	// ListCollaborators returns newest first with profiles joined.
	ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error)
	AddCollaborator(ctx context.Context, c Collaborator) (Collaborator, error)
	RemoveCollaborator(ctx context.Context, projectID, userID string) error
}

type Notifications interface {
	Notify(ctx context.Context, n Notification) (Notification, error)
	// ListNotifications returns at most limit entries, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type Analytics interface {
	RecordEvent(ctx context.Context, e AnalyticsEvent) error
	CountEvents(ctx context.Context, projectID string) (int, error)
}

type Revisions interface {
	SaveRevision(ctx context.Context, projectID string, blob []byte, ts time.Time) error
	// ListRevisions returns at most limit revisions, newest first.
	ListRevisions(ctx context.Context, projectID string, limit int) ([]Revision, error)
	// PruneRevisions keeps the newest keep revisions per project and returns how many were removed.
	PruneRevisions(ctx context.Context, keep int) (int64, error)
}

// Backend bundles every data collaborator an adapter provides.
type Backend interface {
	Store
	Profiles
	Collaborators
	Notifications
	Analytics
	Revisions
	Close() error
}
