/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package project defines the persisted entities around the editor (projects,
// profiles, collaborators, notifications, analytics events and canvas
// revisions) and the store interfaces their adapters implement.
package project

import (
	"encoding/json"
	"maps"
	"strings"
	"time"
)

// Status is the publication state of a project.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
	StatusArchived  Status = "Archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Settings keys with a fixed meaning.
const (
	SettingsCanvas  = "canvas"
	SettingsPublish = "publish"
)

// DefaultType is assigned to projects created without a type.
const DefaultType = "Web App"

// Project is one user project. Settings is an opaque bag; the canvas snapshot
// lives under SettingsCanvas and publish settings under SettingsPublish.
type Project struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Type        string                     `json:"type"`
	Status      Status                     `json:"status"`
	TemplateID  string                     `json:"template_id"`
	Settings    map[string]json.RawMessage `json:"settings"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	OwnerID     string                     `json:"user_id"`
}

// Canvas returns the raw canvas snapshot or nil.
func (p Project) Canvas() json.RawMessage { return p.Settings[SettingsCanvas] }

// Slug is the URL-safe form of the project name: lowercased, whitespace runs
// replaced with a single "-".
func (p Project) Slug() string { return Slug(p.Name) }

func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Patch carries optional field updates. Nil fields are left untouched; a
// non-nil Settings replaces the whole bag.
type Patch struct {
	Name        *string                    `json:"name,omitempty"`
	Description *string                    `json:"description,omitempty"`
	Type        *string                    `json:"type,omitempty"`
	Status      *Status                    `json:"status,omitempty"`
	TemplateID  *string                    `json:"template_id,omitempty"`
	Settings    map[string]json.RawMessage `json:"settings,omitempty"`
	UpdatedAt   *time.Time                 `json:"updated_at,omitempty"`
}

// Apply returns p with the patch applied. UpdatedAt defaults to now.
func (pt Patch) Apply(p Project, now time.Time) Project {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Type != nil {
		p.Type = *pt.Type
	}
	if pt.Status != nil {
		p.Status = *pt.Status
	}
	if pt.TemplateID != nil {
		p.TemplateID = *pt.TemplateID
	}
	if pt.Settings != nil {
		p.Settings = maps.Clone(pt.Settings)
	}
	p.UpdatedAt = now
	if pt.UpdatedAt != nil {
		p.UpdatedAt = *pt.UpdatedAt
	}
	return p
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }

// Role is a collaborator role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// CanEdit reports whether the role may change the canvas.
func (r Role) CanEdit() bool { return r == RoleOwner || r == RoleEditor }

// Profile is the public part of a user account.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Collaborator links a user to a project.
type Collaborator struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Profile   *Profile  `json:"profiles,omitempty"`
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// AnalyticsEvent is one recorded project event (views, saves, publishes).
type AnalyticsEvent struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Name      string          `json:"event_name"`
	Props     json.RawMessage `json:"event_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Revision is one saved canvas snapshot.
type Revision struct {
	ProjectID string    `json:"project_id"`
	TS        time.Time `json:"ts"`
	Blob      []byte    `json:"blob"`
}

// NotificationLimit is how many notifications a listing returns.
const NotificationLimit = 50
