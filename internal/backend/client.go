/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildify/internal/config"
	"buildify/internal/project"
)

// restPrefix is where the hosted backend exposes its tables.
const restPrefix = "/rest/v1/"

// Client talks to the hosted backend-as-a-service REST API. Tables are
// addressed as resources and filtered with "column=op.value" query terms.
type Client struct {
	BaseURL string
	APIKey  string
	Token   string // bearer token; falls back to APIKey
	client  *http.Client
	now     func() time.Time
}

var _ project.Backend = (*Client)(nil)

// NewClient creates a client from the backend config section. The base URL may
// include a trailing slash; it will be normalized.
func NewClient(cfg config.BackendConfig, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		Token:   token,
		client:  &http.Client{Timeout: cfg.Timeout()},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Unwrap classifies rejected input so callers do not retry it.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return project.ErrInvalid
	}
	return nil
}

type request struct {
	method string
	table  string
	query  url.Values
	body   any
	prefer string
}

func (c *Client) doJSON(ctx context.Context, op string, r request, dest any) error {
	u, err := url.Parse(c.BaseURL + restPrefix + r.table)
	if err != nil {
		return project.Fail(op, err)
	}
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return project.Fail(op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return project.Fail(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return project.Fail(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &project.PersistenceError{
			Op:      op,
			Message: errorMessage(resp.Body),
			Err:     &StatusError{Method: r.method, Path: u.Path, Code: resp.StatusCode},
		}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return project.Failf(op, err, "decode response")
	}
	return nil
}

func (c *Client) bearer() string {
	if c.Token != "" {
		return c.Token
	}
	return c.APIKey
}

// errorMessage extracts the "message" field of an error body, else the raw text.
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(b))
}

func eq(v string) string { return "eq." + v }

func filter(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

const (
	preferRow    = "return=representation"
	preferUpsert = "resolution=merge-duplicates,return=representation"
)

// --- projects ---

func (c *Client) Get(ctx context.Context, id string) (project.Project, error) {
	var rows []project.Project
	if err := c.doJSON(ctx, "get", request{method: http.MethodGet, table: "projects", query: filter("id", eq(id), "select", "*")}, &rows); err != nil {
		return project.Project{}, err
	}
	if len(rows) == 0 {
		return project.Project{}, project.NotFound("get", id)
	}
	return rows[0], nil
}

func (c *Client) List(ctx context.Context, ownerID string) ([]project.Project, error) {
	rows := []project.Project{}
	q := filter("user_id", eq(ownerID), "select", "*", "order", "updated_at.desc")
	if err := c.doJSON(ctx, "list", request{method: http.MethodGet, table: "projects", query: q}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Create(ctx context.Context, ownerID string, pt project.Patch) (project.Project, error) {
	if strings.TrimSpace(ownerID) == "" {
		return project.Project{}, project.Failf("create", project.ErrInvalid, "owner is required")
	}
	now := c.now()
	p := pt.Apply(project.Project{
		ID:        uuid.NewString(),
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
	var rows []project.Project
	if err := c.doJSON(ctx, "create", request{method: http.MethodPost, table: "projects", body: p, prefer: preferRow}, &rows); err != nil {
		return project.Project{}, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	return p, nil
}

func (c *Client) Update(ctx context.Context, id string, pt project.Patch) (project.Project, error) {
	if pt.Status != nil && !pt.Status.Valid() {
		return project.Project{}, project.Failf("update", project.ErrInvalid, "status %q", *pt.Status)
	}
	if pt.UpdatedAt == nil {
		pt.UpdatedAt = project.Ptr(c.now())
	}
	var rows []project.Project
	if err := c.doJSON(ctx, "update", request{method: http.MethodPatch, table: "projects", query: filter("id", eq(id)), body: pt, prefer: preferRow}, &rows); err != nil {
		return project.Project{}, err
	}
	if len(rows) == 0 {
		return project.Project{}, project.NotFound("update", id)
	}
	return rows[0], nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "delete", request{method: http.MethodDelete, table: "projects", query: filter("id", eq(id)), prefer: preferRow}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return project.NotFound("delete", id)
	}
	return nil
}

// --- profiles and collaborators ---

func (c *Client) GetProfile(ctx context.Context, userID string) (project.Profile, error) {
	var rows []project.Profile
	if err := c.doJSON(ctx, "get profile", request{method: http.MethodGet, table: "profiles", query: filter("id", eq(userID))}, &rows); err != nil {
		return project.Profile{}, err
	}
	if len(rows) == 0 {
		return project.Profile{}, project.Failf("get profile", project.ErrProfileNotFound, "user %q", userID)
	}
	return rows[0], nil
}

func (c *Client) FindProfileByEmail(ctx context.Context, email string) (project.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rows []project.Profile
	q := filter("email", "ilike."+email, "order", "id.asc", "limit", "1")
	if err := c.doJSON(ctx, "find profile", request{method: http.MethodGet, table: "profiles", query: q}, &rows); err != nil {
		return project.Profile{}, err
	}
	if len(rows) == 0 {
		return project.Profile{}, project.Failf("find profile", project.ErrProfileNotFound, "email %q", email)
	}
	return rows[0], nil
}

func (c *Client) UpsertProfile(ctx context.Context, p project.Profile) (project.Profile, error) {
	if strings.TrimSpace(p.ID) == "" {
		return project.Profile{}, project.Failf("upsert profile", project.ErrInvalid, "id is required")
	}
	p.UpdatedAt = c.now()
	var rows []project.Profile
	if err := c.doJSON(ctx, "upsert profile", request{method: http.MethodPost, table: "profiles", body: p, prefer: preferUpsert}, &rows); err != nil {
		return project.Profile{}, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	return p, nil
}

func (c *Client) ListCollaborators(ctx context.Context, projectID string) ([]project.Collaborator, error) {
	rows := []project.Collaborator{}
	q := filter("project_id", eq(projectID), "select", "*,profiles(*)", "order", "created_at.desc")
	if err := c.doJSON(ctx, "list collaborators", request{method: http.MethodGet, table: "collaborators", query: q}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) AddCollaborator(ctx context.Context, co project.Collaborator) (project.Collaborator, error) {
	if co.ProjectID == "" || co.UserID == "" {
		return project.Collaborator{}, project.Failf("add collaborator", project.ErrInvalid, "project and user are required")
	}
	switch co.Role {
	case project.RoleOwner, project.RoleEditor, project.RoleViewer:
	default:
		return project.Collaborator{}, project.Failf("add collaborator", project.ErrInvalid, "role %q", co.Role)
	}
	if co.ID == "" {
		co.ID = uuid.NewString()
	}
	co.CreatedAt = c.now()
	co.Profile = nil
	var rows []project.Collaborator
	req := request{
		method: http.MethodPost,
		table:  "collaborators",
		query:  filter("on_conflict", "project_id,user_id"),
		body:   co,
		prefer: preferUpsert,
	}
	if err := c.doJSON(ctx, "add collaborator", req, &rows); err != nil {
		return project.Collaborator{}, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	return co, nil
}

func (c *Client) RemoveCollaborator(ctx context.Context, projectID, userID string) error {
	q := filter("project_id", eq(projectID), "user_id", eq(userID))
	return c.doJSON(ctx, "remove collaborator", request{method: http.MethodDelete, table: "collaborators", query: q}, nil)
}

// --- notifications ---

func (c *Client) Notify(ctx context.Context, n project.Notification) (project.Notification, error) {
	if n.UserID == "" || strings.TrimSpace(n.Title) == "" {
		return project.Notification{}, project.Failf("notify", project.ErrInvalid, "user and title are required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = project.NotifyInfo
	}
	n.CreatedAt = c.now()
	if err := c.doJSON(ctx, "notify", request{method: http.MethodPost, table: "notifications", body: n}, nil); err != nil {
		return project.Notification{}, err
	}
	return n, nil
}

func (c *Client) ListNotifications(ctx context.Context, userID string, limit int) ([]project.Notification, error) {
	if limit <= 0 || limit > project.NotificationLimit {
		limit = project.NotificationLimit
	}
	rows := []project.Notification{}
	q := filter("user_id", eq(userID), "order", "created_at.desc", "limit", strconv.Itoa(limit))
	if err := c.doJSON(ctx, "list notifications", request{method: http.MethodGet, table: "notifications", query: q}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) MarkRead(ctx context.Context, userID, id string) error {
	q := filter("id", eq(id), "user_id", eq(userID))
	return c.doJSON(ctx, "mark read", request{method: http.MethodPatch, table: "notifications", query: q, body: map[string]bool{"read": true}}, nil)
}

func (c *Client) MarkAllRead(ctx context.Context, userID string) error {
	q := filter("user_id", eq(userID), "read", "eq.false")
	return c.doJSON(ctx, "mark all read", request{method: http.MethodPatch, table: "notifications", query: q, body: map[string]bool{"read": true}}, nil)
}

func (c *Client) UnreadCount(ctx context.Context, userID string) (int, error) {
	return c.count(ctx, "unread count", "notifications", filter("user_id", eq(userID), "read", "eq.false"))
}

func (c *Client) count(ctx context.Context, op, table string, q url.Values) (int, error) {
	q.Set("select", "id")
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, op, request{method: http.MethodGet, table: table, query: q}, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// --- analytics ---

func (c *Client) RecordEvent(ctx context.Context, e project.AnalyticsEvent) error {
	if e.ProjectID == "" || e.Name == "" {
		return project.Failf("record event", project.ErrInvalid, "project and name are required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}
	return c.doJSON(ctx, "record event", request{method: http.MethodPost, table: "analytics_events", body: e}, nil)
}

func (c *Client) CountEvents(ctx context.Context, projectID string) (int, error) {
	return c.count(ctx, "count events", "analytics_events", filter("project_id", eq(projectID)))
}

// --- canvas revisions ---

// revisionRow carries the blob in the "\x<hex>" text form used for bytea columns.
type revisionRow struct {
	ProjectID string    `json:"project_id"`
	TS        time.Time `json:"ts"`
	Blob      string    `json:"blob"`
}

func encodeBytea(b []byte) string { return `\x` + hex.EncodeToString(b) }

func decodeBytea(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, `\x`))
}

func (c *Client) SaveRevision(ctx context.Context, projectID string, blob []byte, ts time.Time) error {
	row := revisionRow{ProjectID: projectID, TS: ts.UTC(), Blob: encodeBytea(blob)}
	return c.doJSON(ctx, "save revision", request{method: http.MethodPost, table: "canvas_revisions", body: row}, nil)
}

func (c *Client) ListRevisions(ctx context.Context, projectID string, limit int) ([]project.Revision, error) {
	q := filter("project_id", eq(projectID), "order", "ts.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []revisionRow
	if err := c.doJSON(ctx, "list revisions", request{method: http.MethodGet, table: "canvas_revisions", query: q}, &rows); err != nil {
		return nil, err
	}
	out := make([]project.Revision, 0, len(rows))
	for _, r := range rows {
		b, err := decodeBytea(r.Blob)
		if err != nil {
			return nil, project.Failf("list revisions", err, "decode blob")
		}
		out = append(out, project.Revision{ProjectID: r.ProjectID, TS: r.TS, Blob: b})
	}
	return out, nil
}

// PruneRevisions calls the prune_canvas_revisions database function.
func (c *Client) PruneRevisions(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, errors.New("keep must be positive")
	}
	var removed int64
	req := request{method: http.MethodPost, table: "rpc/prune_canvas_revisions", body: map[string]int{"keep": keep}}
	if err := c.doJSON(ctx, "prune revisions", req, &removed); err != nil {
		return 0, err
	}
	return removed, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
