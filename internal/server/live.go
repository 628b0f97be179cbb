/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"buildify/internal/builder"
	"buildify/internal/identity"
	"buildify/internal/project"
)

const (
	liveWriteWait = 10 * time.Second
	livePongWait  = 60 * time.Second
	livePingEvery = (livePongWait * 9) / 10
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// liveMessage is pushed to WebSocket clients.
type liveMessage struct {
	Type         string                `json:"type"` // "canvas" | "notification"
	Canvas       *canvasFrame          `json:"canvas,omitempty"`
	Notification *project.Notification `json:"notification,omitempty"`
}

type liveClient struct {
	projectID string
	wake      chan struct{}
	notes     chan project.Notification
	done      chan struct{}
	closeOnce sync.Once
}

func (c *liveClient) close() { c.closeOnce.Do(func() { close(c.done) }) }

// hub fans canvas changes and notifications out to the clients watching a
// project. Changes are coalesced; a client re-renders once per wake-up.
type hub struct {
	mu      sync.Mutex
	clients map[string]map[*liveClient]struct{}
}

func newHub() *hub { return &hub{clients: map[string]map[*liveClient]struct{}{}} }

func (h *hub) subscribe(projectID string) *liveClient {
	c := &liveClient{
		projectID: projectID,
		wake:      make(chan struct{}, 1),
		notes:     make(chan project.Notification, 16),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[projectID]
	if !ok {
		set = map[*liveClient]struct{}{}
		h.clients[projectID] = set
	}
	set[c] = struct{}{}
	return c
}

func (h *hub) unsubscribe(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.projectID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.projectID)
		}
	}
	c.close()
}

func (h *hub) watchers(projectID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[projectID])
}

// changed must not block: it runs inside model callbacks.
func (h *hub) changed(projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[projectID] {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

func (h *hub) notifier(projectID string) builder.Notifier {
	return builder.NotifierFunc(func(_ context.Context, kind project.NotificationType, title, message string) {
		n := project.Notification{Title: title, Message: message, Type: kind, CreatedAt: time.Now().UTC()}
		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.clients[projectID] {
			select {
			case c.notes <- n:
			default:
			}
		}
	})
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, id)
	}
}

// liveUser authenticates a WebSocket request. Browsers cannot set headers on
// the handshake, so the token may also come as access_token.
func (s *Server) liveUser(r *http.Request) (*identity.User, error) {
	tok, ok := identity.BearerToken(r)
	if !ok {
		tok = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if tok == "" {
		return nil, errors.New("missing bearer token")
	}
	return s.deps.Auth.Verify(tok)
}

// handleLive pushes the rendered canvas on connect and after every change.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	u, err := s.liveUser(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	ctx := identity.WithUser(r.Context(), u)
	projectID := chi.URLParam(r, "id")
	if _, _, err := s.access(ctx, projectID, u.ID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	l := s.log.With(slog.String("project", projectID), slog.String("user", u.ID))

	c := s.hub.subscribe(projectID)
	defer s.hub.unsubscribe(c)
	c.wake <- struct{}{}

	if err := conn.SetReadDeadline(time.Now().Add(livePongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer c.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					l.Debug("live read failed", slog.Any("err", err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingEvery)
	defer ticker.Stop()
	write := func(msg liveMessage) error {
		if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(msg)
	}
	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(liveWriteWait))
			return
		case <-c.wake:
			frame, err := s.liveFrame(ctx, projectID)
			if err != nil {
				l.Warn("live render failed", slog.Any("err", err))
				return
			}
			if err := write(liveMessage{Type: "canvas", Canvas: frame}); err != nil {
				return
			}
		case n := <-c.notes:
			if err := write(liveMessage{Type: "notification", Notification: &n}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) liveFrame(ctx context.Context, projectID string) (*canvasFrame, error) {
	p, err := s.deps.Backend.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sh, err := s.sessions.get(ctx, p)
	if err != nil {
		return nil, err
	}
	return frameOf(sh)
}
