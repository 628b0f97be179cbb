/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server is the HTTP service around the editor: REST endpoints for
// projects, canvases, publishing, export, team and notifications, and a
// WebSocket channel that pushes re-rendered canvases to browsers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"

	"buildify/internal/builder"
	"buildify/internal/catalog"
	"buildify/internal/config"
	"buildify/internal/identity"
	applog "buildify/internal/log"
	"buildify/internal/project"
	"buildify/internal/publish"
)

type Config struct {
	Addr            string
	AllowAllOrigins bool
	SessionCache    int           // open editor sessions kept in memory
	PruneSchedule   string        // cron spec; empty disables pruning
	KeepRevisions   int           // canvas revisions kept per project
	RequestTimeout  time.Duration // REST handlers only
}

// FromConfig maps the server config section.
func FromConfig(c config.ServerConfig) Config {
	return Config{
		Addr:            c.Addr,
		AllowAllOrigins: c.AllowAllOrigins,
		SessionCache:    c.SessionCache,
		PruneSchedule:   c.PruneSchedule,
		KeepRevisions:   c.KeepRevisions,
		RequestTimeout:  60 * time.Second,
	}
}

// Deps are the collaborators of the service. Backend and Auth are required.
type Deps struct {
	Backend   project.Backend
	Auth      *identity.Authority
	Catalog   *catalog.Catalog
	Publisher publish.Publisher
	Tracker   builder.Tracker
	Retry     builder.RetryPolicy
}

type Server struct {
	cfg        Config
	deps       Deps
	log        *slog.Logger
	hub        *hub
	sessions   *sessions
	cron       *cron.Cron
	router     chi.Router
	httpServer *http.Server
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.Auth == nil {
		return nil, errors.New("server: backend and auth are required")
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Retry.Attempts == 0 {
		deps.Retry = builder.DefaultRetry()
	}
	if cfg.SessionCache <= 0 {
		cfg.SessionCache = 256
	}
	if cfg.KeepRevisions <= 0 {
		cfg.KeepRevisions = 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps, log: applog.WithComponent("server"), hub: newHub()}
	ss, err := newSessions(cfg.SessionCache, s.newShell, s.log)
	if err != nil {
		return nil, err
	}
	ss.onChange = s.hub.changed
	s.sessions = ss
	if cfg.PruneSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.PruneSchedule, func() { _, _ = s.Prune(context.Background()) }); err != nil {
			return nil, err
		}
		s.cron = c
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/ws/projects/{id}", s.handleLive)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Get("/healthz", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Post("/api/auth/token", s.handleIssueToken)
		r.Get("/api/catalog", s.handleCatalog)

		r.Group(func(r chi.Router) {
			r.Use(s.deps.Auth.Middleware)
			r.Get("/api/projects", s.handleListProjects)
			r.Post("/api/projects", s.handleCreateProject)
			r.Route("/api/projects/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Patch("/", s.handlePatchProject)
				r.Delete("/", s.handleDeleteProject)
				r.Get("/canvas", s.handleGetCanvas)
				r.Post("/canvas", s.handleCanvasOp)
				r.Post("/save", s.handleSave)
				r.Get("/publish", s.handlePublishDialog)
				r.Post("/publish", s.handlePublish)
				r.Get("/preview", s.handlePreview)
				r.Get("/export.{format}", s.handleExport)
				r.Get("/revisions", s.handleRevisions)
				r.Get("/team", s.handleTeam)
				r.Post("/team", s.handleInvite)
				r.Delete("/team/{userID}", s.handleRemoveCollaborator)
			})
			r.Get("/api/notifications", s.handleNotifications)
			r.Post("/api/notifications/read-all", s.handleMarkAllRead)
			r.Post("/api/notifications/{nid}/read", s.handleMarkRead)
		})
	})
	return r
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if s.cron != nil {
		s.cron.Start()
	}
	s.log.Info("listening", slog.String("addr", s.cfg.Addr), slog.Bool("insecure_auth", s.deps.Auth.Insecure()))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, stops the prune job and saves every
// open session with unsaved changes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.hub.closeAll()
	s.sessions.flush(ctx)
	return err
}

// Prune drops canvas revisions beyond the keep count.
func (s *Server) Prune(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := s.deps.Backend.PruneRevisions(ctx, s.cfg.KeepRevisions)
	if err != nil {
		s.log.Error("prune revisions failed", slog.Any("err", err))
		return 0, err
	}
	if n > 0 {
		s.log.Info("pruned revisions", slog.Int64("removed", n), slog.Int("keep", s.cfg.KeepRevisions))
	}
	return n, nil
}

// newShell builds the session shell of a project. Sessions act as the
// project owner; per-request permissions are checked by the handlers.
func (s *Server) newShell(projectID, ownerID string) *builder.Shell {
	be := s.deps.Backend
	return builder.New(builder.Deps{
		Store:         be,
		Collaborators: be,
		Profiles:      be,
		Revisions:     be,
		Publisher:     s.deps.Publisher,
		Notifier:      builder.Fanout(userNotifier{store: be, log: s.log}, s.hub.notifier(projectID)),
		Tracker:       s.deps.Tracker,
		Catalog:       s.deps.Catalog,
		Retry:         s.deps.Retry,
	}, ownerID)
}

// userNotifier stores notifications for the user of the request.
type userNotifier struct {
	store project.Notifications
	log   *slog.Logger
}

func (n userNotifier) Notify(ctx context.Context, kind project.NotificationType, title, message string) {
	u, ok := identity.UserFrom(ctx)
	if !ok {
		n.log.Info(title, slog.String("message", message))
		return
	}
	builder.StoreNotifier{Store: n.store, UserID: u.ID, Log: n.log}.Notify(ctx, kind, title, message)
}
