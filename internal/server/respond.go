/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"buildify/internal/builder"
	"buildify/internal/canvas"
	"buildify/internal/catalog"
	"buildify/internal/identity"
	"buildify/internal/project"
)

var (
	errPreviewing = errors.New("canvas is in preview mode")
	errNotOwner   = errors.New("only the project owner may do this")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeError maps err onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	writeErrorStatus(w, statusOf(err), err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, canvas.ErrNotFound), errors.Is(err, project.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, builder.ErrForbidden), errors.Is(err, errNotOwner):
		return http.StatusForbidden
	case errors.Is(err, project.ErrInvalid), errors.Is(err, catalog.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, builder.ErrBusy), errors.Is(err, builder.ErrNoProject), errors.Is(err, errPreviewing):
		return http.StatusConflict
	case project.Retriable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads an optional JSON body of at most 1 MiB into v. An empty
// body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Join(project.ErrInvalid, err)
	}
	return nil
}

func currentUser(r *http.Request) *identity.User {
	u, _ := identity.UserFrom(r.Context())
	return u
}

func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelDebug
				if status >= 500 {
					level = slog.LevelWarn
				}
				l.Log(r.Context(), level, "request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("took", time.Since(start)),
					slog.String("req_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
