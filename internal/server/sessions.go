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
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"buildify/internal/builder"
	"buildify/internal/canvas"
	"buildify/internal/project"
)

type session struct {
	shell       *builder.Shell
	unsubscribe func()
}

// sessions caches open editor shells by project id. A session evicted with
// unsaved changes is saved in the background.
type sessions struct {
	mu       sync.Mutex // serializes opening
	cache    *lru.Cache[string, *session]
	newShell func(projectID, ownerID string) *builder.Shell
	onChange func(projectID string)
	log      *slog.Logger
	saves    sync.WaitGroup
	forget   sync.Map // project ids dropped without saving
}

func newSessions(size int, newShell func(projectID, ownerID string) *builder.Shell, l *slog.Logger) (*sessions, error) {
	ss := &sessions{newShell: newShell, log: l}
	cache, err := lru.NewWithEvict[string, *session](size, ss.evicted)
	if err != nil {
		return nil, err
	}
	ss.cache = cache
	return ss, nil
}

func (ss *sessions) evicted(projectID string, s *session) {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if _, drop := ss.forget.LoadAndDelete(projectID); drop || !s.shell.Dirty() {
		return
	}
	ss.saves.Add(1)
	go func() {
		defer ss.saves.Done()
		ss.save(context.Background(), projectID, s.shell)
	}()
}

func (ss *sessions) save(ctx context.Context, projectID string, sh *builder.Shell) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := sh.Save(ctx); err != nil {
		ss.log.Warn("save of evicted session failed", slog.String("project", projectID), slog.Any("err", err))
		return
	}
	ss.log.Info("evicted session saved", slog.String("project", projectID))
}

// get returns the session shell for p, opening it on first use.
func (ss *sessions) get(ctx context.Context, p project.Project) (*builder.Shell, error) {
	if s, ok := ss.cache.Get(p.ID); ok {
		return s.shell, nil
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.cache.Get(p.ID); ok {
		return s.shell, nil
	}
	sh := ss.newShell(p.ID, p.OwnerID)
	if _, err := sh.Open(ctx, p.ID); err != nil {
		return nil, err
	}
	s := &session{shell: sh}
	if ss.onChange != nil {
		id := p.ID
		s.unsubscribe = sh.OnChange(func(canvas.Change) { ss.onChange(id) })
	}
	ss.cache.Add(p.ID, s)
	return sh, nil
}

// peek returns an open session without opening one.
func (ss *sessions) peek(projectID string) (*builder.Shell, bool) {
	s, ok := ss.cache.Peek(projectID)
	if !ok {
		return nil, false
	}
	return s.shell, true
}

// drop discards a session without saving it.
func (ss *sessions) drop(projectID string) {
	if !ss.cache.Contains(projectID) {
		return
	}
	ss.forget.Store(projectID, struct{}{})
	ss.cache.Remove(projectID)
}

func (ss *sessions) len() int { return ss.cache.Len() }

// flush saves every dirty session and waits for background saves.
func (ss *sessions) flush(ctx context.Context) {
	for _, id := range ss.cache.Keys() {
		if s, ok := ss.cache.Peek(id); ok && s.shell.Dirty() {
			ss.save(ctx, id, s.shell)
		}
	}
	ss.saves.Wait()
}
