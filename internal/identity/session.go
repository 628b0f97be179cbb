/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"buildify/internal/config"
	applog "buildify/internal/log"
	"buildify/internal/project"
)

var ErrSignedOut = errors.New("not signed in")

// SessionTTL is the lifetime of tokens issued by SignIn.
const SessionTTL = MaxTTL

// Session is the signed-in state of a CLI or desktop process. The token is
// persisted in a config.TokenStore (the OS keyring by default).
type Session struct {
	auth     *Authority
	tokens   config.TokenStore
	profiles project.Profiles
	log      *slog.Logger

	mu    sync.RWMutex
	user  *User
	token string
}

// NewSession restores a previously stored token when it still verifies.
// profiles may be nil; when set, SignIn ensures a profile row exists.
func NewSession(auth *Authority, tokens config.TokenStore, profiles project.Profiles) *Session {
	s := &Session{auth: auth, tokens: tokens, profiles: profiles, log: applog.WithComponent("identity")}
	tok, err := tokens.Get()
	if err != nil {
		if !errors.Is(err, config.ErrNoToken) {
			s.log.Warn("read stored token", slog.Any("err", err))
		}
		return s
	}
	u, err := auth.Verify(tok)
	if err != nil {
		s.log.Info("stored token rejected", slog.Any("err", err))
		_ = tokens.Delete()
		return s
	}
	s.user, s.token = u, tok
	return s
}

// CurrentUser returns the signed-in user or nil.
func (s *Session) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the bearer token of the session, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SignIn issues a token for subject and persists it.
func (s *Session) SignIn(ctx context.Context, subject string) (*User, error) {
	tok, _, err := s.auth.Issue(subject, SessionTTL)
	if err != nil {
		return nil, err
	}
	u, err := s.auth.Verify(tok)
	if err != nil {
		return nil, err
	}
	if s.profiles != nil {
		if err := s.ensureProfile(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	if err := s.tokens.Set(tok); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user, s.token = u, tok
	s.mu.Unlock()
	s.log.Info("signed in", slog.String("user", u.ID))
	cp := *u
	return &cp, nil
}

func (s *Session) ensureProfile(ctx context.Context, id string) error {
	_, err := s.profiles.GetProfile(ctx, id)
	if errors.Is(err, project.ErrProfileNotFound) {
		_, err = s.profiles.UpsertProfile(ctx, project.Profile{ID: id, Username: id})
	}
	return err
}

// SignOut forgets the session token.
func (s *Session) SignOut() error {
	s.mu.Lock()
	s.user, s.token = nil, ""
	s.mu.Unlock()
	if err := s.tokens.Delete(); err != nil && !errors.Is(err, config.ErrNoToken) {
		return err
	}
	return nil
}

// Require returns the current user or ErrSignedOut.
func (s *Session) Require() (*User, error) {
	if u := s.CurrentUser(); u != nil {
		return u, nil
	}
	return nil, ErrSignedOut
}
