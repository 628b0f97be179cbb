/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package identity issues and verifies bearer tokens and keeps the signed-in
// user of a CLI session.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DevSecret is used when no auth secret is configured. Tokens signed with it
// are only fit for local development.
const DevSecret = "dev-secret-change-me"

const (
	DefaultTTL = time.Hour
	MaxTTL     = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
)

type tokenClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"` // unix seconds
}

// User is an authenticated subject.
type User struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authority signs and verifies "<payload>.<signature>" HMAC-SHA256 tokens.
type Authority struct {
	secret []byte
	now    func() time.Time
}

// NewAuthority returns an Authority for secret; an empty secret selects DevSecret.
func NewAuthority(secret string) *Authority {
	if secret == "" {
		secret = DevSecret
	}
	return &Authority{secret: []byte(secret), now: time.Now}
}

// Insecure reports whether the development secret is in use.
func (a *Authority) Insecure() bool { return string(a.secret) == DevSecret }

// Issue signs a token for subject. ttl outside (0, MaxTTL] falls back to DefaultTTL.
func (a *Authority) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if ttl <= 0 || ttl > MaxTTL {
		ttl = DefaultTTL
	}
	exp := a.now().Add(ttl).Truncate(time.Second)
	tok, err := a.Sign(subject, exp)
	return tok, exp, err
}

// Sign builds a token for subject expiring at exp.
func (a *Authority) Sign(subject string, exp time.Time) (string, error) {
	b, err := json.Marshal(tokenClaims{Sub: subject, Exp: exp.Unix()})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(b)
	signature := base64.RawURLEncoding.EncodeToString(a.mac(b))
	return payload + "." + signature, nil
}

// Verify checks the signature and expiry and returns the token's user.
func (a *Authority) Verify(token string) (*User, error) {
	payloadPart, sigPart, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || strings.Contains(sigPart, ".") {
		return nil, fmt.Errorf("%w: format", ErrInvalidToken)
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("%w: payload", ErrInvalidToken)
	}
	sigB, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: signature", ErrInvalidToken)
	}
	if !hmac.Equal(a.mac(payloadB), sigB) {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}
	var claims tokenClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil || claims.Sub == "" {
		return nil, fmt.Errorf("%w: claims", ErrInvalidToken)
	}
	if claims.Exp < a.now().Unix() {
		return nil, ErrExpired
	}
	return &User{ID: claims.Sub, ExpiresAt: time.Unix(claims.Exp, 0).UTC()}, nil
}

func (a *Authority) mac(b []byte) []byte {
	h := hmac.New(sha256.New, a.secret)
	_, _ = h.Write(b)
	return h.Sum(nil)
}
