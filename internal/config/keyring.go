/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "buildify"
	keyringUser    = "session"
)

// TokenStore abstracts secret storage for the session token.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// ErrNoToken is returned when no session token has been stored.
var ErrNoToken = errors.New("no session token stored")

type osKeyring struct{}

func (osKeyring) Get() (string, error) {
	tok, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return tok, err
}

func (osKeyring) Set(token string) error { return keyring.Set(keyringService, keyringUser, token) }

func (osKeyring) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// MemoryTokenStore keeps the token in process memory. Used in tests and
// on hosts without a secret service.
type MemoryTokenStore struct {
	mu  sync.Mutex
	tok string
}

func (m *MemoryTokenStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == "" {
		return "", ErrNoToken
	}
	return m.tok, nil
}

func (m *MemoryTokenStore) Set(token string) error {
	m.mu.Lock()
	m.tok = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) Delete() error { return m.Set("") }

var (
	tokenMu    sync.RWMutex
	tokenStore TokenStore = osKeyring{}
)

// SetTokenStore swaps the backing store and returns the previous one.
func SetTokenStore(s TokenStore) TokenStore {
	tokenMu.Lock()
	defer tokenMu.Unlock()
	prev := tokenStore
	tokenStore = s
	return prev
}

// Tokens returns the active token store.
func Tokens() TokenStore {
	tokenMu.RLock()
	defer tokenMu.RUnlock()
	return tokenStore
}

func LoadToken() (string, error) { return Tokens().Get() }
func SaveToken(tok string) error  { return Tokens().Set(tok) }
func DeleteToken() error          { return Tokens().Delete() }
