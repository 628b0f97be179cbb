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
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalid         = errors.New("invalid input")
)

// PersistenceError is returned by every store adapter.
type PersistenceError struct {
	Op      string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	msg := e.Op
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Fail wraps err as a PersistenceError for op. A nil err yields nil; an
// existing PersistenceError is returned unchanged.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Message: "request failed", Err: err}
}

// Failf builds a PersistenceError with a formatted message around err.
func Failf(op string, err error, format string, args ...any) error {
	return &PersistenceError{Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound is the PersistenceError for a missing project.
func NotFound(op, id string) error {
	return &PersistenceError{Op: op, Message: fmt.Sprintf("project %q", id), Err: ErrProjectNotFound}
}

// Retriable reports whether repeating the call may succeed: persistence
// failures are, except missing rows, invalid input and caller cancellation.
func Retriable(err error) bool {
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		return false
	}
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrInvalid):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
