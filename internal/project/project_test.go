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
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"My Project":        "my-project",
		"  Side   Hustle  ": "side-hustle",
		"CRM\tTool\nV2":     "crm-tool-v2",
		"":                  "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q want %q", in, got, want)
		}
	}
}

func TestPatchApply(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Project{ID: "p1", Name: "Old", Status: StatusDraft, Settings: map[string]json.RawMessage{"a": json.RawMessage("1")}}
	got := Patch{Name: Ptr("New"), Status: Ptr(StatusPublished)}.Apply(p, now)
	if got.Name != "New" || got.Status != StatusPublished || !got.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected %+v", got)
	}
	if string(got.Settings["a"]) != "1" {
		t.Fatalf("nil settings must keep existing bag")
	}
	got = Patch{Settings: map[string]json.RawMessage{}}.Apply(p, now)
	if len(got.Settings) != 0 {
		t.Fatalf("non-nil settings must replace bag")
	}
}

func TestPersistenceErrorWrapping(t *testing.T) {
	base := errors.New("connection reset")
	err := Fail("update", base)
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "update" || !errors.Is(err, base) {
		t.Fatalf("Fail did not wrap: %v", err)
	}
	if Fail("x", err) != err {
		t.Fatalf("Fail must not double wrap")
	}
	if Fail("x", nil) != nil {
		t.Fatalf("Fail(nil) must be nil")
	}
	nf := NotFound("get", "p9")
	if !errors.Is(nf, ErrProjectNotFound) || !errors.As(nf, &pe) {
		t.Fatalf("NotFound wrong: %v", nf)
	}
}

func TestRetriable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Fail("save", errors.New("503")), true},
		{fmt.Errorf("outer: %w", Fail("save", context.DeadlineExceeded)), true},
		{NotFound("get", "x"), false},
		{Fail("save", context.Canceled), false},
		{Failf("create", ErrInvalid, "empty name"), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for i, tc := range cases {
		if got := Retriable(tc.err); got != tc.want {
			t.Fatalf("case %d: Retriable(%v) = %v", i, tc.err, got)
		}
	}
}

func TestRoles(t *testing.T) {
	if !RoleEditor.CanEdit() || RoleViewer.CanEdit() || !RoleOwner.CanEdit() {
		t.Fatalf("role permissions wrong")
	}
	if !StatusArchived.Valid() || Status("Live").Valid() {
		t.Fatalf("status validation wrong")
	}
}
