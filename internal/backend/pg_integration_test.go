/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"buildify/internal/project"
	"buildify/internal/storage"
)

// openPGForTest connects to the database named by BFY_PG_DSN or skips.
func openPGForTest(t *testing.T) *storage.Store {
	t.Helper()
	dsn := os.Getenv("BFY_PG_DSN")
	if dsn == "" {
		t.Skip("BFY_PG_DSN not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	st, err := OpenPG(ctx, dsn)
	if err != nil {
		t.Fatalf("open pg: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPG_ProjectLifecycle(t *testing.T) {
	st := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := st.Create(ctx, "it-user", project.Patch{Name: project.Ptr("Integration")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = st.Delete(context.Background(), p.ID) })

	if err := st.SaveRevision(ctx, p.ID, []byte(`{"components":[]}`), time.Now()); err != nil {
		t.Fatalf("save revision: %v", err)
	}
	revs, err := st.ListRevisions(ctx, p.ID, 1)
	if err != nil || len(revs) != 1 {
		t.Fatalf("list revisions = %v, %v", revs, err)
	}
	got, err := st.Get(ctx, p.ID)
	if err != nil || got.Name != "Integration" {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if err := st.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Get(ctx, p.ID); !errors.Is(err, project.ErrProjectNotFound) {
		t.Fatalf("want not found after delete, got %v", err)
	}
}

func TestPG_MigrationsIdempotent(t *testing.T) {
	st := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := applyMigrations(ctx, st.DB()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
