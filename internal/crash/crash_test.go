/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buildify/internal/canvas"
	"buildify/internal/catalog"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer func() { _ = os.Remove(path) }()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Buildify Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportUsesWorkspaceDir(t *testing.T) {
	dir := t.TempDir()
	path, err := writeReport(&Workspace{Dir: dir, ProjectID: "p1"}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected crash report under %s, got %s", dir, path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Project: p1") {
		t.Fatalf("project id missing from report")
	}
}

func TestAutosaveRoundTrips(t *testing.T) {
	m := canvas.NewModel(catalog.Default())
	if _, err := m.Add("button", canvas.Point{X: 100, Y: 100}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ws := &Workspace{Dir: t.TempDir(), ProjectID: "p1", Canvas: m.Serialize}
	path, err := Autosave(ws)
	if err != nil {
		t.Fatalf("autosave: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "autosave-p1-") {
		t.Fatalf("unexpected autosave name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read autosave: %v", err)
	}
	restored := canvas.NewModel(catalog.Default())
	warns, err := restored.Load(data)
	if err != nil || len(warns) != 0 {
		t.Fatalf("load autosave: %v %v", warns, err)
	}
	if restored.Len() != 1 {
		t.Fatalf("restored %d components", restored.Len())
	}
}

func TestAutosaveSurvivesPanickingCanvas(t *testing.T) {
	ws := &Workspace{Dir: t.TempDir(), Canvas: func() canvas.State { panic("model gone") }}
	if _, err := Autosave(ws); err == nil {
		t.Fatalf("expected error from panicking canvas callback")
	}
	if _, err := Autosave(nil); err == nil {
		t.Fatalf("expected error without workspace")
	}
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	m := canvas.NewModel(catalog.Default())
	_, _ = m.Add("text", canvas.Point{X: 10, Y: 10})
	ws := &Workspace{Dir: dir, ProjectID: "p9", Canvas: m.Serialize}

	func() {
		defer Recover(ws)
		panic("boom")
	}()

	var report, autosave bool
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = true
		case strings.HasPrefix(f.Name(), "autosave-p9-") && strings.HasSuffix(f.Name(), ".json"):
			autosave = true
		}
	}
	if !report || !autosave {
		t.Fatalf("report=%v autosave=%v in %v", report, autosave, files)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}
