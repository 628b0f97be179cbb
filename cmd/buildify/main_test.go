/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buildify/internal/canvas"
	"buildify/internal/config"
	"buildify/internal/project"
	"buildify/internal/storage"
)

// setup points config and storage at a temp dir and swaps the keyring for memory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvStorageDriver, "sqlite")
	t.Setenv(config.EnvStoragePath, filepath.Join(dir, "test.sqlite"))
	prev := config.SetTokenStore(&config.MemoryTokenStore{})
	t.Cleanup(func() { config.SetTokenStore(prev) })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	setup(t)
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "buildify ") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestCatalogCommand(t *testing.T) {
	setup(t)
	out, err := run(t, "catalog", "--search", "button")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, "TYPE") || !strings.Contains(out, "button") {
		t.Fatalf("unexpected catalog output: %q", out)
	}

	out, err = run(t, "catalog", "--json", "--search", "")
	if err != nil {
		t.Fatalf("catalog --json: %v", err)
	}
	var defs []map[string]any
	if err := json.Unmarshal([]byte(out), &defs); err != nil || len(defs) == 0 {
		t.Fatalf("catalog json: %v (%q)", err, out)
	}

	out, err = run(t, "catalog", "--json=false", "--search", "zzz-nothing")
	if err != nil {
		t.Fatalf("catalog empty: %v", err)
	}
	if !strings.Contains(out, "No components found") {
		t.Fatalf("expected empty message, got %q", out)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	setup(t)
	if _, err := run(t, "whoami"); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("expected signed-out error, got %v", err)
	}
	out, err := run(t, "login", "alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as alice") {
		t.Fatalf("login output: %q", out)
	}
	out, err = run(t, "whoami")
	if err != nil || !strings.HasPrefix(out, "alice") {
		t.Fatalf("whoami: %q %v", out, err)
	}
	if _, err := run(t, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := run(t, "whoami"); err == nil {
		t.Fatal("expected whoami to fail after logout")
	}
}

func TestExportCommand(t *testing.T) {
	dir := setup(t)
	st, err := storage.Open(filepath.Join(dir, "test.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	blob, err := canvas.Encode(canvas.State{Components: []canvas.PlacedComponent{{
		InstanceID: "button-1", TypeID: "button", DisplayName: "Button",
		Position: canvas.Point{X: 40, Y: 80}, Size: canvas.Size{Width: 120, Height: 40},
		Content: "Buy", Style: map[string]string{},
	}}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p, err := st.Create(context.Background(), "alice", project.Patch{
		Name:     project.Ptr("Shop"),
		Settings: map[string]json.RawMessage{project.SettingsCanvas: blob},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = st.Close()

	out := filepath.Join(dir, "out", "shop.svg")
	msg, err := run(t, "export", p.ID, out, "--device", "mobile")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(msg, "Exported 1 component(s)") {
		t.Fatalf("export output: %q", msg)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Fatalf("not an svg: %.80s", data)
	}

	if _, err := run(t, "export", p.ID, out, "--device", "watch"); err == nil {
		t.Fatal("expected unknown device error")
	}
	if _, err := run(t, "export", "missing", out, "--device", "desktop"); err == nil {
		t.Fatal("expected not found error")
	}
}
