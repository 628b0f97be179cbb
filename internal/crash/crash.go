/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics in the CLI into a report file plus an autosave
// of the canvas that was open.
package crash

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"buildify/internal/canvas"
	applog "buildify/internal/log"
	"buildify/internal/telemetry"
	"buildify/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Workspace names what to rescue. Canvas may be nil when no editor is open.
type Workspace struct {
	Dir       string // report and autosave directory; empty means os.TempDir()
	ProjectID string
	Canvas    func() canvas.State
}

func (w *Workspace) dir() string {
	if w == nil || w.Dir == "" {
		return os.TempDir()
	}
	return w.Dir
}

// Recover captures a panic, logs it with its stack, writes an error report
// and attempts an autosave of the open canvas.
//
// Usage: defer crash.Recover(ws)
func Recover(ws *Workspace) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(ws, r, stack)
		if ws != nil && ws.Canvas != nil {
			if path, err := Autosave(ws); err != nil {
				l.Error("autosave canvas failed", slog.Any("err", err))
			} else {
				l.Info("autosave canvas written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// Autosave writes the current canvas snapshot next to the crash report.
// A panic inside the Canvas callback is reported as an error.
func Autosave(ws *Workspace) (path string, err error) {
	if ws == nil || ws.Canvas == nil {
		return "", errors.New("nothing to autosave")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read canvas: %v", r)
		}
	}()
	data, err := canvas.Encode(ws.Canvas())
	if err != nil {
		return "", err
	}
	dir := ws.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := ws.ProjectID
	if name == "" {
		name = "canvas"
	}
	path = filepath.Join(dir, fmt.Sprintf("autosave-%s-%s.json", name, time.Now().Format("20060102-150405")))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func writeReport(ws *Workspace, panicVal any, stack []byte) (string, error) {
	dir := ws.dir()
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Buildify Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ws != nil && ws.ProjectID != "" {
		_, _ = fmt.Fprintf(&buf, "Project: %s\n", ws.ProjectID)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optional anonymized upload (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
