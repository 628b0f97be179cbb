/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("BFY_LOG_LEVEL", "warn")
	t.Setenv("BFY_LOG_FORMAT", "json")
	t.Setenv("BFY_LOG_SOURCE", "TRUE")
	t.Setenv("BFY_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	t.Setenv("BFY_LOG_LEVEL", "")
	if got := FromEnv().Level; got != "info" {
		t.Fatalf("default level = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrettyTextHandlerGroupsAndValues(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should be filtered at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should pass at warn level")
	}

	g := h.WithGroup("drop")
	r := slog.Record{Time: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), Level: slog.LevelError, Message: "drop rejected"}
	r.AddAttrs(slog.Int("x", 100), slog.Float64("scale", 1.5), slog.Bool("known", false))
	if err := g.Handle(ctx, r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2025-01-02T03:04:05Z ERR drop rejected", "drop.x=100", "drop.scale=1.5", "drop.known=false"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	m := &multi{hs: []slog.Handler{
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	if m.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug should be disabled for every handler")
	}

	l := slog.New(m).With(slog.String("component", "builder"))
	l.Info("saved")
	l.Error("save failed")

	if !strings.Contains(infoBuf.String(), "saved") || !strings.Contains(infoBuf.String(), "save failed") {
		t.Fatalf("info handler output: %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "\"saved\"") || !strings.Contains(errBuf.String(), "save failed") {
		t.Fatalf("error handler output: %q", errBuf.String())
	}
	if !strings.Contains(errBuf.String(), "\"component\":\"builder\"") {
		t.Fatalf("attrs not forwarded: %q", errBuf.String())
	}
}

