/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"buildify/internal/project"
)

func TestClient_EventAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var events [][]byte
	crashes := make(chan []byte, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		events = append(events, append([]byte(nil), b...))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		crashes <- b
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Event("editor_opened", map[string]any{"device": "tablet"})
	c.Flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "editor_opened" || m["device"] != "tablet" {
		t.Fatalf("event mismatch: %v", m)
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	c.UploadCrash([]byte("STACKTRACE"))
	select {
	case b := <-crashes:
		if string(b) != "STACKTRACE" {
			t.Fatalf("crash body = %q", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected crash upload to be sent")
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests when disabled or unnamed")
	}
}

func TestTelemetry_SendErrorBranches(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
}

type memSink struct {
	mu     sync.Mutex
	events []project.AnalyticsEvent
	fail   bool
}

func (m *memSink) RecordEvent(_ context.Context, e project.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) CountEvents(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func TestTrackRecordsIntoSinkWithoutOptIn(t *testing.T) {
	sink := &memSink{}
	c := New(Config{}, WithSink(sink))
	defer c.Close()

	c.Track("p1", "canvas_saved", map[string]any{"components": 3})
	c.Track("p1", "project_published", nil)
	c.Track("", "ignored", nil)
	c.Track("p1", "", nil)
	c.Flush(context.Background())

	n, _ := sink.CountEvents(context.Background(), "p1")
	if n != 2 {
		t.Fatalf("recorded %d events, want 2", n)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.events[0].Name != "canvas_saved" || string(sink.events[0].Props) != `{"components":3}` {
		t.Fatalf("unexpected first event %+v", sink.events[0])
	}
	if sink.events[1].Props != nil {
		t.Fatalf("nil props should stay empty, got %s", sink.events[1].Props)
	}
}

func TestTrackSinkFailureIsNotFatal(t *testing.T) {
	sink := &memSink{fail: true}
	c := New(Config{}, WithSink(sink))
	defer c.Close()
	c.Track("p1", "canvas_saved", nil)
	c.Flush(context.Background())
	if c.pending.Load() != 0 {
		t.Fatalf("failed item still pending")
	}
}

func TestEnabled_DefaultClientAndFromEnv(t *testing.T) {
	t.Setenv("BFY_TELEMETRY_OPT_IN", "true")
	t.Setenv("BFY_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("BFY_CRASH_UPLOAD_URL", "")
	t.Setenv("BFY_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	NewDefault(cfg)
	if !Enabled() {
		t.Fatalf("default Enabled should be true with env config")
	}
}
