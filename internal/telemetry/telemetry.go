/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry provides the asynchronous event sender: project analytics
// events (views, saves, publishes) recorded into the data backend, plus
// opt-in anonymous usage metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "buildify/internal/log"
	"buildify/internal/project"
	"buildify/internal/version"
)

// Config holds runtime configuration for usage metrics and crash uploads.
// Anonymous metrics are strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - BFY_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - BFY_TELEMETRY_URL: URL to POST JSON usage events to
// - BFY_CRASH_UPLOAD_URL: URL to POST crash reports to
// - BFY_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - BFY_TELEMETRY_DEBUG: if set, logs event send attempts
//
// If no URLs are set, usage events are dropped even if opt-in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("BFY_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("BFY_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("BFY_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("BFY_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("BFY_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

type item struct {
	usage map[string]any
	event *project.AnalyticsEvent
}

// Client is a minimal async sender; it drops items on errors and when its
// bounded queue is full, so callers never block.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	sink    project.Analytics
	q       chan item
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

type Option func(*Client)

// WithSink records project analytics events into a.
func WithSink(a project.Analytics) Option { return func(c *Client) { c.sink = a } }

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault initializes the package-level default client from env when first used.
func InitDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
}

// NewDefault creates and installs the default client with cfg.
func NewDefault(cfg Config, opts ...Option) *Client {
	c := New(cfg, opts...)
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return c
}

func current() *Client {
	InitDefault()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan item, 64),
		closed: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.loop()
	return c
}

// Enabled reports whether anonymous usage metrics are enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

func Enabled() bool { return current().Enabled() }

// Event queues an anonymous usage event if enabled. Props must be non-PII.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.enqueue(item{usage: payload})
}

func Event(name string, props map[string]any) { current().Event(name, props) }

// Track queues a project analytics event for the sink. It is independent of
// the usage opt-in: these events belong to the project owner.
func (c *Client) Track(projectID, name string, props map[string]any) {
	if c == nil || c.sink == nil || projectID == "" || name == "" {
		return
	}
	var raw json.RawMessage
	if len(props) > 0 {
		b, err := json.Marshal(props)
		if err != nil {
			c.log.Warn("drop analytics event", slog.String("event", name), slog.Any("err", err))
			return
		}
		raw = b
	}
	c.enqueue(item{event: &project.AnalyticsEvent{
		ProjectID: projectID,
		Name:      name,
		Props:     raw,
		CreatedAt: time.Now().UTC(),
	}})
}

func (c *Client) enqueue(it item) {
	c.pending.Add(1)
	select {
	case c.q <- it:
	default:
		c.pending.Add(-1)
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry queue full; dropping item")
		}
	}
}

// Flush waits briefly until queued items have been handled.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case it := <-c.q:
			switch {
			case it.event != nil:
				c.record(*it.event)
			case it.usage != nil:
				c.send(it.usage)
			}
			c.pending.Add(-1)
		}
	}
}

func (c *Client) record(e project.AnalyticsEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if err := c.sink.RecordEvent(ctx, e); err != nil {
		c.log.Warn("record analytics event failed", slog.String("event", e.Name), slog.String("project", e.ProjectID), slog.Any("err", err))
	}
}

func (c *Client) send(payload map[string]any) {
	buf, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, c.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry event sent")
	}
}

// UploadCrash posts an already-serialized crash report to the configured crash URL if opt-in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, c.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := c.cli.Do(req)
		if err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if c.cfg.DebugLogging {
			c.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

func UploadCrash(report []byte) { current().UploadCrash(report) }
