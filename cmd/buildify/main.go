/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command buildify runs the builder service and its companion tools.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"buildify/internal/backend"
	"buildify/internal/config"
	"buildify/internal/crash"
	"buildify/internal/identity"
	applog "buildify/internal/log"
	"buildify/internal/project"
	"buildify/internal/storage"
	"buildify/internal/telemetry"
)

var (
	cfg     config.AppConfig
	token   string
	verbose bool

	// workspace is what a crash report rescues; preview fills in the canvas.
	workspace = &crash.Workspace{}
)

var rootCmd = &cobra.Command{
	Use:           "buildify",
	Short:         "No-code SaaS builder: canvas editor service and tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, tok, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg, token = loaded, tok
		lvl := cfg.Logging.Level
		if verbose {
			lvl = "debug"
		}
		applog.Init(applog.Options{Level: lvl, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
		if p, err := config.ConfigPath(); err == nil {
			workspace.Dir = filepath.Join(filepath.Dir(p), "crash")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd, catalogCmd, exportCmd, loginCmd, logoutCmd, whoamiCmd, previewCmd, versionCmd)
}

func main() {
	defer crash.Recover(workspace)
	if err := rootCmd.Execute(); err != nil {
		applog.WithComponent("cli").Debug("command failed", slog.Any("err", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openBackend connects the configured storage driver.
func openBackend(ctx context.Context) (project.Backend, error) {
	l := applog.WithComponent("cli").With(slog.String("driver", cfg.Storage.Driver))
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			path = storage.DefaultFileName
		}
		if path != ":memory:" && !filepath.IsAbs(path) {
			if p, err := config.ConfigPath(); err == nil {
				path = filepath.Join(filepath.Dir(p), path)
			}
		}
		l.Debug("open sqlite", slog.String("path", path))
		return storage.Open(path)
	case "postgres":
		return backend.OpenPG(ctx, cfg.Storage.DSN)
	case "rest":
		return backend.NewClient(cfg.Backend, token), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func newAuthority() *identity.Authority { return identity.NewAuthority(cfg.Server.AuthSecret) }

// newTracker installs the telemetry client; analytics land in sink.
func newTracker(sink project.Analytics) *telemetry.Client {
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	return telemetry.NewDefault(tc, telemetry.WithSink(sink))
}
