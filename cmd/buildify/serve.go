/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"buildify/internal/builder"
	"buildify/internal/catalog"
	applog "buildify/internal/log"
	"buildify/internal/publish"
	"buildify/internal/server"
	"buildify/internal/version"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the builder HTTP and live-canvas service",
	RunE: func(cmd *cobra.Command, args []string) error {
		l := applog.WithComponent("cli")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		be, err := openBackend(ctx)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer be.Close()

		pub, err := publish.New(cfg.Publish)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		tracker := newTracker(be)
		defer tracker.Close()

		auth := newAuthority()
		if auth.Insecure() {
			l.Warn("using the development auth secret; set BFY_AUTH_SECRET in production")
		}
		scfg := server.FromConfig(cfg.Server)
		if serveAddr != "" {
			scfg.Addr = serveAddr
		}
		srv, err := server.New(scfg, server.Deps{
			Backend:   be,
			Auth:      auth,
			Catalog:   catalog.Default(),
			Publisher: pub,
			Tracker:   tracker,
			Retry:     builder.RetryFromConfig(cfg.Backend),
		})
		if err != nil {
			return err
		}

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				l.Error("shutdown failed", slog.Any("err", err))
			}
			tracker.Flush(sctx)
		}()

		fmt.Fprintf(os.Stderr, "%s listening on %s\n", version.String(), scfg.Addr)
		fmt.Fprintf(os.Stderr, "  Storage: %s\n", cfg.Storage.Driver)
		if err := srv.Start(); err != nil {
			stop()
			<-stopped
			return err
		}
		// Start returns as soon as the listener closes; wait for sessions to flush.
		<-stopped
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
