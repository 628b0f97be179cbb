/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"buildify/internal/builder"
	"buildify/internal/catalog"
	applog "buildify/internal/log"
	"buildify/internal/publish"
	"buildify/internal/ui"
)

var previewDevice string

var previewCmd = &cobra.Command{
	Use:   "preview <project-id>",
	Short: "Open a project in the desktop previewer (build with -tags fyne)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l := applog.WithProject(applog.WithComponent("ui"), args[0])
		u, err := currentUser()
		if err != nil {
			return err
		}
		be, err := openBackend(cmd.Context())
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

		sh := builder.New(builder.Deps{
			Store:         be,
			Collaborators: be,
			Profiles:      be,
			Revisions:     be,
			Publisher:     pub,
			Notifier:      builder.Fanout(builder.StoreNotifier{Store: be, UserID: u.ID, Log: l}, builder.LogNotifier{Log: l}),
			Tracker:       tracker,
			Catalog:       catalog.Default(),
			Retry:         builder.RetryFromConfig(cfg.Backend),
		}, u.ID)
		warns, err := sh.Open(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, w := range warns {
			l.Warn("component skipped", slog.String("warning", w.String()))
		}
		if d, ok := builder.ParseDevice(previewDevice); ok {
			sh.SetDevice(d)
		}

		workspace.ProjectID = args[0]
		workspace.Canvas = sh.Snapshot
		return ui.Run(ui.Options{Shell: sh, Workspace: workspace})
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewDevice, "device", string(builder.DeviceDesktop), "desktop, tablet or mobile")
}
