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
	"buildify/internal/canvas"
	"buildify/internal/export"
	applog "buildify/internal/log"
)

var (
	exportDevice string
	exportGrid   bool
	exportScale  float64
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id> <out.svg|out.png|out.pdf>",
	Short: "Export a project's canvas as an image or PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l := applog.WithOperation(applog.WithProject(applog.WithComponent("cli"), args[0]), "export")
		dev, ok := builder.ParseDevice(exportDevice)
		if !ok {
			return fmt.Errorf("unknown device %q", exportDevice)
		}
		be, err := openBackend(cmd.Context())
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer be.Close()

		p, err := be.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var st canvas.State
		if raw := p.Canvas(); len(raw) > 0 {
			s, warns, err := canvas.Decode(raw)
			if err != nil {
				return fmt.Errorf("read canvas: %w", err)
			}
			for _, w := range warns {
				l.Warn("component skipped", slog.String("warning", w.String()))
			}
			st = s
		}
		opts := export.Options{DeviceWidth: dev.Width(), Scale: exportScale, Title: p.Name, ShowGrid: exportGrid}
		if err := export.WriteFile(args[1], st, opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d component(s) to %s\n", len(st.Components), args[1])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDevice, "device", string(builder.DeviceDesktop), "desktop, tablet or mobile")
	exportCmd.Flags().BoolVar(&exportGrid, "grid", false, "draw the layout grid")
	exportCmd.Flags().Float64Var(&exportScale, "scale", 1, "PNG pixel scale")
}
