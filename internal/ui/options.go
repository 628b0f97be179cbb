/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"buildify/internal/builder"
	"buildify/internal/crash"
)

// Options configure Run.
type Options struct {
	// Shell is an opened builder shell; its project is shown on start.
	Shell *builder.Shell
	// Workspace receives crash reports and the canvas autosave.
	Workspace *crash.Workspace
	// Title overrides the window title.
	Title string
}
