/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package builder is the editor shell around one project's canvas: preview
// and device state, open/save/publish orchestration against the project
// store, and the publish and team dialogs.
package builder

import "strings"

// Mode is the shell's interaction mode.
type Mode string

const (
	ModeEditing    Mode = "editing"
	ModePreviewing Mode = "previewing"
)

// Device is the preview viewport.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceTablet  Device = "tablet"
	DeviceMobile  Device = "mobile"
)

// Width is the fixed viewport width in pixels; 0 means fluid.
func (d Device) Width() int {
	switch d {
	case DeviceTablet:
		return 768
	case DeviceMobile:
		return 375
	}
	return 0
}

// ParseDevice accepts the device names case-insensitively.
func ParseDevice(s string) (Device, bool) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case DeviceDesktop, DeviceTablet, DeviceMobile:
		return d, true
	}
	return DeviceDesktop, false
}
