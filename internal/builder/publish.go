/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package builder

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"buildify/internal/project"
	"buildify/internal/publish"
)

// PublishSettings are the options of the publish dialog, stored under
// settings.publish.
type PublishSettings struct {
	CustomDomain    string `json:"customDomain"`
	Public          bool   `json:"public"`
	Analytics       bool   `json:"analytics"`
	Comments        bool   `json:"comments"`
	MetaDescription string `json:"metaDescription"`
}

// DefaultPublishSettings: public with analytics, comments off.
func DefaultPublishSettings() PublishSettings {
	return PublishSettings{Public: true, Analytics: true}
}

// SettingsOf reads the stored publish settings of p. Fields missing from the
// stored value keep their defaults.
func SettingsOf(p project.Project) PublishSettings {
	ps := DefaultPublishSettings()
	if raw, ok := p.Settings[project.SettingsPublish]; ok {
		if err := json.Unmarshal(raw, &ps); err != nil {
			return DefaultPublishSettings()
		}
	}
	return ps
}

// Validate checks the custom domain, which must be a bare host name.
func (ps *PublishSettings) Validate() error {
	d := strings.ToLower(strings.TrimSpace(ps.CustomDomain))
	ps.CustomDomain = d
	if d == "" {
		return nil
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil || strings.ContainsAny(d, " /:@") || !strings.Contains(ascii, ".") || strings.HasSuffix(ascii, ".") {
		return fmt.Errorf("%w: custom domain %q", project.ErrInvalid, ps.CustomDomain)
	}
	return nil
}

// ProjectURL is where a project named name is served: the custom domain if
// set, else its subdomain of the default domain.
func (ps PublishSettings) ProjectURL(name string) string {
	if ps.CustomDomain != "" {
		return "https://" + ps.CustomDomain
	}
	return ProjectURL(name)
}

// ProjectURL is the default public URL, https://<slug>.buildify.app.
func ProjectURL(name string) string { return publish.URL(publish.DefaultDomain, name) }

// ConfirmLabel is "Update Project" once published.
func ConfirmLabel(status project.Status) string {
	if status == project.StatusPublished {
		return "Update Project"
	}
	return "Publish Project"
}
