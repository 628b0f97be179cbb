/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import "maps"

// BaseProperties are the style keys every widget exposes in the properties panel.
var BaseProperties = []string{
	"backgroundColor", "border", "borderRadius", "padding", "color",
	"fontSize", "fontWeight", "opacity",
}

func baseStyle() map[string]string {
	return map[string]string{
		"backgroundColor": "#ffffff",
		"border":          "1px solid #e2e8f0",
		"borderRadius":    "6px",
		"padding":         "8px",
	}
}

func styleWith(over map[string]string) map[string]string {
	s := baseStyle()
	maps.Copy(s, over)
	return s
}

func def(id, name, category, desc string, w, h float64, content string, style map[string]string, props ...string) WidgetDefinition {
	return WidgetDefinition{
		TypeID: id, DisplayName: name, Category: category, Description: desc,
		DefaultWidth: w, DefaultHeight: h, DefaultContent: content, DefaultStyle: style,
		Properties: props,
	}
}

// DefaultDefinitions is the built-in palette.
func DefaultDefinitions() []WidgetDefinition {
	return []WidgetDefinition{
		// Layout
		def("container", "Container", "Layout", "Basic container for content", 300, 200, "", baseStyle()),
		def("grid", "Grid", "Layout", "Responsive grid system", 150, 50, "", baseStyle()),
		def("flex", "Flex Container", "Layout", "Flexible layout container", 150, 50, "", baseStyle()),

		// Input
		def("text-input", "Text Input", "Input", "Single line text input", 200, 40, "", baseStyle()),
		def("button", "Button", "Input", "Clickable button element", 120, 40, "Click me", styleWith(map[string]string{
			"backgroundColor": "#3b82f6",
			"color":           "#ffffff",
			"cursor":          "pointer",
			"fontWeight":      "500",
		}), append(append([]string(nil), BaseProperties...), "cursor")...),

		// Display
		def("text", "Text", "Display", "Static text content", 150, 30, "Sample text", styleWith(map[string]string{
			"border":          "none",
			"backgroundColor": "transparent",
			"padding":         "4px",
		}), append(append([]string(nil), BaseProperties...), "textAlign", "lineHeight")...),
		def("image", "Image", "Display", "Display images", 200, 150, "https://via.placeholder.com/200x150", styleWith(map[string]string{
			"padding":  "0",
			"overflow": "hidden",
		}), "border", "borderRadius", "opacity", "overflow", "objectFit"),
		def("card", "Card", "Display", "Content card container", 250, 180, "", baseStyle()),

		// Data
		def("table", "Table", "Data", "Data table display", 150, 50, "", baseStyle()),
		def("chart", "Chart", "Data", "Data visualization chart", 150, 50, "", baseStyle()),
		def("list", "List", "Data", "Ordered or unordered list", 150, 50, "", baseStyle()),

		// Media
		def("video", "Video", "Media", "Video player component", 150, 50, "", baseStyle()),

		// Form
		def("form", "Form", "Form", "Form container", 150, 50, "", baseStyle()),
		def("date-picker", "Date Picker", "Form", "Date selection input", 150, 50, "", baseStyle()),
	}
}

// Default returns a catalog holding DefaultDefinitions.
func Default() *Catalog { return MustNew(DefaultDefinitions()...) }
