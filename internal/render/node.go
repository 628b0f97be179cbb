/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render projects a canvas state onto a visual tree and serializes it
// as HTML. It never mutates the canvas; interaction events are relayed back to
// the model through Dispatch.
package render

import (
	"strings"
)

// Attr is one element attribute.
type Attr struct{ Key, Val string }

// Decl is one CSS declaration.
type Decl struct{ Prop, Value string }

// Node is an element of the visual tree. A node with an empty Tag is a text node.
type Node struct {
	Tag      string
	Attrs    []Attr
	Style    []Decl
	Text     string
	Children []*Node
}

func el(tag string, attrs ...Attr) *Node { return &Node{Tag: tag, Attrs: attrs} }

func text(s string) *Node { return &Node{Text: s} }

func (n *Node) add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func (n *Node) css(prop, value string) *Node {
	n.Style = append(n.Style, Decl{Prop: prop, Value: value})
	return n
}

// Attr returns the attribute value or "".
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// StyleValue returns the last declaration for prop, as a browser would apply it.
func (n *Node) StyleValue(prop string) string {
	v := ""
	for _, d := range n.Style {
		if d.Prop == prop {
			v = d.Value
		}
	}
	return v
}

// StyleString renders the declarations as an inline style attribute value.
func (n *Node) StyleString() string {
	var b strings.Builder
	for i, d := range n.Style {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.Prop)
		b.WriteString(": ")
		b.WriteString(d.Value)
	}
	return b.String()
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node matching fn.
func (n *Node) Find(fn func(*Node) bool) *Node {
	var hit *Node
	n.Walk(func(x *Node) bool {
		if fn(x) {
			hit = x
			return false
		}
		return true
	})
	return hit
}

// TextContent concatenates all descendant text.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(x *Node) bool {
		if x.Tag == "" {
			b.WriteString(x.Text)
		}
		return true
	})
	return b.String()
}

// cssProp turns a camelCase style key into its CSS property name.
func cssProp(key string) string {
	if strings.Contains(key, "-") {
		return strings.ToLower(key)
	}
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
