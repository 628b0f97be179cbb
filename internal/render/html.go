/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"buildify/internal/canvas"
)

// HTML converts the visual tree into an x/net/html node tree.
func (n *Node) HTML() *html.Node {
	if n.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	h := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	for _, a := range n.Attrs {
		h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	if len(n.Style) > 0 {
		h.Attr = append(h.Attr, html.Attribute{Key: "style", Val: n.StyleString()})
	}
	for _, c := range n.Children {
		h.AppendChild(c.HTML())
	}
	return h
}

// RenderHTML writes the canvas fragment for s.
func RenderHTML(w io.Writer, s canvas.State) error { return RenderHTMLWith(w, s, Options{}) }

// RenderHTMLWith writes the canvas fragment for s using opts.
func RenderHTMLWith(w io.Writer, s canvas.State, opts Options) error {
	if err := html.Render(w, RenderWith(s, opts).HTML()); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// Page writes a standalone document holding the read-only canvas, as published.
func Page(w io.Writer, title, description string, s canvas.State, opts Options) error {
	opts.ReadOnly = true
	opts.Bare = true

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := elem(atom.Html, html.Attribute{Key: "lang", Val: "en"})
	head := elem(atom.Head)
	head.AppendChild(elem(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(elem(atom.Meta,
		html.Attribute{Key: "name", Val: "viewport"},
		html.Attribute{Key: "content", Val: "width=device-width, initial-scale=1"}))
	if description != "" {
		head.AppendChild(elem(atom.Meta,
			html.Attribute{Key: "name", Val: "description"},
			html.Attribute{Key: "content", Val: description}))
	}
	t := elem(atom.Title)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(t)
	body := elem(atom.Body, html.Attribute{Key: "style", Val: "margin: 0; font-family: system-ui, sans-serif"})
	body.AppendChild(RenderWith(s, opts).HTML())
	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)
	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func elem(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}
