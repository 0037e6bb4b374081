package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Chat panel markers on the NotebookLM page.
var (
	chatContainer   = class("chat-panel-content")
	chatMessage     = tag("chat-message")
	chatParagraph   = class("labs-tailwind-structural-element-view-v2")
	exportNoise     = anyOf(class("chat-panel-empty-state"), tag("mat-card-actions"), class("citation-marker"))
	exportParagraph = class("paragraph")
)

// contentBlock is the prioritised set of ancestors that bound a "block"
// when nothing is selected.
var contentBlock = anyOf(
	attr("data-test-id"), attr("data-testid"),
	tag("article"), tag("section"), tag("main"),
	class("doc"), class("note"), class("card"),
)

// cleanForExport removes UI chrome from a detached subtree and inserts a
// newline text node after every paragraph so spacing survives conversion.
func cleanForExport(root *html.Node) {
	for _, n := range findAll(root, exportNoise) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	for _, p := range findAll(root, exportParagraph) {
		if p.Parent == nil {
			continue
		}
		p.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, p.NextSibling)
	}
}

// stripLeading drops leading whitespace-only text nodes and <br> elements.
func stripLeading(root *html.Node) {
	for n := root.FirstChild; n != nil; n = root.FirstChild {
		blank := n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
		br := n.Type == html.ElementNode && strings.EqualFold(n.Data, "br")
		if !blank && !br {
			return
		}
		root.RemoveChild(n)
	}
}
