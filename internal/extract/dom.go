package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// matcher reports whether an element satisfies a simple selector.
type matcher func(n *html.Node) bool

func tag(name string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, name)
	}
}

func class(name string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, name)
	}
}

func attr(key string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		_, ok := getAttr(n, key)
		return ok
	}
}

func anyOf(ms ...matcher) matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if m(n) {
				return true
			}
		}
		return false
	}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, name string) bool {
	v, ok := getAttr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == name {
			return true
		}
	}
	return false
}

// findFirst returns the first node in document order (n included) that
// matches m.
func findFirst(n *html.Node, m matcher) *html.Node {
	if m(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, m); res != nil {
			return res
		}
	}
	return nil
}

// findAll returns every descendant of n (n excluded) matching m, in
// document order.
func findAll(n *html.Node, m matcher) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// closest walks from n up through its ancestors and returns the first
// element matching m.
func closest(n *html.Node, m matcher) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && m(cur) {
			return cur
		}
	}
	return nil
}

func findByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	return findFirst(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := getAttr(n, "id")
		return ok && v == id
	})
}

// textContent concatenates all descendant text nodes like the DOM property.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
			return
		}
		if cur.Type == html.CommentNode {
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func findTitle(doc *html.Node) string {
	t := findFirst(doc, tag("title"))
	if t == nil {
		return ""
	}
	return strings.TrimSpace(textContent(t))
}

// cloneNode deep-copies n into a detached tree.
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}

// innerHTML serialises the children of n.
func innerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// parseFragment parses markup as the children of a detached <div>.
func parseFragment(markup string) (*html.Node, error) {
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), div)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		div.AppendChild(n)
	}
	return div, nil
}
