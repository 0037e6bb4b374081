package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/nbexport/internal/docs"
)

// Snapshot is a captured page: its markup plus the selection and focus
// state a live extraction would read.
type Snapshot struct {
	HTML []byte
	// SelectionText and SelectionHTML describe the user's selection; both
	// empty means nothing is selected.
	SelectionText string
	SelectionHTML string
	// FocusID is the id attribute of the focused element, if any.
	FocusID string
}

// LoadSnapshot reads a saved page from disk.
func LoadSnapshot(path string) (Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Snapshot{HTML: b}, nil
}

// Static serves extractions from snapshots keyed by target id. It is the
// offline counterpart of the browser-backed extractor.
type Static struct {
	Pages map[string]Snapshot
}

func (s *Static) Extract(_ context.Context, mode Mode, target string) (Result, error) {
	snap, ok := s.Pages[target]
	if !ok {
		return Result{}, fmt.Errorf("no snapshot for target %q", target)
	}
	return FromSnapshot(mode, snap)
}

// FromSnapshot runs one extraction mode against a snapshot.
func FromSnapshot(mode Mode, snap Snapshot) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(snap.HTML))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	var res Result
	switch mode {
	case ModeSelectionOrBlock:
		res = selectionOrBlock(doc, snap)
	case ModeChatMessages:
		res = chatMessages(doc)
	case ModeSelectionHTML:
		res, err = selectionHTML(snap)
	case ModeExportHTML:
		res, err = exportHTML(doc, snap)
	default:
		return Result{}, fmt.Errorf("unsupported mode %s", mode)
	}
	if err != nil {
		return Result{}, err
	}
	res.Mode = mode
	if res.OK {
		res.Title = findTitle(doc)
	}
	return res, nil
}

func selectionOrBlock(doc *html.Node, snap Snapshot) Result {
	if sel := strings.TrimSpace(snap.SelectionText); sel != "" {
		return Result{OK: true, Value: sel}
	}
	body := findFirst(doc, tag("body"))
	start := findByID(doc, snap.FocusID)
	if start == nil {
		start = body
	}
	var text string
	if block := closest(start, contentBlock); block != nil {
		text = textContent(block)
	} else if body != nil {
		text = textContent(body)
	}
	return Result{OK: true, Value: strings.TrimSpace(text)}
}

func chatMessages(doc *html.Node) Result {
	root := findFirst(doc, chatContainer)
	if root == nil {
		return Result{OK: false, Error: "chat-panel-content not found"}
	}
	messages := []docs.ChatMessage{}
	for _, msgEl := range findAll(root, chatMessage) {
		targets := findAll(msgEl, chatParagraph)
		if len(targets) == 0 {
			targets = []*html.Node{msgEl}
		}
		for _, target := range targets {
			messages = append(messages, paragraphMessage(target))
		}
	}
	return Result{OK: true, Messages: messages}
}

// paragraphMessage turns every non-blank text node under target into a run.
func paragraphMessage(target *html.Node) docs.ChatMessage {
	msg := docs.ChatMessage{Runs: []docs.Run{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if strings.TrimSpace(c.Data) == "" {
					continue
				}
				st := resolveStyle(c.Parent)
				run := docs.Run{Text: c.Data, Bold: st.Bold()}
				if pt, ok := docs.PxToPt(st.FontSize()); ok {
					run.FontSizePt = &pt
				}
				msg.Runs = append(msg.Runs, run)
				continue
			}
			walk(c)
		}
	}
	walk(target)

	ps := resolveStyle(target)
	if ls, ok := docs.LineSpacingPercent(ps.LineHeight(), ps.FontSize()); ok {
		msg.LineSpacingPercent = &ls
	}
	return msg
}

func selectionHTML(snap Snapshot) (Result, error) {
	if snap.SelectionHTML == "" {
		return Result{OK: false, Error: "No selection"}, nil
	}
	frag, err := parseFragment(snap.SelectionHTML)
	if err != nil {
		return Result{}, fmt.Errorf("parse selection: %w", err)
	}
	markup, err := innerHTML(frag)
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true, HTML: markup, TextLength: docs.TextLen(textContent(frag))}, nil
}

func exportHTML(doc *html.Node, snap Snapshot) (Result, error) {
	if snap.SelectionHTML != "" {
		frag, err := parseFragment(snap.SelectionHTML)
		if err != nil {
			return Result{}, fmt.Errorf("parse selection: %w", err)
		}
		markup, err := innerHTML(frag)
		if err != nil {
			return Result{}, err
		}
		return Result{OK: true, HTML: markup, Source: "selection"}, nil
	}

	if container := findFirst(doc, chatContainer); container != nil {
		clone := cloneNode(container)
		cleanForExport(clone)
		stripLeading(clone)
		markup, err := innerHTML(clone)
		if err != nil {
			return Result{}, err
		}
		return Result{OK: true, HTML: markup, Source: ".chat-panel-content"}, nil
	}

	msgs := findAll(doc, chatMessage)
	if len(msgs) == 0 {
		return Result{OK: false, Error: "No content found"}, nil
	}
	wrap := &html.Node{Type: html.ElementNode, Data: "div"}
	for _, m := range msgs {
		d := cloneNode(m)
		cleanForExport(d)
		inner, err := innerHTML(d)
		if err != nil {
			return Result{}, err
		}
		holder, err := parseFragment(inner)
		if err != nil {
			return Result{}, err
		}
		stripLeading(holder)
		wrap.AppendChild(holder)
	}
	markup, err := innerHTML(wrap)
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true, HTML: markup, Source: "chat-message[]"}, nil
}
