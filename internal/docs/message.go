// Package docs holds the chat transcript model and compiles it into ordered
// Google Docs batchUpdate requests.
package docs

import "strings"

// Run is a span of transcript text sharing one formatting profile.
type Run struct {
	Text       string `json:"text"`
	Bold       bool   `json:"bold,omitempty"`
	FontSizePt *int   `json:"fontSizePt,omitempty"`
}

// ChatMessage is one paragraph of a chat transcript.
type ChatMessage struct {
	Runs []Run `json:"runs"`
	// LineSpacingPercent is relative to single spacing (100).
	LineSpacingPercent *float64 `json:"lineSpacingPercent,omitempty"`
}

// Text returns the concatenated text of all runs.
func (m ChatMessage) Text() string {
	var b strings.Builder
	for _, r := range m.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Styled reports whether the run carries any formatting worth a style request.
func (r Run) Styled() bool {
	return r.Bold || r.fontSize() > 0
}

func (r Run) fontSize() int {
	if r.FontSizePt == nil {
		return 0
	}
	return *r.FontSizePt
}
