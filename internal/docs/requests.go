package docs

import "strings"

// Request is one entry of a documents.batchUpdate call. Exactly one field
// is set.
type Request struct {
	InsertText           *InsertTextRequest           `json:"insertText,omitempty"`
	UpdateTextStyle      *UpdateTextStyleRequest      `json:"updateTextStyle,omitempty"`
	UpdateParagraphStyle *UpdateParagraphStyleRequest `json:"updateParagraphStyle,omitempty"`
}

// Kind names the populated request variant.
type Kind string

const (
	KindInsertText           Kind = "insertText"
	KindUpdateTextStyle      Kind = "updateTextStyle"
	KindUpdateParagraphStyle Kind = "updateParagraphStyle"
)

// Kind returns which variant r holds, or "" for an empty request.
func (r Request) Kind() Kind {
	switch {
	case r.InsertText != nil:
		return KindInsertText
	case r.UpdateTextStyle != nil:
		return KindUpdateTextStyle
	case r.UpdateParagraphStyle != nil:
		return KindUpdateParagraphStyle
	}
	return ""
}

type Location struct {
	Index int `json:"index"`
}

type EndOfSegmentLocation struct {
	SegmentID string `json:"segmentId"`
}

type InsertTextRequest struct {
	Text                 string                `json:"text"`
	Location             *Location             `json:"location,omitempty"`
	EndOfSegmentLocation *EndOfSegmentLocation `json:"endOfSegmentLocation,omitempty"`
}

// Range is a half-open span [StartIndex, EndIndex) of the document body.
type Range struct {
	StartIndex int `json:"startIndex"`
	EndIndex   int `json:"endIndex"`
}

// Len returns the number of indexes covered by the range.
func (r Range) Len() int { return r.EndIndex - r.StartIndex }

type Dimension struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
}

type TextStyle struct {
	Bold     bool       `json:"bold,omitempty"`
	FontSize *Dimension `json:"fontSize,omitempty"`
}

// fields returns the update mask for the style properties that are set.
func (s TextStyle) fields() string {
	var f []string
	if s.Bold {
		f = append(f, "bold")
	}
	if s.FontSize != nil {
		f = append(f, "fontSize")
	}
	return strings.Join(f, ",")
}

type UpdateTextStyleRequest struct {
	Range     Range     `json:"range"`
	TextStyle TextStyle `json:"textStyle"`
	Fields    string    `json:"fields"`
}

type ParagraphStyle struct {
	LineSpacing float64 `json:"lineSpacing"`
}

type UpdateParagraphStyleRequest struct {
	Range          Range          `json:"range"`
	ParagraphStyle ParagraphStyle `json:"paragraphStyle"`
	Fields         string         `json:"fields"`
}

// InsertAt builds an insertText request at a body index.
func InsertAt(index int, text string) Request {
	return Request{InsertText: &InsertTextRequest{Text: text, Location: &Location{Index: index}}}
}

// AppendText builds an insertText request targeting the end of the body.
func AppendText(text string) Request {
	return Request{InsertText: &InsertTextRequest{Text: text, EndOfSegmentLocation: &EndOfSegmentLocation{}}}
}
