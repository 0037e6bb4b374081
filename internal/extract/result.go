package extract

import (
	"encoding/json"

	"github.com/hyperifyio/nbexport/internal/docs"
)

// Result is what a page extraction produced. OK=false carries Error; the
// payload fields that are meaningful depend on Mode.
type Result struct {
	Mode Mode `json:"-"`

	OK         bool               `json:"ok"`
	Error      string             `json:"error,omitempty"`
	Value      string             `json:"value,omitempty"`
	Messages   []docs.ChatMessage `json:"messages,omitempty"`
	HTML       string             `json:"html,omitempty"`
	TextLength int                `json:"textLength,omitempty"`
	Source     string             `json:"source,omitempty"`
	// Title is the page title at extraction time; it is not part of the
	// relay protocol.
	Title string `json:"title,omitempty"`
}

// Failure builds a failed result.
func Failure(mode Mode, reason string) Result {
	return Result{Mode: mode, OK: false, Error: reason}
}

// MarshalJSON writes the relay protocol shape for the result's mode:
//
//	GET_SELECTION_OR_BLOCK  {ok, value}
//	GET_CHAT_MESSAGES       {ok, messages}
//	GET_SELECTION_HTML      {ok, html, textLength}
//	GET_EXPORT_HTML         {ok, html, source}
//
// and {ok:false, error} for every failure.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}{false, r.Error})
	}
	switch r.Mode {
	case ModeSelectionOrBlock:
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Value string `json:"value"`
		}{true, r.Value})
	case ModeChatMessages:
		msgs := r.Messages
		if msgs == nil {
			msgs = []docs.ChatMessage{}
		}
		return json.Marshal(struct {
			OK       bool               `json:"ok"`
			Messages []docs.ChatMessage `json:"messages"`
		}{true, msgs})
	case ModeSelectionHTML:
		return json.Marshal(struct {
			OK         bool   `json:"ok"`
			HTML       string `json:"html"`
			TextLength int    `json:"textLength"`
		}{true, r.HTML, r.TextLength})
	case ModeExportHTML:
		return json.Marshal(struct {
			OK     bool   `json:"ok"`
			HTML   string `json:"html"`
			Source string `json:"source"`
		}{true, r.HTML, r.Source})
	}
	type plain Result
	return json.Marshal(plain(r))
}
