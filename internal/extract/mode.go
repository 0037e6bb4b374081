package extract

import (
	"fmt"
	"strings"
)

// Mode selects what the page extractor returns.
type Mode int

const (
	ModeSelectionOrBlock Mode = iota + 1
	ModeChatMessages
	ModeSelectionHTML
	ModeExportHTML
)

// Modes lists every extraction mode in protocol order.
var Modes = []Mode{ModeSelectionOrBlock, ModeChatMessages, ModeSelectionHTML, ModeExportHTML}

// MessageType returns the relay protocol tag for the mode.
func (m Mode) MessageType() string {
	switch m {
	case ModeSelectionOrBlock:
		return "GET_SELECTION_OR_BLOCK"
	case ModeChatMessages:
		return "GET_CHAT_MESSAGES"
	case ModeSelectionHTML:
		return "GET_SELECTION_HTML"
	case ModeExportHTML:
		return "GET_EXPORT_HTML"
	}
	return ""
}

func (m Mode) String() string {
	switch m {
	case ModeSelectionOrBlock:
		return "selection-or-block"
	case ModeChatMessages:
		return "chat-messages"
	case ModeSelectionHTML:
		return "selection-html"
	case ModeExportHTML:
		return "export-html"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts either the CLI name ("chat-messages") or the protocol
// tag ("GET_CHAT_MESSAGES").
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for _, m := range Modes {
		if strings.EqualFold(s, m.String()) || s == m.MessageType() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown extraction mode %q", s)
}
