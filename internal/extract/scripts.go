package extract

import (
	"embed"
	"fmt"
)

// The page-side extractors are plain function expressions with no
// arguments; each returns a Result-shaped object.
//
//go:embed js/*.js
var scripts embed.FS

var scriptFiles = map[Mode]string{
	ModeSelectionOrBlock: "js/selection_or_block.js",
	ModeChatMessages:     "js/chat_messages.js",
	ModeSelectionHTML:    "js/selection_html.js",
	ModeExportHTML:       "js/export_html.js",
}

// Script returns the in-page function source for mode.
func Script(mode Mode) (string, error) {
	name, ok := scriptFiles[mode]
	if !ok {
		return "", fmt.Errorf("no page script for %s", mode)
	}
	b, err := scripts.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read page script: %w", err)
	}
	return string(b), nil
}
