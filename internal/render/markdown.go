// Package render turns exported chat content into local preview formats:
// sanitized HTML, Markdown and PDF.
package render

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown converts export HTML into CommonMark with table support.
type Markdown struct {
	conv *converter.Converter
}

func NewMarkdown() *Markdown {
	return &Markdown{conv: converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)}
}

// Convert returns the Markdown for html with a trailing newline.
func (m *Markdown) Convert(html string) (string, error) {
	md, err := m.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	return md + "\n", nil
}
