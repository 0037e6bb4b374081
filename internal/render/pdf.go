package render

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/nbexport/internal/docs"
)

const (
	pdfBodyPt   = 11.0
	pdfLineMM   = 5.0
	pdfParaGap  = 4.0
	ptToMM      = 25.4 / 72
	lineHeightK = 1.15
)

// WriteTranscriptPDF renders chat messages to a PDF at outPath. Each message is
// a paragraph; bold and font size of every run are kept, and line spacing
// scales the line height.
func WriteTranscriptPDF(title string, messages []docs.ChatMessage, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	if t := strings.TrimSpace(title); t != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(0, 8, tr(t), "", "L", false)
		pdf.Ln(pdfParaGap)
	}

	for _, msg := range messages {
		if msg.Text() == "" {
			continue
		}
		spacing := 1.0
		if msg.LineSpacingPercent != nil && *msg.LineSpacingPercent > 0 {
			spacing = *msg.LineSpacingPercent / 100
		}
		for _, r := range msg.Runs {
			if r.Text == "" {
				continue
			}
			style := ""
			if r.Bold {
				style = "B"
			}
			size := pdfBodyPt
			if r.FontSizePt != nil && *r.FontSizePt > 0 {
				size = float64(*r.FontSizePt)
			}
			pdf.SetFont("Helvetica", style, size)
			h := size * ptToMM * lineHeightK * spacing
			if h < pdfLineMM*spacing {
				h = pdfLineMM * spacing
			}
			pdf.Write(h, tr(r.Text))
		}
		pdf.Ln(-1)
		pdf.Ln(pdfParaGap)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
