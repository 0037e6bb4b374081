package docs

import (
	"math"
	"unicode/utf16"

	"github.com/rs/zerolog/log"
)

// FirstBodyIndex is the first insertable position of an empty document body.
// Index 0 is the body's structural start and is never targeted.
const FirstBodyIndex = 1

// TextLen measures s the way the Docs API indexes text: in UTF-16 code units.
func TextLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Compile turns a transcript into batchUpdate requests that rebuild it in an
// empty document. Requests must be applied in order: every range refers to
// text inserted by an earlier request.
//
// Per message the output is: separator newline (all but the first written
// message), body text, trailing newline, one updateTextStyle per styled run,
// and an updateParagraphStyle covering the paragraph and its newline when a
// line spacing is known. Messages without text are dropped entirely.
func Compile(messages []ChatMessage) []Request {
	requests := make([]Request, 0, len(messages)*3)
	cursor := FirstBodyIndex
	written := 0
	for i, msg := range messages {
		text := msg.Text()
		if text == "" {
			log.Debug().Int("message", i).Msg("skipping empty message")
			continue
		}
		if written > 0 {
			requests = append(requests, InsertAt(cursor, "\n"))
			cursor++
		}
		written++

		start := cursor
		end := start + TextLen(text)
		requests = append(requests, InsertAt(start, text))
		requests = append(requests, InsertAt(end, "\n"))
		cursor = end + 1

		pos := start
		for _, run := range msg.Runs {
			n := TextLen(run.Text)
			if n == 0 {
				continue
			}
			if run.Styled() {
				requests = append(requests, styleRun(run, Range{StartIndex: pos, EndIndex: pos + n}))
			}
			pos += n
		}

		if ls := msg.LineSpacingPercent; ls != nil && *ls != 0 && !math.IsNaN(*ls) && !math.IsInf(*ls, 0) {
			requests = append(requests, Request{UpdateParagraphStyle: &UpdateParagraphStyleRequest{
				Range:          Range{StartIndex: start, EndIndex: end + 1},
				ParagraphStyle: ParagraphStyle{LineSpacing: *ls},
				Fields:         "lineSpacing",
			}})
		}
	}
	return requests
}

func styleRun(run Run, rng Range) Request {
	style := TextStyle{Bold: run.Bold}
	if size := run.fontSize(); size > 0 {
		style.FontSize = &Dimension{Magnitude: float64(size), Unit: "PT"}
	}
	return Request{UpdateTextStyle: &UpdateTextStyleRequest{
		Range:     rng,
		TextStyle: style,
		Fields:    style.fields(),
	}}
}
