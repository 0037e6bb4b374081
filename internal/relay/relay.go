// Package relay is the export orchestrator: it takes typed extraction
// requests, resolves the target tab, runs the page extractor there and
// returns the protocol response.
package relay

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nbexport/internal/extract"
)

// Failure messages returned in {ok:false, error}.
const (
	MsgNoTarget       = "No target tab"
	MsgUnknownRequest = "unknown message type"
)

// Request is an inbound protocol message.
type Request struct {
	Type  string `json:"type"`
	TabID string `json:"tabId,omitempty"`
}

// Sender describes where a request came from. TabID is used when the
// request names no tab itself.
type Sender struct {
	TabID string
}

// Relay dispatches requests to a PageExtractor. It keeps no state between
// calls.
type Relay struct {
	Extractor extract.PageExtractor
	// Timeout bounds each page extraction. Zero waits for as long as the
	// caller's context allows, so a hung page hangs the request.
	Timeout time.Duration
}

// Handle answers one protocol message.
func (r *Relay) Handle(ctx context.Context, req Request, sender Sender) extract.Result {
	mode, ok := modeForType(req.Type)
	if !ok {
		return extract.Failure(0, MsgUnknownRequest)
	}
	target := resolveTarget(req, sender)
	if target == "" {
		return extract.Failure(mode, MsgNoTarget)
	}
	switch mode {
	case extract.ModeSelectionOrBlock:
		return r.SelectionOrBlock(ctx, target)
	case extract.ModeChatMessages:
		return r.ChatMessages(ctx, target)
	case extract.ModeSelectionHTML:
		return r.SelectionHTML(ctx, target)
	case extract.ModeExportHTML:
		return r.ExportHTML(ctx, target)
	}
	return extract.Failure(mode, MsgUnknownRequest)
}

// SelectionOrBlock returns the selected text or the focused content block.
func (r *Relay) SelectionOrBlock(ctx context.Context, target string) extract.Result {
	return r.run(ctx, extract.ModeSelectionOrBlock, target)
}

// ChatMessages returns the chat transcript as styled paragraphs.
func (r *Relay) ChatMessages(ctx context.Context, target string) extract.Result {
	return r.run(ctx, extract.ModeChatMessages, target)
}

// SelectionHTML returns the selection's markup and text length.
func (r *Relay) SelectionHTML(ctx context.Context, target string) extract.Result {
	return r.run(ctx, extract.ModeSelectionHTML, target)
}

// ExportHTML returns the cleaned chat panel markup, preferring a selection.
func (r *Relay) ExportHTML(ctx context.Context, target string) extract.Result {
	return r.run(ctx, extract.ModeExportHTML, target)
}

func (r *Relay) run(ctx context.Context, mode extract.Mode, target string) extract.Result {
	if target == "" {
		return extract.Failure(mode, MsgNoTarget)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	res, err := r.Extractor.Extract(ctx, mode, target)
	if err != nil {
		log.Warn().Err(err).Str("mode", mode.String()).Str("tab", target).Msg("page extraction failed")
		return extract.Failure(mode, err.Error())
	}
	res.Mode = mode
	if !res.OK && res.Error == "" {
		res.Error = "No result"
	}
	return res
}

func resolveTarget(req Request, sender Sender) string {
	if t := strings.TrimSpace(req.TabID); t != "" {
		return t
	}
	return strings.TrimSpace(sender.TabID)
}

func modeForType(t string) (extract.Mode, bool) {
	for _, m := range extract.Modes {
		if m.MessageType() == t {
			return m, true
		}
	}
	return 0, false
}
