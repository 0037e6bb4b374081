package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nbexport/internal/extract"
)

// Extract evaluates the mode's page script inside the target tab. It
// waits for as long as ctx allows.
func (s *Session) Extract(ctx context.Context, mode extract.Mode, target string) (extract.Result, error) {
	src, err := extract.Script(mode)
	if err != nil {
		return extract.Result{}, err
	}
	p, err := s.page(ctx, target)
	if err != nil {
		return extract.Result{}, err
	}
	obj, err := p.Eval(src)
	if err != nil {
		return extract.Result{}, fmt.Errorf("browser: evaluate %s: %w", mode, err)
	}
	raw, err := obj.Value.MarshalJSON()
	if err != nil {
		return extract.Result{}, fmt.Errorf("browser: read %s result: %w", mode, err)
	}
	log.Debug().Str("mode", mode.String()).Str("tab", target).Int("bytes", len(raw)).Msg("page script returned")
	return decodeResult(mode, raw)
}

// decodeResult maps the page script's return value onto a Result. A missing
// value is an empty selection for ModeSelectionOrBlock and the "No result"
// failure for every other mode.
func decodeResult(mode extract.Mode, raw []byte) (extract.Result, error) {
	var res *extract.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return extract.Result{}, fmt.Errorf("browser: decode %s result: %w", mode, err)
	}
	if res == nil {
		if mode == extract.ModeSelectionOrBlock {
			return extract.Result{Mode: mode, OK: true}, nil
		}
		return extract.Failure(mode, "No result"), nil
	}
	res.Mode = mode
	return *res, nil
}
