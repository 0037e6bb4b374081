package extract

import "context"

// PageExtractor runs one extraction mode inside a target page. A returned
// error means the extraction could not run at all (page gone, evaluation
// failed); a page-side failure is a Result with OK=false.
//
// There is no built-in deadline: callers bound the call through ctx.
type PageExtractor interface {
	Extract(ctx context.Context, mode Mode, target string) (Result, error)
}
