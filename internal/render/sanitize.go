package render

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// exportPolicy keeps document structure and inline formatting, including the
// inline styles Docs import honours, and drops scripts, handlers and forms.
func exportPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowStyles("font-weight", "font-style", "font-size", "line-height", "text-decoration").Globally()
		p.AllowElements("span", "div")
		policy = p
	})
	return policy
}

// Sanitize filters html through the export policy.
func Sanitize(html string) string {
	return exportPolicy().Sanitize(html)
}
