package extract

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/nbexport/internal/docs"
)

// Static snapshots carry no computed style, so the effective font weight,
// font size and line height are approximated from inline style attributes
// and the browser's default bold elements, inherited down the tree.

const rootFontSizePx = 16

type computedStyle struct {
	fontWeight string

	fontSizePx  float64
	hasFontSize bool

	lineHeightPx     float64
	lineHeightFactor float64
}

// FontSize renders the size like getComputedStyle does ("16px"), or "" when
// nothing set one.
func (s computedStyle) FontSize() string {
	if !s.hasFontSize {
		return ""
	}
	return strconv.FormatFloat(s.fontSizePx, 'f', -1, 64) + "px"
}

// LineHeight renders the resolved line height in pixels, or "normal".
func (s computedStyle) LineHeight() string {
	switch {
	case s.lineHeightPx > 0:
		return strconv.FormatFloat(s.lineHeightPx, 'f', -1, 64) + "px"
	case s.lineHeightFactor > 0 && s.hasFontSize:
		return strconv.FormatFloat(s.lineHeightFactor*s.fontSizePx, 'f', -1, 64) + "px"
	}
	return "normal"
}

// Bold applies the page-side rule: numeric weight >= 600, or the keyword.
func (s computedStyle) Bold() bool {
	if n, err := strconv.Atoi(strings.TrimSpace(s.fontWeight)); err == nil {
		return n >= 600
	}
	return s.fontWeight == "bold"
}

func resolveStyle(n *html.Node) computedStyle {
	var chain []*html.Node
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode {
			chain = append(chain, cur)
		}
	}
	st := computedStyle{fontWeight: "400"}
	for i := len(chain) - 1; i >= 0; i-- {
		el := chain[i]
		switch strings.ToLower(el.Data) {
		case "b", "strong", "th", "h1", "h2", "h3", "h4", "h5", "h6":
			st.fontWeight = "700"
		}
		v, _ := getAttr(el, "style")
		decls := parseInlineStyle(v)
		if w, ok := decls["font-weight"]; ok {
			st.fontWeight = normalizeWeight(w, st.fontWeight)
		}
		if fs, ok := decls["font-size"]; ok {
			if px, ok := resolveLength(fs, st.baseFontSize()); ok {
				st.fontSizePx, st.hasFontSize = px, true
			}
		}
		if lh, ok := decls["line-height"]; ok {
			applyLineHeight(&st, lh)
		}
	}
	return st
}

func (s computedStyle) baseFontSize() float64 {
	if s.hasFontSize {
		return s.fontSizePx
	}
	return rootFontSizePx
}

func parseInlineStyle(v string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(v, ";") {
		k, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
		if k == "" || val == "" || strings.EqualFold(val, "inherit") {
			continue
		}
		out[k] = val
	}
	return out
}

func normalizeWeight(w, inherited string) string {
	switch strings.ToLower(w) {
	case "bold", "bolder":
		return "700"
	case "normal", "lighter":
		return "400"
	}
	if _, err := strconv.Atoi(w); err == nil {
		return w
	}
	return inherited
}

// resolveLength converts a CSS length to pixels; em and % are relative to
// base, the inherited font size.
func resolveLength(v string, base float64) (float64, bool) {
	num, unit, ok := splitLength(v)
	if !ok {
		return 0, false
	}
	switch unit {
	case "px", "":
		return num, true
	case "pt":
		return num * 96 / 72, true
	case "em":
		return num * base, true
	case "rem":
		return num * rootFontSizePx, true
	case "%":
		return num / 100 * base, true
	}
	return 0, false
}

// applyLineHeight runs after font-size for the same element, so relative
// values resolve against the element's own font size.
func applyLineHeight(st *computedStyle, v string) {
	if strings.EqualFold(v, "normal") {
		st.lineHeightPx, st.lineHeightFactor = 0, 0
		return
	}
	num, unit, ok := splitLength(v)
	if !ok {
		return
	}
	if unit == "" {
		// unitless values inherit as a factor
		st.lineHeightPx, st.lineHeightFactor = 0, num
		return
	}
	if px, ok := resolveLength(v, st.baseFontSize()); ok {
		st.lineHeightPx, st.lineHeightFactor = px, 0
	}
}

// splitLength splits "1.5em" into 1.5 and "em".
func splitLength(v string) (float64, string, bool) {
	v = strings.TrimSpace(v)
	i := 0
	for i < len(v) && (v[i] >= '0' && v[i] <= '9' || v[i] == '.' || v[i] == '-' || v[i] == '+') {
		i++
	}
	num, ok := docs.ParseCSSNumber(v[:i])
	if !ok {
		return 0, "", false
	}
	return num, strings.ToLower(strings.TrimSpace(v[i:])), true
}
