package docs

import (
	"math"
	"strconv"
	"strings"
)

// ParseCSSNumber reads the leading decimal number of a CSS value such as
// "16px" or "1.5". It reports false for values like "normal" or "".
func ParseCSSNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp && end+1 < len(s) && isExpTail(s[end+1:]):
			seenExp = true
		default:
			break scan
		}
		end++
	}
	if !seenDigit {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func isExpTail(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// PxToPt converts a CSS pixel value to whole points at 96 DPI.
func PxToPt(px string) (int, bool) {
	v, ok := ParseCSSNumber(px)
	if !ok {
		return 0, false
	}
	return roundHalfUp(v * 72 / 96), true
}

// roundHalfUp matches the browser's Math.round, which rounds .5 toward +Inf.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// LineSpacingPercent derives paragraph line spacing from computed
// line-height and font-size values.
func LineSpacingPercent(lineHeight, fontSize string) (float64, bool) {
	lh, ok := ParseCSSNumber(lineHeight)
	if !ok {
		return 0, false
	}
	fs, ok := ParseCSSNumber(fontSize)
	if !ok || fs <= 0 {
		return 0, false
	}
	return lh / fs * 100, true
}
