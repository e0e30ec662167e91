// Package util holds small helpers for keeping secrets and provider noise
// out of log lines.
package util

import (
	"fmt"
	"unicode/utf8"
)

// TruncateLog cuts s to at most maxLen bytes and notes the original size.
// The cut backs off to a rune boundary so the result stays valid UTF-8.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// MaskToken keeps only the tail of an OAuth token so it can be logged.
func MaskToken(t string) string {
	if len(t) < 20 {
		return "..."
	}
	return "..." + t[len(t)-8:]
}
