package content

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Sanitize strips every HTML element from a chat message body. The result is
// HTML-escaped text: "a < b" becomes "a &lt; b" and encoded markup stays encoded.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Blank reports whether s has no visible characters.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
