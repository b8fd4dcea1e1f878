package menu

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Slug lowercases name and replaces every run of whitespace with a hyphen.
// Leading and trailing whitespace is kept as a hyphen, so " Sales " becomes
// "-sales-".
func Slug(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(name), "-")
}
