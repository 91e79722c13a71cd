// Package sanitize reduces user and feed supplied text to plain text.
package sanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 8

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s and decodes entities, so "a &amp; b"
// reads "a & b". Decoding can surface new tags from entity-encoded markup, so
// the string is stripped again until it stops changing. Input still changing
// after maxPasses is returned in its escaped form.
func PlainText(s string) string {
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(s))
		if next == s {
			return next
		}
		s = next
	}
	return strict.Sanitize(s)
}
