// Package linkextract pulls URLs out of free-form message text.
package linkextract

import (
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)

// ExtractURLs returns every URL found in text, in order of appearance.
// Trailing sentence punctuation is stripped from each match. Repeated URLs
// are kept: each occurrence is a separate extraction.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)

	var urls []string

	for _, m := range matches {
		u := strings.TrimRight(m, ".,;:!?)")
		if u == "" {
			continue
		}

		urls = append(urls, u)
	}

	return urls
}
