package xapi

import (
	"html"
	"regexp"
	"strings"
)

// DefaultTitleLength is the maximum title length CreateTitle produces.
const DefaultTitleLength = 60

var tagPattern = regexp.MustCompile(`(<([^>]+)>)`)

// CreateTitle strips markup from raw and truncates the result to maxLength
// runes, ending truncated titles with "...". maxLength <= 0 means
// DefaultTitleLength.
func CreateTitle(raw string, maxLength int) string {
	if raw == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultTitleLength
	}
	title := StripMarkup(raw)
	runes := []rune(title)
	if len(runes) > maxLength {
		cut := maxLength - 3
		if cut < 0 {
			cut = 0
		}
		title = string(runes[:cut]) + "..."
	}
	return title
}

// StripMarkup removes tags from raw and decodes entities.
func StripMarkup(raw string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(raw, "")))
}
