package services

import (
	"regexp"
	"strings"
)

var (
	menuLinkRe  = regexp.MustCompile(`(?i)/m/([^/?#]+)`)
	tableLinkRe = regexp.MustCompile(`(?i)/table/([^/?#]+)`)
)

// ParseTableSlug extracts the table slug from scanned QR text. A /m/<slug> link
// wins over /table/<slug>; anything else is taken verbatim after trimming.
func ParseTableSlug(text string) string {
	if m := menuLinkRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := tableLinkRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}
