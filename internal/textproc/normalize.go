// Package textproc cleans listing text and extracts the structured
// entities and keyword signals the rest of the pipeline works with.
package textproc

import (
	"regexp"
	"strings"
)

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// invisibleMarkers are characters pasted listings commonly carry that
// would otherwise defeat substring keyword matching.
var invisibleMarkers = strings.NewReplacer(
	"\u200b", "", // zero-width space
	"\ufeff", "", // BOM
)

// Normalize strips invisible unicode markers, collapses runs of horizontal
// whitespace to a single space, collapses 3+ consecutive newlines to exactly
// two, and trims the result. Idempotent; empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = invisibleMarkers.Replace(text)
	text = horizontalWS.ReplaceAllString(text, " ")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
