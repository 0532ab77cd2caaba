package textproc

import (
	"regexp"

	"go-fraud-inspector/pkg/models"
)

var (
	urlRE = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)
	// RE2's \w and \b are ASCII-only, so unicode local parts need explicit
	// letter/number classes and no word-boundary anchors.
	emailRE = regexp.MustCompile(`[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+\.[\p{L}\p{N}_]+`)
	// Korean mobile format (+82/0 10-xxxx-xxxx with optional separators)
	// or a generic grouped-digit number.
	phoneRE   = regexp.MustCompile(`(?:\+?82|0)\s?-?\s?1[0-9]\s?-?\s?[0-9]{3,4}\s?-?\s?[0-9]{4}|\b[0-9]{3}[- ]?[0-9]{3,4}[- ]?[0-9]{4}\b`)
	accountRE = regexp.MustCompile(`\b[0-9]{2,4}[- ]?[0-9]{2,4}[- ]?[0-9]{2,6}[- ]?[0-9]{1,6}\b`)
)

// ExtractPatterns scans text with independent regexes for URLs, emails,
// phone numbers and account-like digit sequences. Each category is
// deduplicated preserving first-seen order; there is no cross-category
// deduplication.
func ExtractPatterns(text string) models.ExtractedPatterns {
	return models.ExtractedPatterns{
		URLs:     dedupe(urlRE.FindAllString(text, -1)),
		Emails:   dedupe(emailRE.FindAllString(text, -1)),
		Phones:   dedupe(phoneRE.FindAllString(text, -1)),
		Accounts: dedupe(accountRE.FindAllString(text, -1)),
	}
}

func dedupe(matches []string) []string {
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
