// Package extract finds verification codes and links in message bodies.
package extract

import (
	"regexp"
	"strings"
)

// codePattern matches a standalone run of 4 to 8 digits.
var codePattern = regexp.MustCompile(`\b(\d{4,8})\b`)

// codeHint marks a line as likely to carry a one-time code.
var codeHint = regexp.MustCompile(`(?i)\b(code|otp|pin|passcode|verification|verify|one-time|one time|2fa|security)\b`)

// linkPattern matches http(s) URLs up to whitespace or a closing delimiter.
var linkPattern = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)

// Codes returns the numeric codes found on lines that mention a code,
// deduplicated in order of first occurrence. The subject is searched too.
func Codes(subject, body string) []string {
	var matches []string
	for _, line := range strings.Split(subject+"\n"+body, "\n") {
		if !codeHint.MatchString(line) {
			continue
		}
		for _, m := range codePattern.FindAllStringSubmatch(line, -1) {
			matches = append(matches, m[1])
		}
	}
	return dedupe(matches)
}

// Links returns the URLs in text, deduplicated in order of first
// occurrence, with trailing sentence punctuation removed.
func Links(text string) []string {
	raw := linkPattern.FindAllString(text, -1)
	for i, l := range raw {
		raw[i] = strings.TrimRight(l, ".,;:!?")
	}
	return dedupe(raw)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range in {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}
