package healthcare

import (
	"regexp"
)

// RedactionMarker replaces every sensitive match
const RedactionMarker = "[REDACTED]"

type redactionRule struct {
	name    string
	pattern *regexp.Regexp
}

// redactionRules run in this order. A later rule only sees the text left by
// earlier ones, so the earlier rule owns any overlapping span.
var redactionRules = []redactionRule{
	{"phone", regexp.MustCompile(`(?:\+1[-. ]?)?\(?\b\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"date", regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)},
	{"name", regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+){1,2}\b`)},
}

// RedactionRules lists the rule names in the order they are applied
func RedactionRules() []string {
	names := make([]string, len(redactionRules))
	for i, r := range redactionRules {
		names[i] = r.name
	}
	return names
}

// RedactSensitiveInformation replaces phone numbers, emails, SSNs, dates and
// capitalized two or three word names with RedactionMarker. Text without any
// match is returned unchanged.
func RedactSensitiveInformation(text string) string {
	for _, rule := range redactionRules {
		text = rule.pattern.ReplaceAllLiteralString(text, RedactionMarker)
	}
	return text
}
