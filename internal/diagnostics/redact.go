package diagnostics

import (
	"regexp"
	"strings"
)

// Redacted replaces every secret-bearing value in exported entries.
const Redacted = "**REDACTED**"

// Each rule names the capture group whose text is replaced; the rest of
// the match (key names, delimiters) is kept so exported entries stay
// readable.
type redactRule struct {
	re    *regexp.Regexp
	group int
}

var redactRules = []redactRule{
	// URL-embedded authorization codes: ...code%3d<value>%26 or trailing quote.
	{regexp.MustCompile(`%3d([A-Za-z0-9_\-\.]+)(%26|")`), 1},
	// JSON fields whose values identify accounts, devices or sessions.
	{regexp.MustCompile(`(access_token|id_token|client_info|resource|refresh_token|id|serialNumber|accessToken|connectionId|pmailadress|pname|ptelnr)":\s*"([A-Za-z0-9_\-\.\/\s@+]+)"`), 2},
	// Bearer tokens in captured headers.
	{regexp.MustCompile(`Bearer ([A-Za-z0-9_\-\.]+)`), 1},
}

// Redact replaces all secret-bearing values in s. The input is returned
// unchanged when no rule matches.
func Redact(s string) string {
	for _, rule := range redactRules {
		s = redactGroup(s, rule.re, rule.group)
	}
	return s
}

// redactGroup rebuilds s with the rule's capture group replaced in every
// match. Submatch indexes keep the surrounding text byte-exact.
func redactGroup(s string, re *regexp.Regexp, group int) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		start, end := m[2*group], m[2*group+1]
		if start < 0 || start < last {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(Redacted)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}
