// Package security masks credentials before they reach logs or the terminal.
package security

import (
	"regexp"
	"strings"
)

// sensitivePatterns match credentials embedded in free text. The first
// submatch is kept and the rest of the match is masked.
var sensitivePatterns = []*regexp.Regexp{
	// key=value and key: value pairs, including libpq style DSNs
	regexp.MustCompile(`(?i)((?:password|passwd|pwd|secret|jwt_secret|token|api[_-]?key)\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s&,;]+)`),
	// userinfo passwords in URLs
	regexp.MustCompile(`([a-z][a-z0-9+.-]*://[^:/\s@]+:)([^@\s]+)@`),
	// bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-_.=]+)`),
}

// MaskCredential keeps a short prefix and suffix of long values so they can
// still be told apart.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskSecrets masks every credential found in input.
func MaskSecrets(input string) string {
	result := input
	for i, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			sub := pattern.FindStringSubmatch(match)
			switch i {
			case 1:
				return sub[1] + "****@"
			case 2:
				return sub[1] + MaskCredential(sub[2])
			default:
				return sub[1] + "****"
			}
		})
	}
	return result
}

// RedactDSN returns a database connection string safe to display. Both URL
// and key=value forms are handled.
func RedactDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	return MaskSecrets(dsn)
}
