package mapping

import (
	"regexp"
	"strings"
)

// controlIDPattern matches family-style control identifiers embedded in
// free-text references: a two-letter family, a hyphen, a number, and an
// optional parenthesized enhancement (AC-1, SC-28, AC-2(1)). No trailing
// word boundary: after a closing paren it can never hold, and it would make
// the matcher drop the enhancement group and return the base control.
var controlIDPattern = regexp.MustCompile(`\b([A-Z]{2})-(\d+)(?:\((\d+)\))?`)

// extractControlIDs pulls every control identifier out of a reference string.
// A reference with no identifiers yields an empty slice, never an error.
func extractControlIDs(reference string) []string {
	matches := controlIDPattern.FindAllStringSubmatch(reference, -1)
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		family, number, enhancement := m[1], m[2], m[3]
		if enhancement != "" {
			ids = append(ids, family+"-"+number+"("+enhancement+")")
		} else {
			ids = append(ids, family+"-"+number)
		}
	}
	return ids
}

// mentionsAny reports whether the reference text cites any of the publication
// tokens. An empty token list never matches: a framework without declared
// reference tokens cannot be a synthesis target.
func mentionsAny(reference string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(reference, tok) {
			return true
		}
	}
	return false
}
