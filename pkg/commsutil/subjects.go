package commsutil

import (
	"strings"
)

// SubjectErrorEvents is the default subject that receives every failed reply.
const SubjectErrorEvents = "comms.errors"

// BuildErrorSubject builds the per-service error event subject under base. Dots in the service
// name are folded so the service stays a single subject token.
func BuildErrorSubject(base, service string) string {
	return base + "." + subjectToken(service)
}

// ValidSubject reports whether s is a publishable subject: non-empty dot-separated tokens without
// whitespace or wildcards.
func ValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, tok := range strings.Split(s, ".") {
		if tok == "" || tok == "*" || tok == ">" || strings.ContainsAny(tok, " \t\r\n*>") {
			return false
		}
	}
	return true
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\t', '*', '>':
			return '_'
		}
		return r
	}, s)
}
