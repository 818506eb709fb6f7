// Package principal derives and parses the DCE principal ID, the engine's
// identity key for a lease. A principal ID encodes an optional event-ID
// prefix and an obfuscated user email, joined by a configurable separator:
//
//	EVT1234567__a+b+x+com
//
// Derivation is deterministic so repeated logins by the same user for the
// same event map to the same lease identity.
package principal

import "strings"

// Defaults matching the console configuration record.
const (
	DefaultSeparator  = "__"
	DefaultSubstitute = '+'
)

// SanitizeEmail replaces every non-alphanumeric rune of an email address
// with the substitute rune. The result is safe for use inside a principal ID
// regardless of separator choice.
func SanitizeEmail(email string, substitute rune) string {
	var b strings.Builder
	b.Grow(len(email))
	for _, r := range email {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(substitute)
		}
	}
	return b.String()
}

// Derive builds the principal ID for a user within an event.
func Derive(eventID, email, separator string, substitute rune) string {
	return eventID + separator + SanitizeEmail(email, substitute)
}

// HasEventPrefix reports whether the principal ID belongs to the given
// event. Event-scoped leases are matched by prefix only; the engine itself
// has no notion of events.
func HasEventPrefix(principalID, eventID string) bool {
	return strings.HasPrefix(principalID, eventID)
}

// EventID extracts the event-ID prefix from a principal ID, or "" when the
// ID carries no separator (a lease created outside any event).
func EventID(principalID, separator string, eventIDLength int) string {
	if !strings.Contains(principalID, separator) {
		return ""
	}
	if len(principalID) < eventIDLength {
		return ""
	}
	return principalID[:eventIDLength]
}
