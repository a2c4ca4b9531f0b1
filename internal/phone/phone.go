// Package phone reduces arbitrary phone-number strings to comparable keys.
// Provider payloads, dialer CSVs and the UI all format numbers differently;
// the last ten digits are the only stable join key between them.
package phone

import "strings"

// Normalize strips every non-digit character and returns the last ten
// digits of what remains. Shorter digit strings are returned whole. The
// empty string is returned for empty or digit-free input and must never be
// used as a match key.
func Normalize(raw string) string {
	digits := sanitizeDigits(raw)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}

// Candidates returns the digit variants a stored number may appear under:
// the sanitized digits plus the same number with or without a leading "1"
// country code. Used for SQL IN filters against columns of unknown format.
func Candidates(raw string) []string {
	digits := sanitizeDigits(raw)
	if digits == "" {
		return nil
	}
	candidates := []string{digits}
	if len(digits) == 10 {
		candidates = append(candidates, "1"+digits)
	} else if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		candidates = append(candidates, digits[1:])
	}
	return candidates
}

func sanitizeDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
