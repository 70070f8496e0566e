package utils

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lower-cases and trims an address, unwrapping "Name <addr>" forms.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		if parsed, err := mail.ParseAddress(email); err == nil {
			email = parsed.Address
		} else {
			startIdx := strings.LastIndex(email, "<") + 1
			endIdx := strings.LastIndex(email, ">")
			if startIdx > 0 && endIdx > startIdx {
				email = email[startIdx:endIdx]
			}
		}
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// SenderAddress returns the lower-cased address of a From header. A header
// that does not parse yields the text between its last "<" and ">", or the
// whole header when it has no brackets. The display name is never used.
func SenderAddress(fromHeader string) string {
	fromHeader = strings.TrimSpace(fromHeader)
	if parsed, err := mail.ParseAddress(fromHeader); err == nil {
		return strings.ToLower(parsed.Address)
	}
	start := strings.LastIndex(fromHeader, "<")
	end := strings.LastIndex(fromHeader, ">")
	if start >= 0 && end > start {
		return strings.ToLower(strings.TrimSpace(fromHeader[start+1 : end]))
	}
	if start >= 0 || end >= 0 || strings.ContainsAny(fromHeader, " \t\"") {
		return ""
	}
	return strings.ToLower(fromHeader)
}

// SenderMatches reports whether a From header carries exactly the registered
// address, ignoring case.
func SenderMatches(fromHeader, registered string) bool {
	registered = NormalizeEmail(registered)
	if registered == "" {
		return false
	}
	return SenderAddress(fromHeader) == registered
}

func ExtractDomainFromEmail(email string) string {
	email = NormalizeEmail(email)
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
