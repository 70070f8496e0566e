// Package tracking formats and parses the reference line embedded in every
// outbound RFP email, e.g. [RFP:8f3c...][VND:41aa...].
//
// Grammar (case-insensitive prefixes, identifier body case preserved):
//
//	token   = "[RFP:" id "]" "[VND:" id "]"
//	id      = 1*64( ALPHA / DIGIT / "-" / "_" )
//
// Replies are normalized before matching: leading quote markers (">", "> >")
// are stripped from every line and all whitespace is removed, so tokens that a
// mail client wrapped or quoted are rejoined.
package tracking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	errs "github.com/customeros/rfpstack/internal/errors"
)

const (
	rfpPrefix    = "RFP"
	vendorPrefix = "VND"
	maxIDLength  = 64

	footerSeparator = "\n\n---\nPlease keep the reference line below in your reply.\n"
)

var (
	idPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	quotePrefix    = regexp.MustCompile(`^[ \t]*(>[ \t]?)+`)
	rfpFragment    = fragmentPattern(rfpPrefix)
	vendorFragment = fragmentPattern(vendorPrefix)
)

func fragmentPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)\[%s:([A-Za-z0-9_-]{1,%d})\]`, prefix, maxIDLength))
}

type Token struct {
	RfpID    string
	VendorID string
}

func (t Token) String() string {
	return Format(t.RfpID, t.VendorID)
}

func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Format renders the bare reference line.
func Format(rfpID, vendorID string) string {
	return fmt.Sprintf("[%s:%s][%s:%s]", rfpPrefix, rfpID, vendorPrefix, vendorID)
}

// Footer is appended to outbound bodies.
func Footer(rfpID, vendorID string) string {
	return footerSeparator + Format(rfpID, vendorID)
}

// AppendFooter returns body with the reference footer, rejecting ids the
// parser could not read back.
func AppendFooter(body, rfpID, vendorID string) (string, error) {
	if !ValidID(rfpID) || !ValidID(vendorID) {
		return "", errors.Wrapf(errs.ErrValidation, "ids not representable in a tracking token: %q, %q", rfpID, vendorID)
	}
	return strings.TrimRight(body, "\n") + Footer(rfpID, vendorID), nil
}

// Parse extracts the first RFP and vendor fragments from body, falling back
// to subject for whichever fragment the body lacks. Both fragments must be
// found, otherwise ErrUnrecognizedToken is returned.
func Parse(body, subject string) (Token, error) {
	normalizedBody := Normalize(body)
	normalizedSubject := Normalize(subject)

	rfpID := firstMatch(rfpFragment, normalizedBody, normalizedSubject)
	vendorID := firstMatch(vendorFragment, normalizedBody, normalizedSubject)
	if rfpID == "" || vendorID == "" {
		return Token{}, errs.ErrUnrecognizedToken
	}
	return Token{RfpID: rfpID, VendorID: vendorID}, nil
}

func firstMatch(pattern *regexp.Regexp, sources ...string) string {
	for _, source := range sources {
		if match := pattern.FindStringSubmatch(source); match != nil {
			return match[1]
		}
	}
	return ""
}

// Normalize strips quote markers line by line and drops all whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var sb strings.Builder
	sb.Grow(len(text))
	for _, line := range lines {
		line = quotePrefix.ReplaceAllString(line, "")
		for _, r := range line {
			if !unicode.IsSpace(r) {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
