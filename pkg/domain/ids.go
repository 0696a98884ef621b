package domain

import (
	"regexp"
	"strings"

	dErrors "personfinder/pkg/domain-errors"
)

// ReservedDomain names the global settings scope; it never holds records.
const ReservedDomain = "global"

var domainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// RecordID addresses a Person or Note as "domain/local_part".
type RecordID string

// ValidateDomain enforces the domain-name rules: lowercase alphanumerics and
// hyphens, and never the reserved name.
func ValidateDomain(domain string) error {
	if domain == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if !domainPattern.MatchString(domain) {
		return dErrors.Newf(dErrors.CodeValidation, "invalid domain name: %q", domain)
	}
	if domain == ReservedDomain {
		return dErrors.Newf(dErrors.CodeValidation, "domain name %q is reserved", domain)
	}
	return nil
}

// MakeID builds a record id from a domain and a local part.
func MakeID(domain, localPart string) (RecordID, error) {
	if err := ValidateDomain(domain); err != nil {
		return "", err
	}
	if localPart == "" {
		return "", dErrors.New(dErrors.CodeValidation, "local part is required")
	}
	return RecordID(domain + "/" + localPart), nil
}

// ParseID splits and validates a record id.
func ParseID(s string) (domain, localPart string, err error) {
	domain, localPart, ok := strings.Cut(s, "/")
	if !ok || domain == "" || localPart == "" {
		return "", "", dErrors.Newf(dErrors.CodeValidation, "malformed record id: %q", s)
	}
	if err := ValidateDomain(domain); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeValidation, "malformed record id")
	}
	return domain, localPart, nil
}

// ParseRecordID is ParseID returning the typed id.
func ParseRecordID(s string) (RecordID, error) {
	if _, _, err := ParseID(s); err != nil {
		return "", err
	}
	return RecordID(s), nil
}

// Domain returns the domain prefix, or "" when the id is malformed.
func (id RecordID) Domain() string {
	domain, _, err := ParseID(string(id))
	if err != nil {
		return ""
	}
	return domain
}

func (id RecordID) String() string {
	return string(id)
}

func (id RecordID) IsZero() bool {
	return id == ""
}
