// Package email validates and masks subscriber addresses.
package email

import (
	"net/mail"
	"strings"

	dErrors "personfinder/pkg/domain-errors"
)

// Normalize validates a bare address and lowercases it so subscriptions
// key on one spelling.
func Normalize(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil || parsed.Address != trimmed || parsed.Name != "" {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid email address: %q", address)
	}
	return strings.ToLower(parsed.Address), nil
}

// Mask keeps the first character of the local part for logs: "a***@example.org".
func Mask(address string) string {
	at := strings.IndexByte(address, '@')
	if at <= 0 {
		return "***"
	}
	return address[:1] + "***" + address[at:]
}
