package auth

import (
	"strings"
	"unicode"

	apperrors "github.com/cultach/cultach-api/pkg/errors"
)

// MinPasswordLength is the minimum number of characters a password must have.
const MinPasswordLength = 8

// ValidatePasswordPolicy checks every rule independently and reports all
// violations at once so callers can surface a complete message.
func ValidatePasswordPolicy(password string) error {
	var failures []string

	if len([]rune(password)) < MinPasswordLength {
		failures = append(failures, "be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		failures = append(failures, "contain an uppercase letter")
	}
	if !hasLower {
		failures = append(failures, "contain a lowercase letter")
	}
	if !hasDigit {
		failures = append(failures, "contain a digit")
	}
	if !hasSymbol {
		failures = append(failures, "contain a special character")
	}

	if len(failures) == 0 {
		return nil
	}

	return apperrors.ErrWeakPassword.WithMessage("Password must " + strings.Join(failures, ", "))
}
