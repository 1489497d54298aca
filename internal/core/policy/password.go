package policy

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 8

// passwordSpecials is the accepted special-character set.
const passwordSpecials = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// PasswordCheck is the outcome of validating a candidate password.
// Errors lists every violated rule, not just the first.
type PasswordCheck struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidatePassword evaluates every password rule and returns the complete
// list of violations. All rules are always checked; detection is
// order-independent.
func ValidatePassword(password string) PasswordCheck {
	var errs []string

	if len(password) < PasswordMinLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters long", PasswordMinLength))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	if !upper {
		errs = append(errs, "password must contain at least one uppercase letter")
	}
	if !lower {
		errs = append(errs, "password must contain at least one lowercase letter")
	}
	if !digit {
		errs = append(errs, "password must contain at least one number")
	}
	if !special {
		errs = append(errs, "password must contain at least one special character")
	}

	return PasswordCheck{Valid: len(errs) == 0, Errors: errs}
}
