package users

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	usernameRegex     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{2,19}$`)
	passwordCharRegex = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()_+]{8,}$`)

	errReservedUsername = &ValidationError{Field: "username", Message: "Username is reserved"}
)

// ValidationError is a rejected input attributed to a request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateUsername accepts 3 to 20 letters, digits or underscores, starting with a letter.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Message: "Username is required"}
	}
	if !usernameRegex.MatchString(username) {
		return &ValidationError{
			Field:   "username",
			Message: "Username must be 3-20 characters, start with a letter, and contain only letters, numbers and underscores",
		}
	}
	return nil
}

// ValidatePassword requires at least 8 characters with an uppercase letter,
// a lowercase letter and a digit.
func ValidatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !passwordCharRegex.MatchString(password) || !hasUpper || !hasLower || !hasDigit {
		return &ValidationError{
			Field:   "password",
			Message: "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a number",
		}
	}
	return nil
}
