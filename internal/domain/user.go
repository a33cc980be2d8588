/**
 * @description
 * This file defines the User model and the input validators applied at
 * registration time. A user owns zero or more accounts; the account's OwnerID
 * column is the authoritative link, so the user record itself carries no
 * account list and ownership queries go through the store.
 *
 * @dependencies
 * - regexp, strings, time, unicode: Standard Go libraries.
 * - github.com/google/uuid: For user identifiers.
 */

package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

// User is an authenticated owner of accounts and loans. PasswordHash is a
// bcrypt hash; the plaintext never leaves the auth service.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format %q", ErrInvalidInput, email)
	}
	return nil
}

// ValidatePhone accepts exactly ten digits.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: phone number cannot be empty", ErrInvalidInput)
	}
	if len(phone) != 10 {
		return fmt.Errorf("%w: phone number must be 10 digits", ErrInvalidInput)
	}
	for _, c := range phone {
		if !unicode.IsDigit(c) {
			return fmt.Errorf("%w: phone number must be 10 digits", ErrInvalidInput)
		}
	}
	return nil
}

// ValidateUsername accepts 3-20 alphanumeric characters.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
	}
	if len(username) < 3 || len(username) > 20 {
		return fmt.Errorf("%w: username must be between 3 and 20 characters", ErrInvalidInput)
	}
	for _, c := range username {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return fmt.Errorf("%w: username must be alphanumeric", ErrInvalidInput)
		}
	}
	return nil
}

// ValidatePassword enforces at least 8 characters with one uppercase, one
// lowercase and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", ErrInvalidInput)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: password must contain an uppercase letter, a lowercase letter and a number", ErrInvalidInput)
	}
	return nil
}

// HasEducationalEmail reports whether the user's email sits in an educational
// domain. Used by the loan credit-score bonus.
func (u *User) HasEducationalEmail() bool {
	return strings.HasSuffix(strings.ToLower(u.Email), ".edu")
}
