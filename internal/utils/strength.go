package utils

import (
	"errors"
	"strings"
	"unicode"
)

// ErrWeakPassword is returned when a password fails the minimum policy.
var ErrWeakPassword = errors.New("password must be at least 8 characters and contain upper, lower and digit")

// ErrCommonPassword is returned for passwords on the deny list.
var ErrCommonPassword = errors.New("password is too common")

// commonPasswords are rejected outright regardless of character classes.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"qwerty123":   {},
	"letmein123":  {},
	"welcome123":  {},
	"admin123":    {},
	"iloveyou1":   {},
}

// ValidatePasswordStrength enforces the registration password policy:
// at least 8 characters with one uppercase letter, one lowercase letter
// and one digit, and not on the common-password list.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return ErrCommonPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

// PasswordScore rates a password 0-100 for client-side hints.  Length
// contributes up to 40 points; each character class adds 15.
func PasswordScore(password string) int {
	score := len(password) * 4
	if score > 40 {
		score = 40
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
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	for _, ok := range []bool{upper, lower, digit, special} {
		if ok {
			score += 15
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}
