package validation

import (
	"regexp"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Names: letters in any script, spaces, hyphens, apostrophes and dots.
var fullnameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

// National ids are 11 digits.
var nationalIDRe = regexp.MustCompile(`^[0-9]{11}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with a letter, a digit and a
// punctuation or symbol character.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

func IsValidNationalID(id string) bool {
	return nationalIDRe.MatchString(id)
}
