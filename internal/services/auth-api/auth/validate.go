package auth

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	emailRe   = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w{2,}$`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^A-Za-z0-9]`)
)

var (
	emailRules = []validation.Rule{
		validation.Required,
		validation.Length(3, 254),
		validation.Match(emailRe),
	}
	// RE2 has no lookahead, so every character class is its own rule.
	passwordRules = []validation.Rule{
		validation.Required,
		validation.RuneLength(8, 0),
		validation.Match(lowerRe).Error("must contain a lowercase letter"),
		validation.Match(upperRe).Error("must contain an uppercase letter"),
		validation.Match(digitRe).Error("must contain a digit"),
		validation.Match(specialRe).Error("must contain a special character"),
	}
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, emailRules...),
		validation.Field(&c.Password, passwordRules...),
	)
}

func validateEmail(email string) error {
	return validation.Validate(email, emailRules...)
}

func validatePassword(password string) error {
	return validation.Validate(password, passwordRules...)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
