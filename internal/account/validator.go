package account

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt can derive a credential from.
const MaxPasswordBytes = 72

// SpecialCharacters lists the characters that satisfy the special-character rule.
const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

// whitespace is the Unicode white space class; RE2's \s alone is ASCII only.
const whitespace = `\s\x0B\p{Z}\x{FEFF}`

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	namePattern    = regexp.MustCompile(`^[A-Za-z` + whitespace + `]+$`)
	emailPattern   = regexp.MustCompile(`^[^` + whitespace + `@]+@[^` + whitespace + `@]+\.[^` + whitespace + `@]+$`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	specialPattern = regexp.MustCompile(`[` + regexp.QuoteMeta(SpecialCharacters) + `]`)
)

// ValidationError is a rejection the caller can fix; Message is shown as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrFieldsRequired   = &ValidationError{Message: "all fields are required"}
	ErrTermsNotAccepted = &ValidationError{Field: "termsAccepted", Message: "terms and conditions must be accepted"}
	ErrInvalidFirstName = &ValidationError{Field: "firstName", Message: "first name can only contain letters and spaces"}
	ErrInvalidLastName  = &ValidationError{Field: "lastName", Message: "last name can only contain letters and spaces"}
	ErrInvalidEmail     = &ValidationError{Field: "email", Message: "invalid email format"}
	ErrWeakPassword     = &ValidationError{
		Field: "password",
		Message: "password must be at least 8 characters long and contain at least one lowercase letter, " +
			"one uppercase letter and one special character (" + SpecialCharacters + ")",
	}
	ErrPasswordTooLong = &ValidationError{Field: "password", Message: "password must be at most 72 bytes long"}
)

// RegistrationRequest is the body of POST /register.
// TermsAccepted is a pointer so an omitted field can be told apart from false.
type RegistrationRequest struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Email         string `json:"email" validate:"required"`
	Password      string `json:"password" validate:"required"`
	TermsAccepted *bool  `json:"termsAccepted"`
}

// Validate checks the request in a fixed order and returns the first failure.
func (r RegistrationRequest) Validate() error {
	r = r.trimmed()

	if err := validate.Struct(r); err != nil {
		return ErrFieldsRequired
	}
	if r.TermsAccepted == nil || !*r.TermsAccepted {
		return ErrTermsNotAccepted
	}
	if !namePattern.MatchString(r.FirstName) {
		return ErrInvalidFirstName
	}
	if !namePattern.MatchString(r.LastName) {
		return ErrInvalidLastName
	}
	if !emailPattern.MatchString(r.Email) {
		return ErrInvalidEmail
	}
	if !strongPassword(r.Password) {
		return ErrWeakPassword
	}
	if len(r.Password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// trimmed strips surrounding whitespace from names and email. The password
// is kept verbatim.
func (r RegistrationRequest) trimmed() RegistrationRequest {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

func strongPassword(pw string) bool {
	return utf8.RuneCountInString(pw) >= MinPasswordLength &&
		lowerPattern.MatchString(pw) &&
		upperPattern.MatchString(pw) &&
		specialPattern.MatchString(pw)
}

// NormalizeEmail returns the form used for storage and uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
