package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

const (
	// MinPasswordLength is the minimum accepted signup password length
	MinPasswordLength = 8
	// MinNameLength is the minimum accepted full name length
	MinNameLength = 2
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ChatbotCategories are the fixed company categories offered by the chatbot form.
var ChatbotCategories = []string{
	"Technology",
	"Healthcare",
	"Finance",
	"Education",
	"Retail",
	"Manufacturing",
	"Consulting",
	"Real Estate",
	"Food & Beverage",
	"Other",
}

// Document MIME types accepted for chatbot knowledge uploads, keyed by extension.
var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// IsValidEmail checks the loose address shape the backend also accepts.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidCategory reports whether category is one of ChatbotCategories.
func IsValidCategory(category string) bool {
	for _, c := range ChatbotCategories {
		if c == category {
			return true
		}
	}
	return false
}

// DocumentType returns the accepted MIME type for a file, matching either the
// declared content type or the file extension. ok is false for anything else.
func DocumentType(filename, contentType string) (mime string, ok bool) {
	contentType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, t := range documentTypes {
		if contentType == t {
			return t, true
		}
	}
	t, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	return t, ok
}

// OrganizationInput is the organization create/edit form.
type OrganizationInput struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
}

// ValidateOrganizationInput returns a ValidationError naming each bad field.
func ValidateOrganizationInput(in OrganizationInput) error {
	v := apperrors.NewValidationError()
	if blank(in.Name) {
		v.Add("name", "Organization name is required")
	}
	if blank(in.ContactPerson) {
		v.Add("contactPerson", "Contact person name is required")
	}
	checkEmail(v, "email", in.Email, "Please enter a valid email address")
	if blank(in.Phone) {
		v.Add("phone", "Phone number is required")
	}
	if blank(in.Address) {
		v.Add("address", "Address is required")
	}
	return v.Err()
}

// ChatbotInput is the chatbot create/edit form.
type ChatbotInput struct {
	CompanyName     string
	CompanyEmail    string
	CompanyPhone    string
	CompanyAddress  string
	CompanyCategory string
	Instructions    string
}

// ValidateChatbotInput returns a ValidationError naming each bad field.
func ValidateChatbotInput(in ChatbotInput) error {
	v := apperrors.NewValidationError()
	required := map[string]string{
		"companyName":    in.CompanyName,
		"companyPhone":   in.CompanyPhone,
		"companyAddress": in.CompanyAddress,
		"instructions":   in.Instructions,
	}
	for field, value := range required {
		if blank(value) {
			v.Add(field, "This field is required")
		}
	}
	checkEmail(v, "companyEmail", in.CompanyEmail, "Please enter a valid email address")
	switch {
	case blank(in.CompanyCategory):
		v.Add("companyCategory", "This field is required")
	case !IsValidCategory(in.CompanyCategory):
		v.Add("companyCategory", "Please select a valid category")
	}
	return v.Err()
}

// RegistrationInput is the signup form.
type RegistrationInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidateRegistration applies the signup rules: a name of at least two
// characters and a password of eight or more with upper, lower and digit.
func ValidateRegistration(in RegistrationInput) error {
	v := apperrors.NewValidationError()

	switch name := strings.TrimSpace(in.Name); {
	case name == "":
		v.Add("fullName", "Full name is required")
	case len([]rune(name)) < MinNameLength:
		v.Add("fullName", "Full name must be at least 2 characters")
	}

	checkEmail(v, "email", in.Email, "Please enter a valid email")

	checkPassword(v, in.Password)

	if in.ConfirmPassword != in.Password {
		v.Add("confirmPassword", "Passwords do not match")
	}
	return v.Err()
}

// ValidatePasswordReset applies the signup password rules to a new password.
func ValidatePasswordReset(password, confirm string) error {
	v := apperrors.NewValidationError()
	checkPassword(v, password)

	switch {
	case confirm == "":
		v.Add("confirmPassword", "Please confirm your password")
	case confirm != password:
		v.Add("confirmPassword", "Passwords do not match")
	}
	return v.Err()
}

func checkPassword(v *apperrors.ValidationError, password string) {
	switch {
	case password == "":
		v.Add("password", "Password is required")
	case len(password) < MinPasswordLength:
		v.Add("password", "Password must be at least 8 characters")
	case !hasPasswordClasses(password):
		v.Add("password", "Password must contain uppercase, lowercase, and number")
	}
}

// ValidateLogin checks the login form before any network call.
func ValidateLogin(email, password string) error {
	v := apperrors.NewValidationError()
	checkEmail(v, "email", email, "Please enter a valid email")
	if password == "" {
		v.Add("password", "Password is required")
	}
	return v.Err()
}

// ValidateEmail checks a single address, as the forgot-password form does.
func ValidateEmail(email string) error {
	v := apperrors.NewValidationError()
	checkEmail(v, "email", email, "Please enter a valid email")
	return v.Err()
}

// ValidateTestEmail requires every field of the SMTP test form.
func ValidateTestEmail(to, subject, message string) error {
	v := apperrors.NewValidationError()
	if blank(to) || blank(subject) || blank(message) {
		v.Add("testEmail", "Please fill in all test email fields")
	}
	return v.Err()
}

func checkEmail(v *apperrors.ValidationError, field, email, invalidMsg string) {
	email = strings.TrimSpace(email)
	if email == "" {
		v.Add(field, "Email is required")
		return
	}
	if !IsValidEmail(email) {
		v.Add(field, invalidMsg)
	}
}

func hasPasswordClasses(p string) bool {
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
