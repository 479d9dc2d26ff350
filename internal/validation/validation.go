// Package validation runs the client-side field checks that happen before
// any request is sent to the backend.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phoneDigits = regexp.MustCompile(`\d`)

// FieldError describes a single rejected field
type FieldError struct {
	Field   string
	Message string
}

// Errors is the set of field failures for one form
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for a field, if it failed.
func (e Errors) Field(name string) (string, bool) {
	for _, fe := range e {
		if fe.Field == name {
			return fe.Message, true
		}
	}
	return "", false
}

// Validator checks forms against struct tags
type Validator struct {
	validate *validator.Validate
	email    *regexp.Regexp
}

// New builds a validator whose institutional email rule uses emailPattern.
func New(emailPattern string) (*Validator, error) {
	re, err := regexp.Compile(emailPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid email pattern: %w", err)
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"institutional": func(fl validator.FieldLevel) bool {
			return re.MatchString(strings.TrimSpace(fl.Field().String()))
		},
		"phone": func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if strings.Trim(s, "+0123456789 -()") != "" {
				return false
			}
			n := len(phoneDigits.FindAllString(s, -1))
			return n >= 7 && n <= 15
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %s rule: %w", tag, err)
		}
	}

	return &Validator{validate: v, email: re}, nil
}

// InstitutionalEmail reports whether email belongs to the institution domain.
func (v *Validator) InstitutionalEmail(email string) bool {
	return v.email.MatchString(strings.TrimSpace(email))
}

// Struct validates a form and returns Errors on failure.
func (v *Validator) Struct(form any) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "notblank", "required":
		return fmt.Sprintf("%s is required", field)
	case "institutional":
		return "Please enter a valid BUBT email address (e.g., username@cse.bubt.edu.bd)"
	case "email":
		return "Please enter a valid email address"
	case "phone":
		return "Please enter a valid phone number"
	case "eqfield":
		return "Passwords do not match"
	case "gt":
		if field == "price" {
			return "Please enter a valid price"
		}
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "len":
		if field == "code" {
			return "Please enter the complete 6-digit code"
		}
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	case "min":
		switch field {
		case "password":
			return "Password must be at least 6 characters long"
		case "images":
			return "Please select at least one image"
		case "rating":
			return "Please select a rating"
		}
	case "max":
		switch field {
		case "images":
			return "You can only upload 2 images"
		case "rating":
			return "Rating must be between 1 and 5"
		}
	}
	return fmt.Sprintf("%s is invalid", field)
}
