// Package validation holds the account field rules shared by the HTTP binding
// layer and the account service.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 8
)

// Error is a rule violation whose message is safe to show to clients.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var validate = validator.New()

// ValidateUsername accepts 3-50 letters or digits, optionally mixed with
// hyphens and underscores. At least one letter or digit is required.
func ValidateUsername(username string) error {
	stripped := strings.NewReplacer("_", "", "-", "").Replace(username)
	if stripped == "" || strings.IndexFunc(stripped, notAlnum) >= 0 {
		return &Error{Field: "username", Message: "Username must contain only letters, numbers, hyphens, and underscores"}
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return &Error{Field: "username", Message: "Username must be between 3 and 50 characters"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return &Error{Field: "password", Message: "Password must be at least 8 characters long"}
	}
	return nil
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return &Error{Field: "email", Message: "value is not a valid email address"}
	}
	return nil
}

// RegisterGinValidators adds the "username" and "password" tags to gin's
// binding validator and makes errors report json field names.
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidateUsername(fl.Field().String()) == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
}

// BindingMessage turns a request binding failure into a client-facing
// message. The first violated rule wins.
func BindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	value := fmt.Sprint(fe.Value())
	var rule error
	switch fe.Tag() {
	case "required":
		return "Field required: " + fe.Field()
	case "email":
		rule = ValidateEmail(value)
	case "username":
		rule = ValidateUsername(value)
	case "password":
		rule = ValidatePassword(value)
	}
	if rule != nil {
		return rule.Error()
	}
	return "Invalid value for " + fe.Field()
}

func notAlnum(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
