package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate

	emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
)

// schema messages keyed by "<StructField>.<tag>"
var fieldMessages = map[string]string{
	"Name.required":            "Please tell us your name",
	"Email.required":           "Please provide your email",
	"Email.email":              "Please provide a valid email",
	"Password.required":        "Please provide a password",
	"Password.min":             "Password must be at least 8 characters long",
	"Password.maxbytes":        "Password must be at most 72 bytes long",
	"PasswordConfirm.required": "Please confirm your password",
	"Role.oneof":               "Role is either: user, admin",
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("maxbytes", maxBytes)
	})
	return validate
}

// NewUser is the signup payload before hashing. PasswordConfirm is never persisted.
type NewUser struct {
	Name            string `validate:"required"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8,maxbytes=72"`
	PasswordConfirm string `validate:"required"`
}

// Validate checks the signup payload against the user schema.
func (n NewUser) Validate() error {
	return translate(validatorInstance().Struct(n))
}

// Validate checks a complete user record before it is written.
func (u *User) Validate() error {
	if u == nil {
		return errors.New("user is nil")
	}
	return translate(validatorInstance().Struct(u))
}

// ValidatePassword applies the password rules to a plaintext password and its confirmation.
func ValidatePassword(password, confirm string) error {
	return translate(validatorInstance().Struct(struct {
		Password        string `validate:"required,min=8,maxbytes=72"`
		PasswordConfirm string `validate:"required"`
	}{password, confirm}))
}

// maxBytes limits the encoded length of a string; bcrypt rejects passwords over 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// IsValidEmail reports whether email has the shape accepted at signup.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.StructField(),
			Message: fieldMessage(fe.StructField(), fe.Tag()),
		})
	}
	return out
}

// checkVar validates a single value and names violations after field.
func checkVar(field, value, rules string) []FieldError {
	err := validatorInstance().Var(value, rules)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: field, Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: field, Message: fieldMessage(field, fe.Tag())})
	}
	return out
}

func fieldMessage(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed on the '%s' rule", field, tag)
}
