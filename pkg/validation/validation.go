// Package validation checks user input before it reaches the mutation engine or the network.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Errors maps a field name to the message shown next to it.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}

	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s: %s", field, e[field])
	}

	return strings.Join(parts, "; ")
}

// Login is the login form.
type Login struct {
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
}

// Signup is the signup form. Phone is optional.
type Signup struct {
	Name            string `json:"name" validate:"notblank,min=2,max=100"`
	Email           string `json:"email" validate:"notblank,email"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	Password        string `json:"password" validate:"notblank,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"notblank,eqfield=Password"`
}

type Board struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

type Invite struct {
	Email string `json:"email" validate:"notblank,email"`
}

type List struct {
	Title string `json:"title" validate:"notblank,max=100"`
}

type Card struct {
	Title string `json:"title" validate:"notblank,max=150"`
}

type Comment struct {
	Content string `json:"content" validate:"notblank,max=5000"`
}

type Label struct {
	Name  string `json:"name" validate:"notblank,max=50"`
	Color string `json:"color" validate:"labelcolor"`
}

var messages = map[string]string{
	"Login.email.notblank":             "Email is required",
	"Login.email.email":                "Please enter a valid email",
	"Login.password.notblank":          "Password is required",
	"Signup.name.notblank":             "Name is required",
	"Signup.name.min":                  "Name must be at least 2 characters",
	"Signup.name.max":                  "Name must be at most 100 characters",
	"Signup.email.notblank":            "Email is required",
	"Signup.email.email":               "Please enter a valid email",
	"Signup.phone.phone":               "Phone number must be 10-15 digits",
	"Signup.password.notblank":         "Password is required",
	"Signup.password.min":              "Password must be at least 8 characters",
	"Signup.confirm_password.notblank": "Please confirm your password",
	"Signup.confirm_password.eqfield":  "Passwords do not match",
	"Board.name.notblank":              "Board name is required",
	"Board.name.max":                   "Board name must be between 1 and 100 characters",
	"Invite.email.notblank":            "Email is required",
	"Invite.email.email":               "Please enter a valid email address",
	"List.title.notblank":              "List title is required",
	"List.title.max":                   "List title must be between 1 and 100 characters",
	"Card.title.notblank":              "Card title is required",
	"Card.title.max":                   "Card title must be between 1 and 150 characters",
	"Comment.content.notblank":         "Comment cannot be empty",
	"Comment.content.max":              "Comment must be at most 5000 characters",
	"Label.name.notblank":              "Label name is required",
	"Label.name.max":                   "Label name must be at most 50 characters",
	"Label.color.labelcolor":           "Please pick a color from the palette",
}

var phoneFormatting = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "")

var phoneDigits = regexp.MustCompile(`^\d{10,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	must(v.RegisterValidation("notblank", validators.NotBlank))
	must(v.RegisterValidation("labelcolor", func(fl validator.FieldLevel) bool {
		return model.IsPaletteColor(fl.Field().String())
	}))
	must(v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneDigits.MatchString(phoneFormatting.Replace(fl.Field().String()))
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate checks a form and returns Errors, one message per failing field, or nil.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("error validating input: %w", err)
	}

	out := Errors{}

	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}

		msg, ok := messages[fe.Namespace()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}

		out[fe.Field()] = msg
	}

	return out
}

// Fields returns the per-field messages carried by err, if it is a validation failure.
func Fields(err error) (Errors, bool) {
	var out Errors
	if errors.As(err, &out) {
		return out, true
	}

	return nil, false
}
