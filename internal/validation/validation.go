// Package validation enforces the field rules declared in `validate` struct
// tags before any document reaches the store.
//
// It wraps go-playground/validator with the custom tags this domain needs:
//
//	alumniemail  the email pattern the alumni directory has always accepted
//	indianphone  an Indian mobile number, optionally prefixed with +91 / 0 / 91
//	notfuture    an integer year no later than the current year
//
// plus struct-level checks on User for the occupation and participation
// variants.
//
// FAILURE SHAPE:
// Struct never stops at the first problem. Every violated rule becomes one
// human-readable message, and all of them are returned together inside a
// single apperror.Validation error. The HTTP layer renders that as
//
//	{"message": "Validation Error", "errors": ["Name is required", ...]}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^(\+91[\-\s]?)?[0]?(91)?[789]\d{9}$`)
)

// IsEmail reports whether s matches the accepted email pattern.
func IsEmail(s string) bool { return emailPattern.MatchString(s) }

// IsIndianPhone reports whether s is an accepted Indian mobile number.
func IsIndianPhone(s string) bool { return phonePattern.MatchString(s) }

// Validator is safe for concurrent use; build one at startup and share it.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New builds a Validator with every custom rule registered.
func New() *Validator {
	return newWithClock(time.Now)
}

// newWithClock lets tests pin "the current year".
func newWithClock(now func() time.Time) *Validator {
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}

	// Report fields by their JSON name so messages read like the API.
	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func, neither of which
	// can happen here.
	_ = val.v.RegisterValidation("alumniemail", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	_ = val.v.RegisterValidation("indianphone", func(fl validator.FieldLevel) bool {
		return IsIndianPhone(fl.Field().String())
	})
	_ = val.v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(val.now().Year())
	})

	val.v.RegisterStructValidation(userProfileRules, model.User{})

	return val
}

// userProfileRules checks the tagged variants that plain tags can't express.
func userProfileRules(sl validator.StructLevel) {
	u := sl.Current().Interface().(model.User)

	if u.Occupation != nil && !u.Occupation.Valid() {
		tag := "occupation"
		if u.Occupation.Field == model.OccupationOthers {
			tag = "occupationother"
		}
		sl.ReportError(u.Occupation.Field, "occupation", "Occupation", tag, u.Occupation.SubField)
	}

	if u.Participation != nil && !u.Participation.Valid() {
		sl.ReportError(u.Participation.Categories, "participation", "Participation", "participation", u.Participation.Custom)
	}
}

// Struct validates s and returns nil or an *apperror.AppError wrapping
// apperror.ErrValidation with one message per violated rule.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: a programming mistake such as passing nil.
		return fmt.Errorf("validation: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return apperror.Validation(msgs)
}

// messages holds the text for each StructField.tag pair. The wording is
// what the API has always returned, so clients may match on it.
var messages = map[string]string{
	"Name.required":          "Name is required",
	"Email.required":         "Email is required",
	"Email.alumniemail":      "Please enter a valid email",
	"Password.required":      "Password is required",
	"Password.min":           "Password must be at least 6 characters",
	"Password.max":           "Password must be 72 bytes or fewer",
	"PasswordHash.required":  "Password is required",
	"Gender.required":        "Gender is required",
	"BatchYear.required":     "Batch year is required",
	"BatchYear.min":          "Batch year must be 1980 or later",
	"BatchYear.notfuture":    "Batch year cannot be in the future",
	"Title.required":         "Title is required",
	"Description.required":   "Description is required",
	"Date.required":          "Date is required",
	"Location.required":      "Location is required",
	"Content.required":       "Content is required",

	"Occupation.occupation":       "Please select a valid occupation and sub-field",
	"Occupation.occupationother":  "Please specify your occupation",
	"Participation.participation": "Custom participation requires Others; categories must be listed once",
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
		return m
	}

	switch fe.Tag() {
	case "indianphone":
		return fmt.Sprintf("%v is not a valid Indian phone number!", fe.Value())
	case "oneof":
		return fmt.Sprintf("`%v` is not a valid enum value for path `%s`.", fe.Value(), fe.Field())
	case "required":
		return fmt.Sprintf("Path `%s` is required.", fe.Field())
	default:
		return fmt.Sprintf("Path `%s` is invalid (%s).", fe.Field(), fe.Tag())
	}
}
