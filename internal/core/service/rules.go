package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/docshare/identity-api/internal/core/domain"
)

// signupFields mirrors the column rules of the users table.
type signupFields struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=2,max=15"`
	Password string `json:"password" validate:"required"`
}

// changeFields applies the same rules to a partial update; empty means unchanged.
type changeFields struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"omitempty,min=2,max=15"`
	FullName string `json:"fullName" validate:"omitempty,max=25"`
	Bio      string `json:"bio" validate:"omitempty,max=240"`
}

// fieldRules validates user attributes as a unit and reports every
// offending field at once.
type fieldRules struct {
	v *validator.Validate
}

func newFieldRules() *fieldRules {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &fieldRules{v: v}
}

func (r *fieldRules) signup(in signupFields) error {
	return r.check(in)
}

func (r *fieldRules) changes(c domain.UserChanges) error {
	return r.check(changeFields{
		Email:    c.Email,
		Username: c.Username,
		FullName: c.FullName,
		Bio:      c.Bio,
	})
}

func (r *fieldRules) check(s any) error {
	err := r.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.Wrap(domain.CauseInternal, err)
	}
	fields := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: ruleMessage(fe)})
	}
	return domain.Invalid(domain.CauseValidationFailure, fields...)
}

func ruleMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
