// Package validation builds the request validator shared by the HTTP
// modules and turns validator failures into field-keyed errors.
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"

	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// DefaultRegion is used to parse customer mobile numbers without a country code.
const DefaultRegion = "IN"

// New returns a validator that understands decimal amounts, JSON field names
// and the `mobile` tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return ValidMobile(fl.Field().String())
	})
	return v
}

// ValidMobile reports whether raw parses as a valid phone number, assuming
// India when no country code is given.
func ValidMobile(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	num, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(num)
}

// NormalizeMobile formats a valid number in E.164. Invalid input is returned
// trimmed and unchanged.
func NormalizeMobile(raw string) string {
	raw = strings.TrimSpace(raw)
	num, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

// Errors maps request fields to failure messages.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e[k])
	}
	return fmt.Sprintf("%s: %s", shared.ErrValidation, strings.Join(parts, "; "))
}

func (e Errors) Unwrap() error {
	return shared.ErrValidation
}

// ProblemStatus maps validation failures to 400.
func (e Errors) ProblemStatus() int {
	return http.StatusBadRequest
}

// ProblemFields exposes per-field messages.
func (e Errors) ProblemFields() map[string]any {
	return map[string]any{"fields": map[string]string(e)}
}

// Struct validates s and converts failures into Errors.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "mobile":
		return field + " is not a valid mobile number"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
