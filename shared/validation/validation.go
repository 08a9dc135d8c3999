// Package validation runs go-playground/validator struct checks and reports
// failures as errs.ValidationErrors keyed by the json field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/financialapp/account-service/shared/errs"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates obj and returns nil when it passes.
func Struct(obj any) *errs.ValidationErrors {
	return Into(&errs.ValidationErrors{}, obj)
}

// Into appends the failures of obj to dst and returns dst, or nil if dst is
// still empty afterwards.
func Into(dst *errs.ValidationErrors, obj any) *errs.ValidationErrors {
	err := validate.Struct(obj)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			dst.Add(fe.Field(), fe.Tag(), getErrorMsg(fe))
		}
	} else if err != nil {
		dst.Add("", "invalid", err.Error())
	}
	if dst.Empty() {
		return nil
	}
	return dst
}

func getErrorMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gt":
		return "Value must be greater than " + err.Param()
	case "gte":
		return "Value must be greater than or equal to " + err.Param()
	default:
		return "Invalid value"
	}
}
