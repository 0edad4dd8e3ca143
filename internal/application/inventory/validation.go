package inventory

import (
	"errors"
	"reflect"
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var commandValidator = newCommandValidator()

func newCommandValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateCommand checks struct tags and turns failures into a VALIDATION error
// that names every offending field.
func validateCommand(cmd any) error {
	err := commandValidator.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.NewValidationError("INVALID_REQUEST", err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+": "+validationMessage(fe))
	}
	return shared.NewValidationError("INVALID_REQUEST", strings.Join(parts, "; "))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "dive":
		return "has an invalid element"
	default:
		return "is invalid"
	}
}
