package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct validates s against its `validate` tags and returns a
// VALIDATION AppError listing every failing field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := formatFieldError(fe)
		messages = append(messages, msg)
		fields[fe.Field()] = msg
	}
	return pkgerrors.NewValidationError(strings.Join(messages, "; ")).
		WithDetails(map[string]interface{}{"fields": fields})
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
