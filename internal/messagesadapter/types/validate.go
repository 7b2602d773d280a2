package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what the client sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateMessageParam, MessageParam{})
	return v
}

// validateMessageParam rejects messages whose content was absent from the body.
func validateMessageParam(sl validator.StructLevel) {
	m := sl.Current().Interface().(MessageParam)
	if !m.Content.decoded {
		sl.ReportError(m.Content, "content", "Content", "required", "")
	}
}

// Validate checks the structural constraints of a request. The returned error
// is an *ErrorResponse of type invalid_request_error.
func (r *MessagesRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewErrorResponse(ErrorTypeInvalidRequest, err.Error())
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return NewErrorResponse(ErrorTypeInvalidRequest, strings.Join(msgs, "; "))
}

// describeFieldError renders a field error as "path: reason".
func describeFieldError(fe validator.FieldError) string {
	// Namespace is "MessagesRequest.messages[0].role"; drop the root type.
	_, path, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: field required", path)
	case "min":
		return fmt.Sprintf("%s: must contain at least %s item(s)", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", path, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %q constraint %s", path, fe.Tag(), fe.Param())
	}
}
