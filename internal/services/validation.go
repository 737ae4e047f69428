package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/task-tracker/internal/constants"
)

var validate = newValidator()

// newValidator registers the field limits from constants as tag aliases
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("user_name", fmt.Sprintf("required,min=%d,max=%d", constants.MinUsernameLength, constants.MaxUsernameLength))
	v.RegisterAlias("user_email", fmt.Sprintf("required,min=%d,max=%d", constants.MinEmailLength, constants.MaxEmailLength))
	v.RegisterAlias("user_password", fmt.Sprintf("required,min=%d", constants.MinPasswordLength))
	v.RegisterAlias("task_content", fmt.Sprintf("required,min=%d,max=%d", constants.MinContentLength, constants.MaxContentLength))
	return v
}

// ValidationError reports a field that failed a length or presence rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateInput checks input against its validate tags and returns the first violation
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())

	var msg string
	switch fe.ActualTag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}

	return &ValidationError{Field: field, Message: msg}
}
