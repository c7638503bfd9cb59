package validator

import (
	"fmt"
	"strings"

	"flagbase/entity"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validations
	validate.RegisterValidation("resource_key", validateResourceKey)
	validate.RegisterValidation("flag_type", validateFlagType)
	validate.RegisterValidation("rule_operator", validateRuleOperator)
}

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	var messages []string
	for _, err := range ve.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, ", ")
}

// NewValidationError builds a single-field ValidationErrors value, for
// checks that fall outside struct tags
func NewValidationError(field, message string) ValidationErrors {
	return ValidationErrors{Errors: []ValidationError{{Field: field, Message: message}}}
}

// ValidateActor validates an actor name
func ValidateActor(actor string) error {
	if actor == "" {
		return NewValidationError("actor", "actor is required")
	}
	if len(actor) > 100 {
		return NewValidationError("actor", "actor name too long (max 100 characters)")
	}
	return nil
}

// validateResourceKey restricts project/environment/flag/segment keys to
// lowercase alphanumerics, underscores and hyphens, with alphanumeric
// boundaries
func validateResourceKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()

	for _, char := range key {
		if !((char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-') {
			return false
		}
	}

	if strings.HasPrefix(key, "_") || strings.HasPrefix(key, "-") ||
		strings.HasSuffix(key, "_") || strings.HasSuffix(key, "-") {
		return false
	}

	return true
}

func validateFlagType(fl validator.FieldLevel) bool {
	return entity.FlagType(fl.Field().String()).IsValid()
}

func validateRuleOperator(fl validator.FieldLevel) bool {
	return entity.RuleOperator(fl.Field().String()).IsValid()
}

// formatValidationErrors formats validator errors into a custom error format
func formatValidationErrors(err error) error {
	var validationErrors []ValidationError

	for _, err := range err.(validator.ValidationErrors) {
		var message string

		switch err.Tag() {
		case "required":
			message = "This field is required"
		case "resource_key":
			message = "Key must contain only lowercase alphanumeric characters, underscores, and hyphens, and cannot start or end with underscore or hyphen"
		case "flag_type":
			message = "Type must be one of: boolean, string, number, json"
		case "rule_operator":
			message = "Operator must be one of: equals, notEquals, contains, notContains, startsWith, endsWith"
		case "min":
			message = fmt.Sprintf("Must be at least %s characters long", err.Param())
		case "max":
			message = fmt.Sprintf("Must be at most %s characters long", err.Param())
		case "gt":
			message = fmt.Sprintf("Must be greater than %s", err.Param())
		default:
			message = "Invalid value"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return ValidationErrors{Errors: validationErrors}
}
