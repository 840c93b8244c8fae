// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	statePattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("us_zip", validateZip)
	validate.RegisterValidation("us_state", validateState)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateZip(fl validator.FieldLevel) bool {
	return zipPattern.MatchString(fl.Field().String())
}

func validateState(fl validator.FieldLevel) bool {
	return statePattern.MatchString(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "us_zip":
		return "ZIP code must be 5 digits or ZIP+4"
	case "us_state":
		return "State must be a two-letter code"
	default:
		return e.Field() + " is invalid"
	}
}
