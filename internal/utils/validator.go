// internal/utils/validator.go
package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/insurance-backend/internal/models"
)

var validate *validator.Validate

var (
	currencyPattern   = regexp.MustCompile(`^[a-z]{3}$`)
	resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

func init() {
	validate = validator.New()
	// Report fields by their JSON names so errors match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("health_conditions", validateHealthConditions)
	validate.RegisterValidation("currency", validateCurrency)
	validate.RegisterValidation("resource_id", validateResourceID)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateVar validates a single value against a tag expression.
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// validateHealthConditions accepts a non-empty set drawn from the fixed enumeration,
// without repeats, where "none" may only appear on its own.
func validateHealthConditions(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice || field.Len() == 0 {
		return false
	}

	seen := make(map[string]bool, field.Len())
	for i := 0; i < field.Len(); i++ {
		item := field.Index(i)
		if item.Kind() != reflect.String {
			return false
		}
		c := item.String()
		if !models.IsHealthCondition(c) || seen[c] {
			return false
		}
		seen[c] = true
	}

	return !seen[models.HealthConditionNone] || field.Len() == 1
}

func validateCurrency(fl validator.FieldLevel) bool {
	return currencyPattern.MatchString(fl.Field().String())
}

func validateResourceID(fl validator.FieldLevel) bool {
	return resourceIDPattern.MatchString(fl.Field().String())
}

// Validation tags for common fields
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
				Field:   fieldPath(e),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// fieldPath drops the top-level struct name: "SubmitApplicationRequest.Nominee.Name" -> "nominee.name".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if ns == "" {
		ns = e.Field()
	}
	return strings.ToLower(ns)
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "health_conditions":
		return "Health conditions must be known values, without duplicates, or \"none\" on its own"
	case "currency":
		return "Currency must be a three-letter lowercase ISO code"
	case "resource_id":
		return "Resource id must be 1-128 letters, digits, underscores or hyphens"
	default:
		return e.Field() + " is invalid"
	}
}
