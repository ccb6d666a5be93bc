package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	// Codes are human-entered, so the charset is deliberately strict
	promoCodeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)
)

func init() {
	Validate = validator.New()

	// Register custom validators
	_ = Validate.RegisterValidation("promo_code", validatePromoCode)
	_ = Validate.RegisterValidation("promo_type", validatePromoType)
	_ = Validate.RegisterValidation("promo_status", validatePromoStatus)
	_ = Validate.RegisterValidation("balance_type", validateBalanceType)
}

// ValidationError collects per-field validation failures.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AddError records a failure for a field.
func (e *ValidationError) AddError(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = message
}

// HasErrors reports whether any failure was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	result := &ValidationError{Errors: make(map[string]string)}
	for _, fieldErr := range validationErrors {
		result.AddError(strings.ToLower(fieldErr.Field()), messageForTag(fieldErr))
	}
	return result
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "promo_code":
		return "must be 3-64 characters of letters, digits, hyphen or underscore"
	case "promo_type":
		return "must be one of PERCENTAGE, FIXED_AMOUNT"
	case "promo_status":
		return "must be one of ACTIVE, INACTIVE, EXPIRED, DEPLETED"
	case "balance_type":
		return "must be one of MAIN, BONUS"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func validatePromoCode(fl validator.FieldLevel) bool {
	return promoCodeRegex.MatchString(fl.Field().String())
}

func validatePromoType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "PERCENTAGE", "FIXED_AMOUNT":
		return true
	}
	return false
}

func validatePromoStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "ACTIVE", "INACTIVE", "EXPIRED", "DEPLETED":
		return true
	}
	return false
}

func validateBalanceType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "MAIN", "BONUS":
		return true
	}
	return false
}

// ValidateAmount validates a monetary amount
func ValidateAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("amount cannot be negative: %f", amount)
	}
	if amount > 1000000 {
		return fmt.Errorf("amount exceeds maximum allowed: %f", amount)
	}
	return nil
}

// ValidateUUID validates UUID format
func ValidateUUID(uuid string) bool {
	uuidRegex := regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	return uuidRegex.MatchString(uuid)
}
