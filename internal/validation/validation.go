package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// DayLayout is the calendar-date format accepted by the isodate tag.
const DayLayout = "2006-01-02"

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
	if err := Validate.RegisterValidation("isodate", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register isodate validator: %v", err))
	}
}

// validateISODate accepts empty strings and YYYY-MM-DD dates
func validateISODate(fl validator.FieldLevel) bool {
	v := strings.TrimSpace(fl.Field().String())
	if v == "" {
		return true
	}
	_, err := parseDay(v)
	return err == nil
}

// SanitizeText trims whitespace and drops control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// FailedFields returns the struct field names that failed validation, in order.
// Errors that are not validator errors yield nil.
func FailedFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// HasFailure reports whether field failed validation in err.
func HasFailure(err error, field string) bool {
	for _, f := range FailedFields(err) {
		if f == field {
			return true
		}
	}
	return false
}

func parseDay(v string) (time.Time, error) {
	return time.Parse(DayLayout, v)
}
