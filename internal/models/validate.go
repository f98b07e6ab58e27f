// internal/models/validate.go
package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError names the first offending field of a failed struct validation.
type FieldError struct {
	Field string
	Rule  string
	Value interface{}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field '%s' failed rule '%s' (got '%v')", e.Field, e.Rule, e.Value)
}

// Validate checks the validator tags on v and reports the first failure with
// a lower-camel field name matching the JSON variables.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: lowerFirst(fe.StructField()), Rule: fe.Tag(), Value: fe.Value()}
	}
	return err
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if s == "ID" {
		return "id"
	}
	return strings.ToLower(s[:1]) + s[1:]
}
