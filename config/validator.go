package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError is a validation error for a single field.
type FieldError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects all failed fields.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - " + err.Error() + "\n")
	}
	return sb.String()
}

// Validate checks struct tags plus the cross-field rules the tags cannot
// express.
func Validate(cfg *Config) error {
	var details ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range fieldErrors {
			details = append(details, FieldError{
				Field:   fe.Namespace(),
				Message: formatTag(fe),
				Value:   fe.Value(),
			})
		}
	}

	if cfg.Embedder.Provider == "onnx" {
		if cfg.Embedder.ModelPath == "" {
			details = append(details, FieldError{
				Field:   "Config.Embedder.ModelPath",
				Message: "required when embedder.provider is onnx",
			})
		}
		if cfg.Embedder.TokenizerPath == "" {
			details = append(details, FieldError{
				Field:   "Config.Embedder.TokenizerPath",
				Message: "required when embedder.provider is onnx",
			})
		}
	}
	if cfg.Storage.Backend == "badger" && cfg.Storage.Path == "" {
		details = append(details, FieldError{
			Field:   "Config.Storage.Path",
			Message: "required when storage.backend is badger",
		})
	}

	if len(details) > 0 {
		return details
	}
	return nil
}

func formatTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
