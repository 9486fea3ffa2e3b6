package validation

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema for job variables or content documents.
type Schema struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Compile parses a JSON schema document once so it can be reused per job.
func Compile(schemaJSON string) (*Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: schema}, nil
}

// ValidateJSON validates raw JSON text. Malformed JSON is returned as an error, not a result.
func (s *Schema) ValidateJSON(raw string) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewStringLoader(raw))
}

// ValidateDocument validates an already decoded document (maps, slices, scalars).
func (s *Schema) ValidateDocument(doc interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(doc))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{
		Valid: result.Valid(),
		Errors: lo.Map(result.Errors(), func(e gojsonschema.ResultError, _ int) ValidationError {
			return ValidationError{
				Field:   fieldName(e),
				Message: e.Description(),
				Code:    strings.ToUpper(e.Type()),
			}
		}),
	}, nil
}

// required errors are reported on the parent, so point them at the missing property instead.
func fieldName(e gojsonschema.ResultError) string {
	field := e.Field()
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			if field == "(root)" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Error joins every message, for callers that surface the result as one validation error.
func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
