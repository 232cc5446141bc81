package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"accelerator-admin/internal/common/errors"
)

// UpdateStatusSchema describes the body of POST /update-application-status.
// Values are only shape-checked here; the transition authority owns the
// vocabulary of types and statuses.
const UpdateStatusSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "type", "status"],
  "properties": {
    "id":         {"type": "string", "minLength": 1, "maxLength": 128},
    "type":       {"type": "string", "minLength": 1, "maxLength": 32},
    "status":     {"type": "string", "minLength": 1, "maxLength": 32},
    "adminNotes": {"type": ["string", "null"], "maxLength": 4000},
    "sendEmail":  {"type": "boolean"}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a raw JSON document. A document that is not JSON at all is
// reported as a single error on the root.
func (s *Schema) Validate(doc []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "body is not valid JSON",
			Code:    "INVALID_JSON",
		}}}
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return vr
}

// Err converts a failed result into an InvalidArgument error naming the
// first offending field.
func (vr *ValidationResult) Err() error {
	if vr == nil || vr.Valid {
		return nil
	}
	if len(vr.Errors) == 0 {
		return errors.NewInvalidArgumentError("body", "validation failed")
	}
	return errors.NewInvalidArgumentError(vr.Errors[0].Field, strings.Join(vr.GetErrorMessages(), "; "))
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
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

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// ValidateE164 reports whether phone is an E.164 number, the only format SNS
// accepts for direct SMS publishing.
func ValidateE164(phone string) bool {
	return phonePattern.MatchString(phone)
}
