package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxNameLength is the longest preset name accepted, in characters.
	MaxNameLength = 120
	// MaxDocumentBytes bounds the encoded size of a parameters document.
	MaxDocumentBytes = 64 << 10
)

var toolIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateToolID checks the tool identifier used to scope presets.
func ValidateToolID(toolID string) error {
	if toolID == "" {
		return &ValidationError{Errors: []FieldError{{Field: "tool_id", Message: "is required"}}}
	}
	if !toolIDPattern.MatchString(toolID) {
		return &ValidationError{Errors: []FieldError{{
			Field:   "tool_id",
			Message: fmt.Sprintf("invalid value %q", toolID),
		}}}
	}
	return nil
}

// ValidatePreset checks a Preset for constraint violations before it is saved.
// It returns a *ValidationError if any rules fail, or nil if the preset is valid.
// The parameters document is only checked for size; its shape belongs to the tool.
func ValidatePreset(p *Preset) error {
	var ve ValidationError

	name := strings.TrimSpace(p.Name)
	if name == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	} else if len([]rune(name)) > MaxNameLength {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "name",
			Message: fmt.Sprintf("must be %d characters or fewer", MaxNameLength),
		})
	}

	if strings.TrimSpace(p.OwnerID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "owner_id", Message: "is required"})
	}

	if err := ValidateToolID(p.ToolID); err != nil {
		ve.Errors = append(ve.Errors, err.(*ValidationError).Errors...)
	}

	if !p.Visibility.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "visibility",
			Message: fmt.Sprintf("invalid value %q", p.Visibility),
		})
	}

	encoded, err := json.Marshal(p.Parameters)
	if err != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "parameters", Message: "is not encodable"})
	} else if len(encoded) > MaxDocumentBytes {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "parameters",
			Message: fmt.Sprintf("must be %d bytes or fewer when encoded", MaxDocumentBytes),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
