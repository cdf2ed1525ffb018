package genai

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/sousschef/errors"
)

// Schema is a compiled JSON schema for structured generation.
type Schema struct {
	compiled *gojsonschema.Schema
}

// NewSchema compiles a JSON schema document.
func NewSchema(document string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, errors.WrapInvalid(err, "genai", "NewSchema", "schema compilation")
	}
	return &Schema{compiled: compiled}, nil
}

// MustSchema compiles a schema document and panics on error. For
// package-level schema declarations.
func MustSchema(document string) *Schema {
	schema, err := NewSchema(document)
	if err != nil {
		panic(err)
	}
	return schema
}

// Validate checks a JSON payload against the schema.
func (s *Schema) Validate(payload string) error {
	result, err := s.compiled.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return errors.WrapInvalid(err, "genai", "Validate", "payload parsing")
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidData, strings.Join(issues, "; ")),
			"genai", "Validate", "schema validation")
	}
	return nil
}
