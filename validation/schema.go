package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const prescriptionSchema = `{
	"type": "object",
	"properties": {
		"transcript": {"type": "string"}
	},
	"required": ["transcript"],
	"additionalProperties": false
}`

const batchSchema = `{
	"type": "object",
	"properties": {
		"transcripts": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1
		}
	},
	"required": ["transcripts"],
	"additionalProperties": false
}`

const sendSchema = `{
	"type": "object",
	"properties": {
		"transcript": {"type": "string"},
		"to": {"type": "string", "minLength": 1}
	},
	"required": ["transcript", "to"],
	"additionalProperties": false
}`

// RequestSchema validates a JSON request body before it is decoded into
// its Go type.
type RequestSchema struct {
	name   string
	schema *jsonschema.Schema
}

// Request body schemas for the prescription endpoints.
var (
	PrescriptionRequest = mustCompileSchema("prescription.json", prescriptionSchema)
	BatchRequest        = mustCompileSchema("batch.json", batchSchema)
	SendRequest         = mustCompileSchema("send.json", sendSchema)
)

// CompileSchema compiles a JSON schema document registered under name.
func CompileSchema(name, document string) (*RequestSchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(document)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &RequestSchema{name: name, schema: schema}, nil
}

func mustCompileSchema(name, document string) *RequestSchema {
	s, err := CompileSchema(name, document)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks body against the schema. Failures wrap ErrInvalidRequest.
func (s *RequestSchema) Validate(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidRequest, err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(err))
	}
	return nil
}

// describe flattens a schema validation error to its most specific cause.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	location := ve.InstanceLocation
	if location == "" {
		location = "body"
	}
	return location + ": " + ve.Message
}
