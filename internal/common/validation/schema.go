package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names understood by ValidateResponse.
const (
	SchemaPrediction = "prediction"
	SchemaOptions    = "options"
	SchemaHealth     = "health"

	// SchemaEstimateJob describes the variables of an estimate-property-price job.
	SchemaEstimateJob = "estimate-job"
)

const predictionSchema = `{
  "type": "object",
  "required": ["predicted_price"],
  "properties": {
    "predicted_price": {"type": "number"},
    "model_used": {"type": "string"},
    "confidence_interval": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "required": ["lower", "upper"],
          "properties": {
            "lower": {"type": "number"},
            "upper": {"type": "number"}
          }
        }
      ]
    },
    "input_features": {"type": ["object", "null"]}
  }
}`

const optionsSchema = `{
  "type": "object",
  "properties": {
    "locations": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "array",
        "items": {"type": "string"}
      }
    },
    "property_types": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    }
  }
}`

const healthSchema = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string"},
    "model_loaded": {"type": "boolean"},
    "model_name": {"type": ["string", "null"]},
    "timestamp": {"type": "string"}
  }
}`

const estimateJobSchema = `{
  "type": "object",
  "required": ["property"],
  "properties": {
    "property": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean", "null"]}
    }
  }
}`

var schemas = map[string]*gojsonschema.Schema{
	SchemaPrediction:  mustCompile(predictionSchema),
	SchemaOptions:     mustCompile(optionsSchema),
	SchemaHealth:      mustCompile(healthSchema),
	SchemaEstimateJob: mustCompile(estimateJobSchema),
}

func mustCompile(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid response schema: %v", err))
	}
	return s
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

// Summary joins every error into one line.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// ValidateResponse checks a raw JSON response body against the named schema.
func ValidateResponse(name string, body []byte) (*ValidationResult, error) {
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown response schema %q", name)
	}

	return validate(schema, gojsonschema.NewBytesLoader(body))
}

// ValidateInput checks decoded job variables against the named schema.
func ValidateInput(name string, variables map[string]interface{}) (*ValidationResult, error) {
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown input schema %q", name)
	}
	return validate(schema, gojsonschema.NewGoLoader(variables))
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}
