package services

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// details is free-form, but stays a flat object of scalars or string lists
// so it can be rendered on both dashboards.
const proposalDetailsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "maxProperties": 40,
  "propertyNames": {"type": "string", "maxLength": 64},
  "properties": {
    "salary_expectation": {"type": ["string", "number"]},
    "notice_period": {"type": "string", "maxLength": 64},
    "remote": {"type": "boolean"},
    "location": {"type": "string", "maxLength": 128}
  },
  "additionalProperties": {
    "anyOf": [
      {"type": ["string", "number", "boolean", "null"]},
      {"type": "array", "maxItems": 50, "items": {"type": "string"}}
    ]
  }
}`

var detailsSchema = jsonschema.MustCompileString("proposal_details.json", proposalDetailsSchema)

func validateDetails(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("details must be valid json: %w", err)
	}
	return detailsSchema.Validate(v)
}
