package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dshills/brewvault/pkg/validation"
)

// settingsSchema constrains configuration files: known keys only, with
// the right scalar types. Range checks (non-negative sizes) happen in
// Resolve so every source is held to the same rules.
const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "brewvault configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "destination":       { "type": "string", "minLength": 1 },
    "log_dir":           { "type": "string", "minLength": 1 },
    "max_log_size":      { "type": "integer" },
    "max_log_files":     { "type": "integer" },
    "commit_enabled":    { "type": "boolean" },
    "command_timeout":   { "type": "string", "minLength": 1 },
    "notify_on_failure": { "type": "boolean" }
  }
}`

// validateRaw checks a parsed config document against the schema before
// its values are merged.
//
// Schema violations are configuration errors; the message names every
// offending field and why it was rejected.
func validateRaw(doc map[string]interface{}) error {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config to JSON for validation: %w", err)
	}

	var data interface{}
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return fmt.Errorf("failed to unmarshal config JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(settingsSchema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, desc := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += fmt.Sprintf("%s: %s", desc.Field(), desc.Description())
		}
		return validation.NewFieldError("config file", "", errMsg)
	}

	return nil
}
