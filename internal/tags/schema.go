package tags

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// vocabularySchema accepts both the versioned document and the original
// unversioned layout, which is migrated after validation.
const vocabularySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["files", "instruments", "acronyms_to_types", "not_tags"],
  "properties": {
    "schema_version": {"type": "integer", "minimum": 1},
    "next_file_id": {"type": "integer", "minimum": 1},
    "files": {
      "type": "object",
      "required": ["pid"],
      "properties": {
        "pid": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["path"],
            "properties": {
              "path": {"type": "string"},
              "unit": {"type": "string"},
              "number_of_instruments": {"type": "integer", "minimum": 0}
            }
          }
        }
      }
    },
    "instruments": {
      "type": "object",
      "additionalProperties": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "required": ["tag"],
          "properties": {
            "tag": {"type": "string"},
            "tag_less_unit": {"type": "string"},
            "accronyme": {"type": "string"},
            "datasheet": {
              "type": "object",
              "properties": {
                "file_id": {"type": "string"},
                "pages": {"type": ["array", "null"], "items": {"type": "integer"}}
              }
            }
          }
        }
      }
    },
    "acronyms_to_types": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "not_tags": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("vocabulary.json", strings.NewReader(vocabularySchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("vocabulary.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks raw vocabulary JSON against the document schema
func ValidateDocument(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal vocabulary: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("vocabulary does not match schema: %w", err)
	}
	return nil
}
