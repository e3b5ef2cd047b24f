// Package item holds the catalog data model and the repository contracts
// implemented by the storage backends.
package item

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://shopmart.local/schemas/item.schema.json"

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "itemName", "description", "stock", "price", "category"],
  "properties": {
    "id":          {"type": "string", "minLength": 1},
    "itemName":    {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "stock":       {"type": "integer", "minimum": 0},
    "price":       {"type": "number", "minimum": 0},
    "category":    {"type": "string", "minLength": 1}
  }
}`

var schema = compileSchema()

func compileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("item schema load failed: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// Validate checks it against the item schema. Violations wrap ErrInvalid.
func Validate(it Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
