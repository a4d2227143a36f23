package bookmarks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// importSchema describes an export file: an object of rule id to record.
const importSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"title":   {"type": "string"},
			"addedAt": {"type": "string", "format": "date-time"}
		},
		"required": ["title"]
	}
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(importSchema))
	})
	return compiledSchema, schemaErr
}

// validateImport checks a document against importSchema. Only the first
// three violations are reported.
func validateImport(doc []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile import schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	more := ""
	if len(errs) > 3 {
		more = fmt.Sprintf(" (and %d more)", len(errs)-3)
		errs = errs[:3]
	}
	return fmt.Errorf("%s%s", strings.Join(errs, "; "), more)
}
