package model

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/file_manifest.schema.json
var fileManifestSchema string

//go:embed schemas/scraped_page_manifest.schema.json
var scrapedPageManifestSchema string

// ErrSchemaViolation is returned when a manifest does not match its schema.
var ErrSchemaViolation = errors.New("manifest does not match schema")

// SchemaError lists the individual schema violations of one document.
type SchemaError struct {
	// Violations are "field: description" strings in validator order.
	Violations []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchemaViolation, strings.Join(e.Violations, "; "))
}

// Unwrap lets errors.Is match ErrSchemaViolation.
func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

// Category implements Categorizer.
func (e *SchemaError) Category() ErrorCategory {
	return CategoryValidation
}

// ValidateFileManifestJSON checks raw manifest JSON against the file
// manifest schema.
func ValidateFileManifestJSON(data []byte) error {
	return validateJSON(fileManifestSchema, data)
}

// ValidateScrapedPageManifestJSON checks raw manifest JSON against the page
// manifest schema.
func ValidateScrapedPageManifestJSON(data []byte) error {
	return validateJSON(scrapedPageManifestSchema, data)
}

func validateJSON(schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{Violations: make([]string, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Violations = append(schemaErr.Violations, field+": "+desc.Description())
	}
	return schemaErr
}
