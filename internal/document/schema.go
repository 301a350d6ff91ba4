package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchema is wrapped when a backend payload does not match its expected shape.
var ErrSchema = errors.New("payload does not match schema")

const pdfInfoSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["page_count", "pages"],
  "properties": {
    "page_count": {"type": "integer", "minimum": 1},
    "pages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["width", "height"],
        "properties": {
          "width": {"type": "number", "exclusiveMinimum": 0},
          "height": {"type": "number", "exclusiveMinimum": 0}
        }
      }
    }
  }
}`

const fieldListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "page", "x", "y", "w", "h"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "page": {"type": "integer", "minimum": 1},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "w": {"type": "number"},
          "h": {"type": "number"},
          "required": {"type": "boolean"}
        }
      }
    }
  }
}`

const embedResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["signed_document_url"],
  "properties": {
    "signed_document_url": {"type": "string", "minLength": 1},
    "signed_at": {"type": "string"},
    "signer_name": {"type": "string"},
    "signature_count": {"type": "integer", "minimum": 0}
  }
}`

var (
	pdfInfoLoader     = gojsonschema.NewStringLoader(pdfInfoSchema)
	fieldListLoader   = gojsonschema.NewStringLoader(fieldListSchema)
	embedResultLoader = gojsonschema.NewStringLoader(embedResultSchema)
)

// CheckPDFInfo validates a raw pdf-info response body.
func CheckPDFInfo(body []byte) error { return check(pdfInfoLoader, body) }

// CheckFieldList validates a raw signature-fields response body.
func CheckFieldList(body []byte) error { return check(fieldListLoader, body) }

// CheckEmbedResult validates a raw embed-signature response body.
func CheckEmbedResult(body []byte) error { return check(embedResultLoader, body) }

func check(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}
	return nil
}
