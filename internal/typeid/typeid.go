package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixFile      = "file"
	PrefixField     = "sigfield"
	PrefixSignature = "sig"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewFileID() string      { return New(PrefixFile) }
func NewFieldID() string     { return New(PrefixField) }
func NewSignatureID() string { return New(PrefixSignature) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
