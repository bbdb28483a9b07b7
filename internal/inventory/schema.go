package inventory

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Document kinds, also used as store keys.
const (
	KindDebs     = "debs"
	KindSnaps    = "snaps"
	KindFlatpaks = "flatpaks"
	KindUmake    = "umake"
)

// ErrInvalidDocument is returned when a document does not match its schema.
var ErrInvalidDocument = errors.New("invalid document")

//go:embed schema/*.json
var schemaFS embed.FS

// Validate checks a JSON document of the given kind against its schema.
func Validate(kind string, data []byte) error {
	schema, err := schemaFS.ReadFile("schema/" + kind + ".schema.json")
	if err != nil {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDocument, kind)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDocument, kind, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, kind, strings.Join(msgs, "; "))
}

// Encode marshals v and validates the result as a document of kind.
func Encode(kind string, v any) ([]byte, error) {
	if doc, ok := v.(*Document); ok {
		doc.fillEmpty()
		doc.Recount()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", kind, err)
	}
	if err := Validate(kind, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode validates data as a document of kind and unmarshals it into v.
func Decode(kind string, data []byte, v any) error {
	if err := Validate(kind, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s document: %w", kind, err)
	}
	return nil
}

// fillEmpty replaces nil lists so they encode as [] rather than null.
func (d *Document) fillEmpty() {
	if d.Official == nil {
		d.Official = []OfficialPackage{}
	}
	if d.PPA == nil {
		d.PPA = []PPAPackage{}
	}
	if d.ThirdParty == nil {
		d.ThirdParty = []ThirdPartyPackage{}
	}
	if d.ThirdPartyKeys == nil {
		d.ThirdPartyKeys = []PackageKey{}
	}
	for i := range d.ThirdPartyKeys {
		if d.ThirdPartyKeys[i].Rules == nil {
			d.ThirdPartyKeys[i].Rules = []string{}
		}
	}
	if d.Local == nil {
		d.Local = []string{}
	}
}
