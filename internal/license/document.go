package license

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	apperrors "licensegate/internal/errors"
)

// Document field names.
const (
	FieldProduct   = "product"
	FieldLicenseID = "license_id"
	FieldCustomer  = "customer"
	FieldDevice    = "device"
	FieldExpiry    = "exp"
	FieldFeatures  = "features"
	FieldSignature = "sig"
)

// ExpiryLayout is the calendar date format of the exp field.
const ExpiryLayout = "2006-01-02"

// Document is a license document as read from disk. Numbers are kept as
// json.Number so that re-serialization reproduces them exactly.
type Document map[string]interface{}

// ParseDocument decodes a license document. Anything but a single JSON
// object is a MalformedLicense error.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, apperrors.Wrap("license.parse", apperrors.ErrMalformedLicense, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, apperrors.NewLicenseError("license.parse", apperrors.ErrMalformedLicense, "trailing data after document")
	}

	doc, ok := v.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewLicenseError("license.parse", apperrors.ErrMalformedLicense,
			fmt.Sprintf("document is a %s, not an object", jsonKind(v)))
	}
	return Document(doc), nil
}

// Marshal renders the document as indented JSON for writing to disk.
func (d Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}(d)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unsigned returns a shallow copy without the signature field.
func (d Document) Unsigned() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if k != FieldSignature {
			out[k] = v
		}
	}
	return out
}

// String returns the string value of field, or "" when it is absent or not
// a string.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Claims is the typed content of a license, used when issuing one.
type Claims struct {
	Product   string   `json:"product" validate:"required"`
	LicenseID string   `json:"license_id" validate:"required"`
	Customer  string   `json:"customer" validate:"required"`
	Device    string   `json:"device" validate:"required,hexadecimal"`
	Expiry    string   `json:"exp" validate:"required,datetime=2006-01-02"`
	Features  []string `json:"features"`
}

// Document converts claims to an unsigned document
func (c Claims) Document() Document {
	features := make([]interface{}, 0, len(c.Features))
	for _, f := range c.Features {
		features = append(features, f)
	}
	return Document{
		FieldProduct:   c.Product,
		FieldLicenseID: c.LicenseID,
		FieldCustomer:  c.Customer,
		FieldDevice:    c.Device,
		FieldExpiry:    c.Expiry,
		FieldFeatures:  features,
	}
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
