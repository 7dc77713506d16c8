package metadata

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// Fields are the token columns populated from a metadata document
type Fields struct {
	Name        *string
	Description *string
	Image       *string
	Attributes  datatypes.JSON

	// IP licensing fields, read from properties.* first then the top level
	IPType        *string
	LicenseType   *string
	CommercialUse *string
	Author        *string
}

// Normalize extracts the token fields of an OpenSea style document extended with the
// Mediolano IP properties
func Normalize(doc map[string]interface{}) Fields {
	fields := Fields{
		Name:        stringField(doc, "name"),
		Description: stringField(doc, "description"),
		Image:       stringField(doc, "image"),
	}
	if fields.Image == nil {
		fields.Image = stringField(doc, "image_url")
	}

	if attrs, ok := doc["attributes"]; ok && attrs != nil {
		if raw, err := json.Marshal(attrs); err == nil {
			fields.Attributes = raw
		}
	}

	props, _ := doc["properties"].(map[string]interface{})
	fields.IPType = propertyField(doc, props, "ip_type")
	fields.LicenseType = propertyField(doc, props, "license_type")
	fields.CommercialUse = propertyField(doc, props, "commercial_use")
	fields.Author = propertyField(doc, props, "author")

	return fields
}

func propertyField(doc, props map[string]interface{}, key string) *string {
	if v := stringField(props, key); v != nil {
		return v
	}
	return stringField(doc, key)
}

// stringField returns a non-empty string value. Booleans and numbers are formatted,
// since commercial_use is published both as "Yes" and as true.
func stringField(m map[string]interface{}, key string) *string {
	if m == nil {
		return nil
	}

	var s string
	switch v := m[key].(type) {
	case string:
		s = strings.TrimSpace(v)
	case bool, float64:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		s = string(b)
	default:
		return nil
	}

	if s == "" {
		return nil
	}
	return &s
}
