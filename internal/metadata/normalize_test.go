package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace-mirror/internal/metadata"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		doc    map[string]interface{}
		assert func(t *testing.T, f metadata.Fields)
	}{
		{
			name: "basic fields",
			doc:  map[string]interface{}{"name": "  Sunrise ", "description": "A photograph", "image": "ipfs://bafy"},
			assert: func(t *testing.T, f metadata.Fields) {
				require.NotNil(t, f.Name)
				assert.Equal(t, "Sunrise", *f.Name)
				require.NotNil(t, f.Image)
				assert.Equal(t, "ipfs://bafy", *f.Image)
				assert.Nil(t, f.Attributes)
			},
		},
		{
			name: "image_url fallback",
			doc:  map[string]interface{}{"image": "", "image_url": "https://example.com/a.png"},
			assert: func(t *testing.T, f metadata.Fields) {
				require.NotNil(t, f.Image)
				assert.Equal(t, "https://example.com/a.png", *f.Image)
			},
		},
		{
			name: "properties take precedence over top level",
			doc: map[string]interface{}{
				"ip_type":    "Art",
				"author":     "Top",
				"properties": map[string]interface{}{"ip_type": "Music", "license_type": "MIT"},
			},
			assert: func(t *testing.T, f metadata.Fields) {
				require.NotNil(t, f.IPType)
				assert.Equal(t, "Music", *f.IPType)
				require.NotNil(t, f.LicenseType)
				assert.Equal(t, "MIT", *f.LicenseType)
				require.NotNil(t, f.Author)
				assert.Equal(t, "Top", *f.Author)
			},
		},
		{
			name: "non string values",
			doc:  map[string]interface{}{"name": 7.0, "commercial_use": false, "description": map[string]interface{}{}},
			assert: func(t *testing.T, f metadata.Fields) {
				require.NotNil(t, f.Name)
				assert.Equal(t, "7", *f.Name)
				require.NotNil(t, f.CommercialUse)
				assert.Equal(t, "false", *f.CommercialUse)
				assert.Nil(t, f.Description)
			},
		},
		{
			name: "attributes kept as JSON",
			doc:  map[string]interface{}{"attributes": []interface{}{map[string]interface{}{"trait_type": "Year", "value": 2024.0}}},
			assert: func(t *testing.T, f metadata.Fields) {
				assert.JSONEq(t, `[{"trait_type":"Year","value":2024}]`, string(f.Attributes))
			},
		},
		{
			name: "empty document",
			doc:  map[string]interface{}{},
			assert: func(t *testing.T, f metadata.Fields) {
				assert.Equal(t, metadata.Fields{}, f)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, metadata.Normalize(tt.doc))
		})
	}
}
