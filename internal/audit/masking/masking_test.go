package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMetadata(t *testing.T) {
	phone := "0901234567"
	out := MaskMetadata(map[string]any{
		"phone":     phone,
		"email":     "alice@example.com",
		"full_name": "Alice",
		"nested":    map[string]any{"Phone": &phone},
		"":          "dropped",
	})

	assert.Equal(t, "****4567", out["phone"])
	assert.Equal(t, "****@example.com", out["email"])
	assert.Equal(t, "Alice", out["full_name"])
	assert.Equal(t, map[string]any{"Phone": "****4567"}, out["nested"])
	assert.NotContains(t, out, "")
}

func TestMaskMetadataEmpty(t *testing.T) {
	assert.Nil(t, MaskMetadata(nil))
	assert.Nil(t, MaskMetadata(map[string]any{" ": 1}))
}

func TestMaskSecretShort(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("123"))
	assert.Equal(t, "", MaskSecret("  "))
}
