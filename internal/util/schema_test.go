package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	type args struct {
		City    string  `json:"city" description:"City name"`
		Days    int     `json:"days,omitempty"`
		Celsius *bool   `json:"celsius"`
		Scale   float64 `json:"scale"`
		Skipped string  `json:"-"`
	}

	schema := CreateSchema(args{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 4)

	city, ok := props["city"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])

	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["celsius"].(map[string]any)["type"])
	assert.Equal(t, "number", props["scale"].(map[string]any)["type"])

	// omitempty and pointer fields are optional
	assert.Equal(t, []string{"city", "scale"}, schema["required"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema(42)
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestRenderTemplate(t *testing.T) {
	t.Run("no markers fast path", func(t *testing.T) {
		out, err := RenderTemplate("plain text", nil)
		require.NoError(t, err)
		assert.Equal(t, "plain text", out)
	})

	t.Run("substitution and funcs", func(t *testing.T) {
		out, err := RenderTemplate(
			"Hello {{.name | upper}}, role: {{default \"guest\" .role}}",
			map[string]any{"name": "ada"},
		)
		require.NoError(t, err)
		assert.Equal(t, "Hello ADA, role: guest", out)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := RenderTemplate("{{.broken", nil)
		require.Error(t, err)
	})
}
