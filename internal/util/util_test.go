package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageID(t *testing.T) {
	a := NewMessageID("a1")
	b := NewMessageID("a1")
	assert.True(t, strings.HasPrefix(a, "a1_"))
	assert.Len(t, a, len("a1_")+26) // ULID length
	assert.NotEqual(t, a, b)
}

func TestNewID(t *testing.T) {
	id := NewID()
	assert.NotEmpty(t, id)
	assert.Len(t, id, 36) // UUID length
}

const citySchema = `{
	"type": "object",
	"properties": {
		"city": {"type": "string", "minLength": 1},
		"days": {"type": "integer", "minimum": 1, "maximum": 5},
		"cities": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["city"]
}`

func TestSchemaValidate(t *testing.T) {
	s, err := CompileSchema("city.json", citySchema)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload map[string]any
		wantErr string
	}{
		{"valid", map[string]any{"city": "Berlin", "days": 3}, ""},
		{"valid json number", map[string]any{"city": "Berlin", "days": float64(2)}, ""},
		{"valid go slice", map[string]any{"city": "Berlin", "cities": []string{"a", "b"}}, ""},
		{"missing city", map[string]any{"days": 3}, "city"},
		{"nil payload", nil, "city"},
		{"days out of range", map[string]any{"city": "Berlin", "days": 9}, "/days"},
		{"wrong type", map[string]any{"city": 12}, "/city"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), "invalid payload")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileSchemaInvalid(t *testing.T) {
	_, err := CompileSchema("bad.json", `{"type": `)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompileSchema("bad.json", `{"type": `) })
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate("Hello {{upper .name}} from {{default \"nowhere\" .city}}", map[string]any{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello ADA from nowhere", out)

	_, err = RenderTemplate("{{ .broken", nil)
	assert.Error(t, err)
}
