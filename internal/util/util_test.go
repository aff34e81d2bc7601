package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readArgs struct {
	Filepath  string   `json:"filepath" description:"Absolute path"`
	StartLine *int     `json:"start_line"`
	Mode      string   `json:"mode,omitempty" enum:"text,base64"`
	Tags      []string `json:"tags,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	s := CreateSchema(readArgs{})

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"filepath"}, s["required"])

	props := s["properties"].(map[string]any)
	assert.Equal(t, "Absolute path", props["filepath"].(map[string]any)["description"])
	assert.Equal(t, "integer", props["start_line"].(map[string]any)["type"])
	assert.Equal(t, []string{"text", "base64"}, props["mode"].(map[string]any)["enum"])
	assert.Equal(t, map[string]any{"type": "string"}, props["tags"].(map[string]any)["items"])

	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, CreateSchema(nil))
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(readArgs{})

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"ok", map[string]any{"filepath": "/a", "start_line": 3.0}, ""},
		{"missing", map[string]any{}, "filepath"},
		{"wrong type", map[string]any{"filepath": 1.0}, "expected type string"},
		{"fractional integer", map[string]any{"filepath": "/a", "start_line": 1.5}, "expected type integer"},
		{"enum", map[string]any{"filepath": "/a", "mode": "hex"}, "must be one of"},
		{"extra fields allowed", map[string]any{"filepath": "/a", "other": true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameters(tt.args, schema)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateParameters_DecodedJSONSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"text"},
	}

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"text": "x"}, schema))
}

func TestDecodeArgs(t *testing.T) {
	var a readArgs
	require.NoError(t, DecodeArgs(map[string]any{"filepath": "/a", "start_line": 2.0}, &a))

	assert.Equal(t, "/a", a.Filepath)
	require.NotNil(t, a.StartLine)
	assert.Equal(t, 2, *a.StartLine)
}

func TestTemplate_Render(t *testing.T) {
	tmpl := MustTemplate("greet", "Hello {{.Name}} <{{upper .Lang}}> {{join \", \" .Items}}")

	out, err := tmpl.Render(map[string]any{"Name": "A&B", "Lang": "en", "Items": []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello A&B <EN> x, y", out)

	_, err = tmpl.Render(map[string]any{"Name": "x"})
	assert.Error(t, err)
}

func TestRenderTemplate_FastPath(t *testing.T) {
	out, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)
}
