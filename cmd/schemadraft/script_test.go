package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	script, err := ParseScript([]byte(`
steps:
  - add_attribute:
      name: cover
      attribute:
        type: media
        multiple: false
  - create_schema:
      kind: component
      uid: default.ingredient
      category: default
      data:
        name: Ingredient
  - set_modified_data: true
  - navigate: /plugins/content-type-builder/content-types/m
`))
	require.NoError(t, err)
	require.Len(t, script.Steps, 4)

	assert.Equal(t, "cover", script.Steps[0].AddAttribute.Name)
	assert.Equal(t, "media", script.Steps[0].AddAttribute.Attribute.Type())
	assert.Equal(t, "default", script.Steps[1].CreateSchema.Category)
	assert.Equal(t, "Ingredient", script.Steps[1].CreateSchema.Data.Name)
	assert.True(t, script.Steps[2].SetModifiedData)
	assert.Equal(t, "/plugins/content-type-builder/content-types/m", script.Steps[3].Navigate)
}

func TestParseScriptAcceptsJSON(t *testing.T) {
	script, err := ParseScript([]byte(`{"steps":[{"add_attribute":{"name":"title","attribute":{"type":"string"}}}]}`))
	require.NoError(t, err)
	require.Len(t, script.Steps, 1)
	assert.Equal(t, "title", script.Steps[0].AddAttribute.Name)
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty step", "steps:\n  - {}\n", "step 1: want exactly one edit, got 0"},
		{"two edits", "steps:\n  - set_modified_data: true\n    navigate: /x\n", "step 1: want exactly one edit, got 2"},
		{"bad kind", "steps:\n  - create_schema: {kind: page, uid: x}\n", "unknown schema kind"},
		{"not yaml", "steps: [", "parsing script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.input))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
