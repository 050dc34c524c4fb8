package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plumage/internal/schema"
)

func TestLoadYAML(t *testing.T) {
	m, err := Load("testdata/user.yaml")
	require.NoError(t, err)

	assert.Equal(t, "user", m.Name)
	assert.Equal(t, schema.TypeObject, m.Schema.Type)
	require.Contains(t, m.Schema.Properties, "people")
	people := m.Schema.Properties["people"]
	assert.Equal(t, schema.TypeCollection, people.Type)
	assert.Equal(t, []string{"name"}, people.Items.Required)
	assert.Equal(t, "user/people", people.Items.Properties["friend"].Relation)
	assert.Equal(t, map[string]any{"theme": "dark"}, m.Defaults["settings"])
}

func TestLoadCUE(t *testing.T) {
	m, err := Load("testdata/notes.cue")
	require.NoError(t, err)

	assert.Equal(t, "notes", m.Name)
	assert.Equal(t, "light", m.Defaults["theme"])
	notes := m.Schema.Properties["notes"]
	require.NotNil(t, notes)
	assert.Equal(t, schema.TypeCollection, notes.Type)
	assert.Equal(t, "user/people", notes.Items.Properties["author"].Relation)
}

func TestLoadDir(t *testing.T) {
	manifests, err := LoadDir("testdata")
	require.NoError(t, err)

	var names []string
	for _, m := range manifests {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"notes", "user"}, names)
}

func TestLoadDir_RejectsDuplicatePlugin(t *testing.T) {
	dir := t.TempDir()
	body := []byte("name: dup\nschema:\n  type: object\n  properties:\n    x: { type: string }\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644))

	_, err := LoadDir(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `plugin "dup" declared by both`)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifests found")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest extension")
}

func TestParseYAML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "schema:\n  type: object\n",
			wantErr: `field name failed "required"`,
		},
		{
			name:    "slash in name",
			yaml:    "name: a/b\nschema:\n  type: object\n",
			wantErr: `field name failed "plugin_name"`,
		},
		{
			name:    "underscore in name",
			yaml:    "name: my_plugin\nschema:\n  type: object\n",
			wantErr: `field name failed "plugin_name"`,
		},
		{
			name:    "missing schema",
			yaml:    "name: user\n",
			wantErr: `field schema failed "required"`,
		},
		{
			name:    "unknown field",
			yaml:    "name: user\nschemas: {}\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCUE_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cue     string
		wantErr string
	}{
		{
			name:    "syntax error",
			cue:     `name: "x" schema: {`,
			wantErr: "failed to parse CUE",
		},
		{
			name:    "name not a string",
			cue:     `name: 3, schema: type: "object"`,
			wantErr: "name:",
		},
		{
			name:    "missing schema",
			cue:     `name: "x"`,
			wantErr: `field schema failed "required"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCUE([]byte(tt.cue), "inline.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
