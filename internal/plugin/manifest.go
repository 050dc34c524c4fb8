// Package plugin loads plugin manifests and applies them to a store.
//
// A manifest declares a plugin's name, its state schema and optional
// initial values:
//
//	name: user
//	defaults:
//	  settings: { theme: dark }
//	schema:
//	  type: object
//	  properties:
//	    settings:
//	      type: object
//	      properties:
//	        theme: { type: string }
//
// Manifests are read from YAML (.yaml, .yml) or CUE (.cue) files.
package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/plumage/internal/schema"
)

// Manifest is the setup contract a plugin hands to the store.
type Manifest struct {
	// Name prefixes every collection the plugin declares.
	Name string `yaml:"name" json:"name" validate:"required,plugin_name"`

	// Defaults maps a top-level property to its initial value. For a
	// collection the value maps document IDs to items.
	Defaults map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Schema is the root declaration. Every property becomes a collection.
	Schema *schema.Node `yaml:"schema" json:"schema" validate:"required"`
}

var (
	manifestValidate *validator.Validate
	pluginName       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
)

func init() {
	manifestValidate = validator.New()

	// Collection names are "<plugin>/<property>" and affixed IDs are split on
	// "_", so neither may appear in a plugin name.
	err := manifestValidate.RegisterValidation("plugin_name", func(fl validator.FieldLevel) bool {
		return pluginName.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("plugin: register plugin_name validation: %v", err))
	}
}

// Validate checks the manifest's struct tags.
func (m *Manifest) Validate() error {
	if err := manifestValidate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid manifest: field %s failed %q", strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}

// ParseYAML decodes and validates a YAML manifest. Unknown fields are
// rejected.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseCUE decodes and validates a CUE manifest. filename is only used in
// error positions.
func ParseCUE(data []byte, filename string) (*Manifest, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	var m Manifest
	if name := v.LookupPath(cue.ParsePath("name")); name.Exists() {
		s, err := name.String()
		if err != nil {
			return nil, fmt.Errorf("name: %w", err)
		}
		m.Name = s
	}
	if defaults := v.LookupPath(cue.ParsePath("defaults")); defaults.Exists() {
		if err := defaults.Decode(&m.Defaults); err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}
	}
	if root := v.LookupPath(cue.ParsePath("schema")); root.Exists() {
		node, err := schema.FromCUE(root)
		if err != nil {
			return nil, err
		}
		m.Schema = node
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads the manifest at path, picking the format from its extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m *Manifest
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		m, err = ParseYAML(data)
	case ".cue":
		m, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("%s: unsupported manifest extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// IsManifestFile reports whether path has a manifest extension.
func IsManifestFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// LoadDir loads every manifest file directly inside dir, in file name
// order. Two manifests declaring the same plugin name are rejected.
func LoadDir(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && IsManifestFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no manifests found in %s", dir)
	}

	seen := make(map[string]string, len(paths))
	manifests := make([]*Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := Load(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[m.Name]; ok {
			return nil, fmt.Errorf("plugin %q declared by both %s and %s", m.Name, prev, p)
		}
		seen[m.Name] = p
		manifests = append(manifests, m)
	}
	return manifests, nil
}
