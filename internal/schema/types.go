// Package schema declares plugin state shapes and flattens them into
// path-addressed validation entries.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plumage/internal/ir"
)

// Type is the declared kind of a schema node.
type Type string

const (
	TypeCollection Type = "collection"
	TypeObject     Type = "object"
	TypeArray      Type = "array"
	TypeString     Type = "string"
	TypeNumber     Type = "number"
	TypeBoolean    Type = "boolean"
	TypeOpaque     Type = "opaque"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeCollection, TypeObject, TypeArray, TypeString, TypeNumber, TypeBoolean, TypeOpaque:
		return true
	}
	return false
}

// IsContainer reports whether t declares an items sub-schema.
func (t Type) IsContainer() bool {
	return t == TypeArray || t == TypeCollection
}

// Context is what generators see when they run. The store passes the
// owning plugin's context on every call.
type Context interface {
	// Plugin returns the name of the plugin that declared the schema.
	Plugin() string
	// Value reads current state, e.g. a sibling collection's settings.
	Value(name, id string) (ir.Value, bool)
}

// Affix is a literal or computed ID prefix/suffix.
type Affix struct {
	Literal string
	Func    func(Context) string
}

// Lit returns a literal affix.
func Lit(s string) Affix { return Affix{Literal: s} }

// Computed returns an affix produced by fn at resolution time.
func Computed(fn func(Context) string) Affix { return Affix{Func: fn} }

// IsZero reports whether the affix is unset.
func (a Affix) IsZero() bool { return a.Literal == "" && a.Func == nil }

// Resolve returns the affix value for ctx.
func (a Affix) Resolve(ctx Context) string {
	if a.Func != nil {
		return a.Func(ctx)
	}
	return a.Literal
}

// UnmarshalYAML reads a literal affix.
func (a *Affix) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("id affix must be a string: %w", err)
	}
	*a = Affix{Literal: s}
	return nil
}

// MarshalJSON renders literal affixes as strings and computed ones as a marker.
func (a Affix) MarshalJSON() ([]byte, error) {
	if a.Func != nil {
		return []byte(`"<computed>"`), nil
	}
	return json.Marshal(a.Literal)
}

// IDSpec computes document IDs for a collection.
type IDSpec struct {
	Prefix  Affix                `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix  Affix                `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Default func(Context) string `yaml:"-" json:"-"`
}

// Default is a literal default value or a generator.
type Default struct {
	Value ir.Value
	Func  func(Context) (ir.Value, error)
}

// Materialize returns the default value for ctx.
func (d *Default) Materialize(ctx Context) (ir.Value, error) {
	if d.Func != nil {
		return d.Func(ctx)
	}
	if d.Value == nil {
		return ir.Null{}, nil
	}
	return d.Value, nil
}

// UnmarshalYAML reads a literal default of any shape.
func (d *Default) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := ir.FromNative(raw)
	if err != nil {
		return fmt.Errorf("default: %w", err)
	}
	*d = Default{Value: v}
	return nil
}

// Node is a nested schema declaration as a plugin writes it.
type Node struct {
	Type                 Type             `yaml:"type" json:"type"`
	Properties           map[string]*Node `yaml:"properties,omitempty" json:"properties,omitempty"`
	PatternProperties    map[string]*Node `yaml:"patternProperties,omitempty" json:"patternProperties,omitempty"`
	Items                *Node            `yaml:"items,omitempty" json:"items,omitempty"`
	Required             []string         `yaml:"required,omitempty" json:"required,omitempty"`
	AdditionalProperties *bool            `yaml:"additionalProperties,omitempty" json:"additionalProperties,omitempty"`
	UniqueItems          bool             `yaml:"uniqueItems,omitempty" json:"uniqueItems,omitempty"`
	Relation             string           `yaml:"relation,omitempty" json:"relation,omitempty"`
	Default              *Default         `yaml:"default,omitempty" json:"-"`
	ID                   *IDSpec          `yaml:"id,omitempty" json:"id,omitempty"`
}

// Property summarizes one declared property of an object entry.
type Property struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// Pattern is a compiled patternProperties key.
type Pattern struct {
	Source string `json:"source"`
	Type   Type   `json:"type"`
	re     *regexp.Regexp
}

// Match reports whether name matches the pattern.
func (p Pattern) Match(name string) bool {
	return p.re != nil && p.re.MatchString(name)
}

// Options carries the cross-cutting rules of an entry.
type Options struct {
	Relation             string   `json:"relation,omitempty"`
	Required             bool     `json:"required,omitempty"`
	AdditionalProperties *bool    `json:"additionalProperties,omitempty"`
	UniqueItems          bool     `json:"uniqueItems,omitempty"`
	Default              *Default `json:"-"`
}

// Entry is the compiled validation rule for one path.
type Entry struct {
	Type              Type       `json:"type"`
	Properties        []Property `json:"properties,omitempty"`
	PatternProperties []Pattern  `json:"patternProperties,omitempty"`
	Options           Options    `json:"options"`
	ID                *IDSpec    `json:"id,omitempty"`
	Plugin            string     `json:"plugin,omitempty"`
}

// Property returns the declared property called name.
func (e *Entry) Property(name string) (Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// MatchPattern returns the first pattern property matching name.
func (e *Entry) MatchPattern(name string) (Pattern, bool) {
	for _, p := range e.PatternProperties {
		if p.Match(name) {
			return p, true
		}
	}
	return Pattern{}, false
}

// IsAny reports whether an object entry declares no shape at all.
func (e *Entry) IsAny() bool {
	return len(e.Properties) == 0 && len(e.PatternProperties) == 0
}

// AllowsAdditional reports whether undeclared keys are accepted.
// Unset means allowed.
func (e *Entry) AllowsAdditional() bool {
	return e.Options.AdditionalProperties == nil || *e.Options.AdditionalProperties
}

// Compiled pairs an entry with its path.
type Compiled struct {
	Path  string `json:"path"`
	Entry *Entry `json:"entry"`
}
