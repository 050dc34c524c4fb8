package schema

import (
	"fmt"
	"regexp"
	"slices"
	"sort"

	"cuelang.org/go/cue/token"
)

// Compile flattens a nested declaration rooted at base into path-addressed
// entries. Children are emitted before their container and properties in
// sorted name order, so the output is deterministic.
//
// For base "user" and a collection property "items", the collection entry is
// "user/items" and its item schema is "user/items/items".
func Compile(plugin, base string, node *Node) ([]Compiled, error) {
	c := &compiler{plugin: plugin}
	if err := c.compile(base, node, false); err != nil {
		return nil, err
	}
	return c.out, nil
}

type compiler struct {
	plugin string
	out    []Compiled
}

func (c *compiler) compile(path string, n *Node, required bool) error {
	if n == nil {
		return &CompileError{Path: path, Message: "schema node is empty"}
	}
	typ, err := nodeType(path, n)
	if err != nil {
		return err
	}
	if err := checkNode(path, typ, n); err != nil {
		return err
	}

	entry := &Entry{
		Type: typ,
		Options: Options{
			Relation:             n.Relation,
			Required:             required,
			AdditionalProperties: n.AdditionalProperties,
			UniqueItems:          n.UniqueItems,
			Default:              n.Default,
		},
		ID:     n.ID,
		Plugin: c.plugin,
	}

	switch {
	case typ == TypeObject:
		for _, name := range sortedKeys(n.Properties) {
			child := n.Properties[name]
			childRequired := slices.Contains(n.Required, name)
			if err := c.compile(path+"/"+name, child, childRequired); err != nil {
				return err
			}
			childType, _ := nodeType(path+"/"+name, child)
			entry.Properties = append(entry.Properties, Property{
				Name:     name,
				Type:     childType,
				Required: childRequired,
			})
		}
		for _, src := range sortedKeys(n.PatternProperties) {
			re, err := regexp.Compile(src)
			if err != nil {
				return &CompileError{Path: path, Message: fmt.Sprintf("invalid pattern %q: %v", src, err)}
			}
			child := n.PatternProperties[src]
			if err := c.compile(path+"/"+src, child, false); err != nil {
				return err
			}
			childType, _ := nodeType(path+"/"+src, child)
			entry.PatternProperties = append(entry.PatternProperties, Pattern{
				Source: src,
				Type:   childType,
				re:     re,
			})
		}
	case typ.IsContainer() && n.Items != nil:
		if err := c.compile(path+"/items", n.Items, false); err != nil {
			return err
		}
	}

	c.out = append(c.out, Compiled{Path: path, Entry: entry})
	return nil
}

// nodeType returns the declared type, inferring object for nodes that only
// declare properties.
func nodeType(path string, n *Node) (Type, error) {
	typ := n.Type
	if typ == "" && (len(n.Properties) > 0 || len(n.PatternProperties) > 0) {
		typ = TypeObject
	}
	if typ == "" {
		return "", &CompileError{Path: path, Message: "type is required"}
	}
	if !typ.Valid() {
		return "", &CompileError{Path: path, Message: fmt.Sprintf("unknown type %q", typ)}
	}
	return typ, nil
}

func checkNode(path string, typ Type, n *Node) error {
	if n.Items != nil && !typ.IsContainer() {
		return &CompileError{Path: path, Message: fmt.Sprintf("items is not allowed on %s", typ)}
	}
	if typ == TypeCollection && n.Items == nil {
		return &CompileError{Path: path, Message: "collection requires an items schema"}
	}
	if (len(n.Properties) > 0 || len(n.PatternProperties) > 0) && typ != TypeObject {
		return &CompileError{Path: path, Message: fmt.Sprintf("properties are not allowed on %s", typ)}
	}
	if n.UniqueItems && typ != TypeArray {
		return &CompileError{Path: path, Message: "uniqueItems is only allowed on array"}
	}
	if n.Relation != "" && typ != TypeString && typ != TypeNumber {
		return &CompileError{Path: path, Message: fmt.Sprintf("relation is not allowed on %s", typ)}
	}
	for _, name := range n.Required {
		if _, ok := n.Properties[name]; !ok {
			return &CompileError{Path: path, Message: fmt.Sprintf("required property %q is not declared", name)}
		}
	}
	return nil
}

func sortedKeys(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompileError reports an invalid declaration, with a source position when
// the declaration came from CUE.
type CompileError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}
