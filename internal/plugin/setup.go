package plugin

import (
	"fmt"
	"slices"

	"github.com/roach88/plumage/internal/store"
)

// Setup registers m's schema with st and writes its defaults. Defaults go
// through full validation, so a default that does not match the schema
// fails setup.
//
// The manifest is first applied to an empty scratch store. When that fails
// st is left untouched; otherwise the same steps are repeated on st.
func Setup(st *store.Store, m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	scratch, err := store.New()
	if err != nil {
		return fmt.Errorf("plugin %s: %w", m.Name, err)
	}
	defer scratch.Close()
	if err := apply(scratch, m); err != nil {
		return err
	}
	return apply(st, m)
}

func apply(st *store.Store, m *Manifest) error {
	if err := st.RegisterPlugin(m.Name, m.Schema); err != nil {
		return fmt.Errorf("plugin %s: %w", m.Name, err)
	}

	keys := make([]string, 0, len(m.Defaults))
	for k := range m.Defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		name := m.Name + "/" + k
		if err := applyDefault(st, name, m.Defaults[k]); err != nil {
			return fmt.Errorf("plugin %s: default %s: %w", m.Name, k, err)
		}
	}
	return nil
}

func applyDefault(st *store.Store, name string, value any) error {
	if !st.IsCollection(name) {
		_, err := st.SetValue(store.SetRequest{Name: name, Value: value})
		return err
	}

	docs, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("collection defaults must map IDs to items, got %T", value)
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, err := st.SetValue(store.SetRequest{Name: name, ID: id, Value: docs[id]}); err != nil {
			return err
		}
	}
	return nil
}

// SetupAll applies manifests in order, stopping at the first failure.
func SetupAll(st *store.Store, manifests []*Manifest) error {
	for _, m := range manifests {
		if err := Setup(st, m); err != nil {
			return err
		}
	}
	return nil
}
