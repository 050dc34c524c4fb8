package store

import (
	"fmt"
	"strings"
)

// IDOptions carries caller-supplied ID parts.
type IDOptions struct {
	ID       string
	PrefixID string
	SuffixID string
}

// ResolveID computes the full ID for a write or lookup in name.
//
// An ID that is already affixed (three "_" tokens with a non-empty first or
// third token) is returned unchanged. Otherwise the prefix and suffix come
// from opts, then from the schema's id spec, else empty. The core is opts.ID,
// else the schema's default generator, else a fresh random token.
//
// "_" separates affixes, so when a prefix or suffix applies none of the three
// parts may contain it; BareID could not recover the core otherwise.
func (s *Store) ResolveID(name string, opts IDOptions) (string, error) {
	c, ok := s.collections[name]
	if !ok {
		return "", unknownCollection(name)
	}
	if isAffixed(opts.ID) {
		return opts.ID, nil
	}
	core := opts.ID
	if core == "" {
		core = s.defaultCore(c)
	}
	prefix, suffix := s.affixes(c, opts)
	return affixedID(c.name, prefix, core, suffix)
}

// ResolveDefaultID returns a fresh affixed ID and its bare core. Callers
// that reference documents independently of the active affix (a language
// suffix, say) store the bare core.
func (s *Store) ResolveDefaultID(name string, opts IDOptions) (id, bare string, err error) {
	c, ok := s.collections[name]
	if !ok {
		return "", "", unknownCollection(name)
	}
	bare = s.defaultCore(c)
	prefix, suffix := s.affixes(c, opts)
	id, err = affixedID(c.name, prefix, bare, suffix)
	if err != nil {
		return "", "", err
	}
	return id, bare, nil
}

func (s *Store) defaultCore(c *collection) string {
	if c.entry.ID != nil && c.entry.ID.Default != nil {
		if core := c.entry.ID.Default(s.contextFor(c)); core != "" {
			return core
		}
	}
	return s.ids.Generate()
}

func (s *Store) affixes(c *collection, opts IDOptions) (prefix, suffix string) {
	prefix, suffix = opts.PrefixID, opts.SuffixID
	if c.entry.ID == nil {
		return prefix, suffix
	}
	ctx := s.contextFor(c)
	if prefix == "" && !c.entry.ID.Prefix.IsZero() {
		prefix = c.entry.ID.Prefix.Resolve(ctx)
	}
	if suffix == "" && !c.entry.ID.Suffix.IsZero() {
		suffix = c.entry.ID.Suffix.Resolve(ctx)
	}
	return prefix, suffix
}

// lookupID finds the stored ID a caller means by id: the ID itself when
// affixed, then explicit affixes, then schema affixes, then the raw ID.
func (s *Store) lookupID(c *collection, opts IDOptions) (string, bool) {
	if opts.ID == "" {
		return "", false
	}
	candidates := []string{}
	if isAffixed(opts.ID) {
		candidates = append(candidates, opts.ID)
	} else {
		if opts.PrefixID != "" || opts.SuffixID != "" {
			candidates = append(candidates, joinID(opts.PrefixID, opts.ID, opts.SuffixID))
		}
		prefix, suffix := s.affixes(c, IDOptions{})
		if prefix != "" || suffix != "" {
			candidates = append(candidates, joinID(prefix, opts.ID, suffix))
		}
		candidates = append(candidates, opts.ID)
	}
	for _, id := range candidates {
		if _, ok := c.docs[id]; ok {
			return id, true
		}
	}
	return "", false
}

// BareID returns the core of an affixed ID, or id itself.
func BareID(id string) string {
	if !isAffixed(id) {
		return id
	}
	return strings.Split(id, "_")[1]
}

func isAffixed(id string) bool {
	parts := strings.Split(id, "_")
	return len(parts) == 3 && (parts[0] != "" || parts[2] != "")
}

// affixedID joins the parts after checking that they split back apart.
func affixedID(collection, prefix, core, suffix string) (string, error) {
	if (prefix != "" || suffix != "") && strings.Contains(prefix+core+suffix, "_") {
		return "", &ValueError{
			Code:       ErrCodeInvalidID,
			Collection: collection,
			ID:         core,
			Message:    fmt.Sprintf("ID parts %q, %q and %q must not contain \"_\"", prefix, core, suffix),
		}
	}
	return joinID(prefix, core, suffix), nil
}

func joinID(prefix, core, suffix string) string {
	if prefix == "" && suffix == "" {
		return core
	}
	return prefix + "_" + core + "_" + suffix
}
