package schema

// Table holds compiled entries by path in registration order.
type Table struct {
	entries map[string]*Entry
	order   []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Add registers compiled entries. Re-registering a path replaces its entry
// and keeps its original position.
func (t *Table) Add(compiled []Compiled) {
	for _, c := range compiled {
		if _, exists := t.entries[c.Path]; !exists {
			t.order = append(t.order, c.Path)
		}
		t.entries[c.Path] = c.Entry
	}
}

// Get returns the entry at path.
func (t *Table) Get(path string) (*Entry, bool) {
	e, ok := t.entries[path]
	return e, ok
}

// Paths returns every registered path in registration order.
func (t *Table) Paths() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Reset removes every entry.
func (t *Table) Reset() {
	t.entries = make(map[string]*Entry)
	t.order = nil
}
