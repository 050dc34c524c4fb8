package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)

	a := hashWithDomain(DomainJournalEntry, data)
	b := hashWithDomain(DomainSnapshot, data)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestJournalEntryIDStable(t *testing.T) {
	item := ObjectOf(P("name", String("Al")))

	first, err := JournalEntryID("set", "user/items", "doc1", item, 1)
	require.NoError(t, err)
	second, err := JournalEntryID("set", "user/items", "doc1", ObjectOf(P("name", String("Al"))), 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestJournalEntryIDVariesWithInputs(t *testing.T) {
	item := ObjectOf(P("name", String("Al")))
	base := MustJournalEntryID("set", "user/items", "doc1", item, 1)

	tests := []struct {
		name string
		id   string
	}{
		{"op", MustJournalEntryID("delete", "user/items", "doc1", item, 1)},
		{"collection", MustJournalEntryID("set", "user/other", "doc1", item, 1)},
		{"id", MustJournalEntryID("set", "user/items", "doc2", item, 1)},
		{"item", MustJournalEntryID("set", "user/items", "doc1", ObjectOf(P("name", String("Bo"))), 1)},
		{"seq", MustJournalEntryID("set", "user/items", "doc1", item, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.id)
		})
	}
}

func TestJournalEntryIDNilItem(t *testing.T) {
	id, err := JournalEntryID("delete", "user/items", "doc1", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, MustJournalEntryID("delete", "user/items", "doc1", Null{}, 3), id)
}

func TestSnapshotHashRejectsOpaque(t *testing.T) {
	_, err := SnapshotHash(Opaque{Handle: 1})
	require.Error(t, err)
}
