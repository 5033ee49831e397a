package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookdash/internal/catalog"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleGroups() []catalog.EditionGroup {
	return []catalog.EditionGroup{
		{
			Number: 2,
			Year:   2019,
			Books: []catalog.BookRecord{
				{
					Title:       "Venture Deals",
					ISBN:        "978-1-119-59482-0",
					Authors:     []string{"Brad Feld", "Jason Mendelson"},
					Binding:     "Hardcover",
					Publisher:   "Wiley",
					PublishDate: "2019",
					Source:      catalog.SourceGoogleBooks,
				},
				{
					Title:   "Venture Deals",
					ISBN:    "9781119594826",
					Binding: "Kindle Edition",
					Source:  catalog.SourceGoogleBooks,
				},
			},
		},
		{
			Number: 1,
			Year:   2011,
			Books: []catalog.BookRecord{
				{Title: "Venture Deals", ISBN: "9780470929827", Binding: "Hardcover"},
			},
		},
		{
			Number: 1,
			Type:   "annotated",
			Books: []catalog.BookRecord{
				{Title: "Venture Deals, Annotated", ISBN: "9780000000010", Binding: "Paperback"},
			},
		},
	}
}

func TestSaveAndListEntries(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.SaveEditionGroups("venture-deals", sampleGroups()))

	entries, err := db.ListEntries()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Numeric editions newest first, special editions after.
	assert.Equal(t, 2, entries[0].EditionNumber)
	assert.Equal(t, 1, entries[1].EditionNumber)
	assert.Equal(t, "annotated", entries[2].EditionType)
	assert.Equal(t, 2019, entries[0].Year)
}

func TestSaveIsIdempotent(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.SaveEditionGroups("venture-deals", sampleGroups()))
	require.NoError(t, db.SaveEditionGroups("venture-deals", sampleGroups()))

	entries, err := db.ListEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 3, "replaying the same groups creates no duplicates")

	records, err := db.GetEntryRecords(entries[0].ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSaveNormalizesOnWrite(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.SaveEditionGroups("venture-deals", sampleGroups()))

	entries, err := db.ListEntries()
	require.NoError(t, err)
	records, err := db.GetEntryRecords(entries[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byISBN := map[string]catalog.BookRecord{}
	for _, r := range records {
		byISBN[r.ISBN] = r
	}
	hc, ok := byISBN["9781119594820"]
	require.True(t, ok, "hyphens stripped from stored ISBN")
	assert.Equal(t, "hardcover", hc.Binding)
	assert.Equal(t, []string{"Brad Feld", "Jason Mendelson"}, hc.Authors)

	kindle, ok := byISBN["9781119594826"]
	require.True(t, ok)
	assert.Equal(t, "ebook", kindle.Binding)
	assert.Nil(t, kindle.Authors)
}

func TestEntriesScopedByBookKey(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.SaveEditionGroups("venture-deals", sampleGroups()[:1]))
	require.NoError(t, db.SaveEditionGroups("other-book", []catalog.EditionGroup{
		{Number: 2, Books: []catalog.BookRecord{{Title: "Other Book"}}},
	}))

	entries, err := db.ListEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2, "same edition number under different keys stays distinct")
}

func TestYearBackfilledNotOverwritten(t *testing.T) {
	db := newTestDatabase(t)

	first := []catalog.EditionGroup{{Number: 1, Year: 0, Books: []catalog.BookRecord{{Title: "x", ISBN: "1"}}}}
	require.NoError(t, db.SaveEditionGroups("k", first))

	second := []catalog.EditionGroup{{Number: 1, Year: 2015, Books: []catalog.BookRecord{{Title: "x", ISBN: "1"}}}}
	require.NoError(t, db.SaveEditionGroups("k", second))

	third := []catalog.EditionGroup{{Number: 1, Year: 1999, Books: []catalog.BookRecord{{Title: "x", ISBN: "1"}}}}
	require.NoError(t, db.SaveEditionGroups("k", third))

	entries, err := db.ListEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2015, entries[0].Year, "a known year is kept once set")
}
