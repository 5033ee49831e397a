package edition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookdash/internal/catalog"
)

func findGroup(t *testing.T, groups []catalog.EditionGroup, key string) *catalog.EditionGroup {
	t.Helper()
	for i := range groups {
		if groups[i].Key() == key {
			return &groups[i]
		}
	}
	t.Fatalf("no group with key %q", key)
	return nil
}

func TestGroupByEditionMarkers(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Venture Deals", Edition: "1st"},
		{Title: "Venture Deals", Edition: "2nd"},
		{Title: "Venture Deals (Revised Edition)"},
	}

	groups := Group(records)

	require.Len(t, groups, 2)
	second := findGroup(t, groups, "2")
	assert.Len(t, second.Books, 2, "revised-edition title joins the numeric 2 group")
	first := findGroup(t, groups, "1")
	assert.Len(t, first.Books, 1)
}

func TestGroupSpecialKeywordInMarkerWinsOverTitleNumber(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Venture Deals, 3rd Edition", Edition: "Unabridged"},
		{Title: "Venture Deals", Edition: "3rd"},
	}

	groups := Group(records)

	require.Len(t, groups, 2)
	special := findGroup(t, groups, "unabridged")
	assert.Equal(t, "unabridged", special.Type)
	assert.Len(t, special.Books, 1)
	assert.Len(t, findGroup(t, groups, "3").Books, 1)
}

func TestGroupDateHeuristicFallback(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Some Book", PublishDate: "2022-01-01"},
		{Title: "Some Book", PublishDate: "2012-01-01"},
		{Title: "Some Book"},
	}

	groups := Group(records)

	require.Len(t, groups, 2)
	assert.Len(t, findGroup(t, groups, "2").Books, 1, "recent print reads as a reissue")
	assert.Len(t, findGroup(t, groups, "1").Books, 2)
}

func TestGroupAudioAttachByYearRange(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Venture Deals", Edition: "1st", PublishDate: "2011"},
		{Title: "Venture Deals", Edition: "2nd", PublishDate: "2020"},
		{Title: "Venture Deals", Binding: "Audio CD", PublishDate: "2015-01-01"},
	}

	groups := Group(records)

	require.Len(t, groups, 2)
	first := findGroup(t, groups, "1")
	require.Len(t, first.Books, 2, "2015 audio falls in [2011, 2020)")
	assert.Equal(t, catalog.BindingAudiobook, catalog.NormalizeBinding(first.Books[1].Binding))
}

func TestGroupAudioAttachByTitleNumber(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Venture Deals", Edition: "2nd", PublishDate: "2012"},
		{Title: "Venture Deals, 2nd Edition", Binding: "Audiobook", PublishDate: "2019"},
	}

	groups := Group(records)

	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Books, 2)
}

func TestGroupAudioAttachWithinSlack(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Some Book", Edition: "1st", PublishDate: "2010"},
		{Title: "Some Book", Binding: "MP3 CD", PublishDate: "2008"},
	}

	groups := Group(records)

	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Books, 2, "2008 audio is within 2 years of the 2010 edition")
}

func TestGroupUnattachedAudioFormsOwnGroup(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Lonely Audiobook", Binding: "Audible"},
	}

	groups := Group(records)

	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Number)
	assert.Len(t, groups[0].Books, 1, "unattached audio records are never dropped")
}

func TestGroupMP3CDGoesToAudioSplit(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "Some Book", Binding: "Hardcover", PublishDate: "2012"},
		{Title: "Some Book", Binding: "MP3 CD", PublishDate: "2012"},
	}

	groups := Group(records)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Books, 2)
	// Hardcover sorts before audiobook within the group.
	assert.Equal(t, catalog.BindingHardcover, catalog.NormalizeBinding(groups[0].Books[0].Binding))
	assert.Equal(t, catalog.BindingAudiobook, catalog.NormalizeBinding(groups[0].Books[1].Binding))
}

func TestGroupNoRecordsDroppedOrDuplicated(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "A", Edition: "1st"},
		{Title: "A", Edition: "2nd"},
		{Title: "A", Edition: "Deluxe"},
		{Title: "A", Binding: "Audio CD", PublishDate: "2016"},
		{Title: "A", Binding: "MP3 CD"},
		{Title: "A (Revised Edition)"},
		{Title: "A", PublishDate: "2021"},
	}

	groups := Group(records)

	total := 0
	for _, g := range groups {
		total += len(g.Books)
	}
	assert.Equal(t, len(records), total)
}

func TestGroupOrdering(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "B", Edition: "Deluxe"},
		{Title: "B", Edition: "1st"},
		{Title: "B", Edition: "Annotated"},
		{Title: "B", Edition: "3rd"},
	}

	groups := Group(records)

	require.Len(t, groups, 4)
	assert.Equal(t, 3, groups[0].Number)
	assert.Equal(t, 1, groups[1].Number)
	assert.Equal(t, "annotated", groups[2].Type)
	assert.Equal(t, "deluxe", groups[3].Type)
}

func TestGroupYearFromFirstMember(t *testing.T) {
	records := []catalog.BookRecord{
		{Title: "C", Edition: "1st"},
		{Title: "C", Edition: "1st", PublishDate: "2013"},
	}

	groups := Group(records)

	require.Len(t, groups, 1)
	assert.Equal(t, 2013, groups[0].Year)
}

func TestBindings(t *testing.T) {
	g := catalog.EditionGroup{
		Number: 1,
		Books: []catalog.BookRecord{
			{Title: "D", Binding: "Hardcover"},
			{Title: "D", Binding: "Hard Cover"},
			{Title: "D", Binding: "Kindle Edition"},
			{Title: "D"},
		},
	}

	bindings := Bindings(&g)

	require.Len(t, bindings, 3)
	assert.Equal(t, catalog.BindingHardcover, bindings[0].Type)
	assert.Len(t, bindings[0].Books, 2)
	assert.Equal(t, catalog.BindingEbook, bindings[1].Type)
	assert.Equal(t, catalog.BindingUnknown, bindings[2].Type)
}
