package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean ISBN-10", "0123456789", "0123456789"},
		{"clean ISBN-13", "9780470929827", "9780470929827"},
		{"with hyphens", "978-0-47-092982-7", "9780470929827"},
		{"with spaces", "978 0 47 092982 7", "9780470929827"},
		{"URN format", "urn:isbn:9780470929827", "9780470929827"},
		{"check digit case folded", "06specialx", "06SPECIALX"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeISBN(tt.input))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "VENTURE DEALS", "venture deals"},
		{"removes punctuation", "Venture Deals: Be Smarter!", "venture deals be smarter"},
		{"collapses whitespace", "Venture   Deals", "venture deals"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestPublishYear(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		expected int
	}{
		{"iso date", "2011-06-01", 2011},
		{"year only", "2020", 2020},
		{"verbose date", "January 1, 1999", 1999},
		{"no year", "sometime soon", 0},
		{"empty", "", 0},
		{"implausible", "0042", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BookRecord{Title: "x", PublishDate: tt.date}
			assert.Equal(t, tt.expected, r.PublishYear())
		})
	}
}

func TestMergeKey(t *testing.T) {
	withISBN := BookRecord{Title: "Venture Deals", ISBN: "978-0470929827"}
	sameISBN := BookRecord{Title: "Venture Deals: Be Smarter", ISBN: "9780470929827"}
	assert.Equal(t, withISBN.MergeKey(), sameISBN.MergeKey())

	noISBN := BookRecord{Title: "Venture Deals!", Authors: []string{"Brad Feld"}}
	noISBN2 := BookRecord{Title: "venture deals", Authors: []string{"BRAD FELD"}}
	assert.Equal(t, noISBN.MergeKey(), noISBN2.MergeKey())

	// Unrelated fields never change the key.
	noISBN2.Publisher = "Wiley"
	noISBN2.Pages = 300
	assert.Equal(t, noISBN.MergeKey(), noISBN2.MergeKey())

	differentISBN := BookRecord{Title: "Venture Deals", ISBN: "9780470929828"}
	assert.NotEqual(t, withISBN.MergeKey(), differentISBN.MergeKey())
}

func TestEditionGroupKey(t *testing.T) {
	numeric := EditionGroup{Number: 2}
	assert.Equal(t, "2", numeric.Key())

	special := EditionGroup{Number: 1, Type: "unabridged"}
	assert.Equal(t, "unabridged", special.Key())
}

func TestFirstAuthor(t *testing.T) {
	r := BookRecord{Title: "x", Authors: []string{"Brad Feld", "Jason Mendelson"}}
	assert.Equal(t, "Brad Feld", r.FirstAuthor())
	assert.Equal(t, "", (&BookRecord{Title: "x"}).FirstAuthor())
}
