package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookdash/internal/catalog"
)

func newTestGoogleBooks(t *testing.T, handler http.HandlerFunc) *GoogleBooks {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &GoogleBooks{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: srv.URL,
		limiter: NewLimiter(catalog.SourceGoogleBooks, 0, 0),
		ranker:  NewRanker(nil),
		retries: 1,
		log:     zap.NewNop(),
	}
}

const gbVolumeJSON = `{
	"totalItems": 1,
	"items": [{
		"id": "abc123",
		"volumeInfo": {
			"title": "Venture Deals",
			"subtitle": "Be Smarter Than Your Lawyer and Venture Capitalist",
			"authors": ["Brad Feld", "Jason Mendelson"],
			"publisher": "Wiley",
			"publishedDate": "2011-06-01",
			"description": "The definitive guide to venture capital deals and term sheets.",
			"industryIdentifiers": [
				{"type": "ISBN_10", "identifier": "0470929820"},
				{"type": "ISBN_13", "identifier": "9780470929827"}
			],
			"pageCount": 272,
			"printType": "BOOK",
			"categories": ["Business & Economics"],
			"ratingsCount": 410,
			"imageLinks": {"thumbnail": "https://books.google.com/thumb.jpg"},
			"language": "en"
		},
		"saleInfo": {"saleability": "FOR_SALE", "isEbook": false, "buyLink": "https://play.google.com/buy"},
		"accessInfo": {"viewability": "PARTIAL", "webReaderLink": "https://books.google.com/read"}
	}]
}`

func TestGoogleBooksSearch(t *testing.T) {
	p := newTestGoogleBooks(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		w.Write([]byte(gbVolumeJSON))
	})

	records, err := p.Search(context.Background(), Query{Title: "Venture Deals"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "Venture Deals", r.Title)
	assert.Equal(t, "Be Smarter Than Your Lawyer and Venture Capitalist", r.Subtitle)
	assert.Equal(t, []string{"Brad Feld", "Jason Mendelson"}, r.Authors)
	assert.Equal(t, "Wiley", r.Publisher)
	assert.Equal(t, "9780470929827", r.ISBN, "13-digit identifier preferred")
	assert.Equal(t, 272, r.Pages)
	assert.Equal(t, []string{"Business & Economics"}, r.Categories)
	assert.Equal(t, "https://books.google.com/thumb.jpg", r.CoverURL)
	assert.Equal(t, catalog.SourceGoogleBooks, r.Source)
}

func TestGoogleBooksFindVolumeByISBN(t *testing.T) {
	p := newTestGoogleBooks(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "isbn")
		w.Write([]byte(gbVolumeJSON))
	})

	vol, err := p.FindVolume(context.Background(), "9780470929827", "", "")

	require.NoError(t, err)
	assert.True(t, vol.HasPreview)
	assert.True(t, vol.Saleable)
	assert.Equal(t, "https://play.google.com/buy", vol.BuyLink)
	assert.Equal(t, 410, vol.RatingsCount)
}

func TestGoogleBooksFindVolumeFallsBackToTitleAuthor(t *testing.T) {
	calls := 0
	p := newTestGoogleBooks(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"totalItems": 0, "items": []}`))
			return
		}
		w.Write([]byte(gbVolumeJSON))
	})

	vol, err := p.FindVolume(context.Background(), "9999999999999", "Venture Deals", "Brad Feld")

	require.NoError(t, err)
	assert.Equal(t, 2, calls, "ISBN miss falls back to title+author")
	assert.Equal(t, "Venture Deals", vol.Record.Title)
}

func TestGoogleBooksFindVolumeNotFound(t *testing.T) {
	p := newTestGoogleBooks(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems": 0, "items": []}`))
	})

	_, err := p.FindVolume(context.Background(), "", "No Such Book", "")

	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestGoogleBooksEbookBinding(t *testing.T) {
	p := newTestGoogleBooks(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalItems": 1, "items": [{
			"volumeInfo": {"title": "Digital Only"},
			"saleInfo": {"isEbook": true}
		}]}`))
	})

	records, err := p.Search(context.Background(), Query{Title: "Digital Only"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ebook", records[0].Binding)
}

func TestGoogleBooksAuthError(t *testing.T) {
	p := newTestGoogleBooks(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := p.Search(context.Background(), Query{Title: "x"})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuth))
}

func TestQuoteTerm(t *testing.T) {
	assert.Equal(t, `"Venture Deals"`, quoteTerm("Venture Deals"))
	assert.Equal(t, "Feld", quoteTerm("Feld"))
}
