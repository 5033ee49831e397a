package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Source identifiers for record provenance.
const (
	SourceOpenLibrary = "openlibrary"
	SourceGoogleBooks = "googlebooks"
)

// PrimarySource is the provider treated as authoritative for structured
// metadata (publisher, binding). Cover images prefer the other source.
const PrimarySource = SourceGoogleBooks

// BookRecord is one normalized bibliographic entry from a single provider
// search hit. Title is always non-empty; every other field is best-effort.
type BookRecord struct {
	Title       string            `json:"title"`
	Subtitle    string            `json:"subtitle,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	PublishDate string            `json:"publish_date,omitempty"`
	ISBN        string            `json:"isbn,omitempty"`
	Binding     string            `json:"binding,omitempty"`
	Edition     string            `json:"edition,omitempty"`
	Pages       int               `json:"pages,omitempty"`
	Language    string            `json:"language,omitempty"`
	Description string            `json:"description,omitempty"`
	CoverURL    string            `json:"cover_url,omitempty"`
	Categories  []string          `json:"categories,omitempty"`
	Source      string            `json:"source"`
	Validation  *ValidationResult `json:"validation,omitempty"`
}

// EditionGroup is a detected revision of a work together with the records
// (bindings) that belong to it.
type EditionGroup struct {
	Number int          `json:"edition_number"`
	Type   string       `json:"edition_type,omitempty"`
	Year   int          `json:"publication_year,omitempty"`
	Books  []BookRecord `json:"books"`
}

// Key returns the derived group identity: the special-edition type when
// present, otherwise the numeric edition.
func (g *EditionGroup) Key() string {
	if g.Type != "" {
		return g.Type
	}
	return strconv.Itoa(g.Number)
}

// ValidationResult is the outcome of a publication authenticity check.
// Computed on demand, never persisted.
type ValidationResult struct {
	IsPublished bool     `json:"is_published"`
	Confidence  float64  `json:"confidence"`
	Signals     []string `json:"signals,omitempty"`
	Sources     []string `json:"sources,omitempty"`
}

// FirstAuthor returns the first author name, or "" when unknown.
func (r *BookRecord) FirstAuthor() string {
	if len(r.Authors) > 0 {
		return r.Authors[0]
	}
	return ""
}

var yearRe = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// PublishYear extracts a four-digit year from the free-text publish date.
// Returns 0 when no plausible year is present.
func (r *BookRecord) PublishYear() int {
	m := yearRe.FindString(r.PublishDate)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}

// NormalizeISBN strips hyphens, spaces, and a urn:isbn: prefix and
// case-folds the check character.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimPrefix(strings.ToLower(isbn), "urn:isbn:")
	return strings.ToUpper(strings.TrimSpace(isbn))
}

// NormalizeText lowercases, strips punctuation, and collapses whitespace so
// titles and author names compare loosely.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MergeKey is the best-effort dedup identity: normalized ISBN when present,
// otherwise normalized title plus first author. It can under-merge but never
// merges records carrying different ISBNs.
func (r *BookRecord) MergeKey() string {
	if isbn := NormalizeISBN(r.ISBN); isbn != "" {
		return "isbn:" + isbn
	}
	return "ta:" + NormalizeText(r.Title) + "|" + NormalizeText(r.FirstAuthor())
}
