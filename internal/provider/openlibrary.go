package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bookdash/internal/catalog"
	"bookdash/internal/config"
)

// olMaxPageSize is Open Library's search result cap per request.
const olMaxPageSize = 100

// OpenLibrary implements Provider against the Open Library API.
type OpenLibrary struct {
	client  *http.Client
	baseURL string
	limiter *Limiter
	ranker  *Ranker
	retries int
	log     *zap.Logger
}

// NewOpenLibrary creates an Open Library adapter.
func NewOpenLibrary(cfg *config.ProvidersConfig, scoring *config.ScoringConfig, log *zap.Logger) *OpenLibrary {
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenLibrary{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: "https://openlibrary.org",
		limiter: NewLimiter(catalog.SourceOpenLibrary, cfg.RequestsPerMinute, cfg.RequestsPerDay),
		ranker:  NewRanker(scoring),
		retries: cfg.MaxRetries,
		log:     log.Named(catalog.SourceOpenLibrary),
	}
}

// Name returns the provider identifier.
func (p *OpenLibrary) Name() string { return catalog.SourceOpenLibrary }

// olSearchResponse matches search.json.
type olSearchResponse struct {
	NumFound int           `json:"numFound"`
	Docs     []olSearchDoc `json:"docs"`
}

type olSearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	Publisher        []string `json:"publisher"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	Format           []string `json:"format"`
	EditionName      []string `json:"edition_name"`
	Language         []string `json:"language"`
	Subject          []string `json:"subject"`
	NumberOfPages    int      `json:"number_of_pages_median"`
}

// olEdition matches isbn/{isbn}.json.
type olEdition struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	FullTitle     string   `json:"full_title"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date"`
	ISBN10        []string `json:"isbn_10"`
	ISBN13        []string `json:"isbn_13"`
	Covers        []int    `json:"covers"`
	NumberPages   int      `json:"number_of_pages"`
	PhysicalForm  string   `json:"physical_format"`
	EditionName   string   `json:"edition_name"`
	Subjects      []string `json:"subjects"`
	Description   any      `json:"description"` // string or {type, value}
	Languages     []struct {
		Key string `json:"key"`
	} `json:"languages"`
}

// Search runs the fallback strategy chain against Open Library and returns
// ranked records. ISBN queries bypass the chain.
func (p *OpenLibrary) Search(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
	if q.Empty() {
		return nil, &Error{Provider: p.Name(), Kind: KindBadInput, Message: "title, author, or isbn required"}
	}
	if q.ISBN != "" {
		rec, err := p.LookupByISBN(ctx, q.ISBN)
		if err != nil {
			if IsKind(err, KindNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []catalog.BookRecord{*rec}, nil
	}

	records, err := RunStrategies(ctx, q, p.strategies(q))
	if err != nil {
		return nil, err
	}
	p.log.Debug("search complete", zap.String("title", q.Title), zap.Int("results", len(records)))
	return p.ranker.Rank(records, q.Title), nil
}

// strategies builds the ordered query shapes for this search. Free-text
// relevance varies with phrasing, so several shapes are tried to maximize
// recall.
func (p *OpenLibrary) strategies(q Query) []Strategy {
	var out []Strategy
	if q.Title != "" && q.Author != "" {
		out = append(out, Strategy{
			Name: "quoted_phrase",
			Run: func(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
				params := url.Values{}
				params.Set("q", fmt.Sprintf("%q %s", q.Title, q.Author))
				return p.search(ctx, params, q)
			},
		})
	}
	out = append(out, Strategy{
		Name: "structured_fields",
		Run: func(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
			params := url.Values{}
			if q.Title != "" {
				params.Set("title", q.Title)
			}
			if q.Author != "" {
				params.Set("author", q.Author)
			}
			return p.search(ctx, params, q)
		},
	})
	if q.Title != "" && q.Author != "" {
		out = append(out, Strategy{
			Name: "author_only_filtered",
			Run: func(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
				params := url.Values{}
				params.Set("author", q.Author)
				records, err := p.search(ctx, params, q)
				if err != nil {
					return nil, err
				}
				var kept []catalog.BookRecord
				for _, r := range records {
					if TitleMatchesQuery(r.Title, q.Title) {
						kept = append(kept, r)
					}
				}
				return kept, nil
			},
		})
	}
	return out
}

// search issues one search.json request and converts the results.
func (p *OpenLibrary) search(ctx context.Context, params url.Values, q Query) ([]catalog.BookRecord, error) {
	size := q.PageSize
	if size <= 0 || size > olMaxPageSize {
		size = olMaxPageSize
	}
	params.Set("limit", strconv.Itoa(size))
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	params.Set("fields", "key,title,subtitle,author_name,publisher,first_publish_year,isbn,cover_i,format,edition_name,language,subject,number_of_pages_median")

	var data olSearchResponse
	searchURL := fmt.Sprintf("%s/search.json?%s", p.baseURL, params.Encode())
	if err := p.get(ctx, searchURL, &data); err != nil {
		return nil, err
	}

	records := make([]catalog.BookRecord, 0, len(data.Docs))
	for i := range data.Docs {
		records = append(records, p.convertSearchDoc(&data.Docs[i]))
	}
	return records, nil
}

// LookupByISBN fetches a single edition by ISBN.
func (p *OpenLibrary) LookupByISBN(ctx context.Context, isbn string) (*catalog.BookRecord, error) {
	isbn = catalog.NormalizeISBN(isbn)
	if isbn == "" {
		return nil, &Error{Provider: p.Name(), Kind: KindBadInput, Message: "empty isbn"}
	}

	var ed olEdition
	if err := p.get(ctx, fmt.Sprintf("%s/isbn/%s.json", p.baseURL, isbn), &ed); err != nil {
		return nil, err
	}
	rec := p.convertEdition(&ed, isbn)
	return &rec, nil
}

// get performs a rate-limited, retried GET and decodes the JSON body,
// mapping every failure into the provider error taxonomy.
func (p *OpenLibrary) get(ctx context.Context, rawURL string, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return WithRetry(ctx, p.retries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return &Error{Provider: p.Name(), Kind: KindBadInput, Err: err}
		}
		req.Header.Set("User-Agent", "bookdash/1.0")

		resp, err := p.client.Do(req)
		if err != nil {
			kind := KindTransport
			if errors.Is(err, context.DeadlineExceeded) {
				kind = KindTimeout
			}
			return &Error{Provider: p.Name(), Kind: kind, Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return &Error{Provider: p.Name(), Kind: KindNotFound}
		case resp.StatusCode == http.StatusTooManyRequests:
			return &Error{Provider: p.Name(), Kind: KindRateLimited}
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return &Error{Provider: p.Name(), Kind: KindAuth}
		case resp.StatusCode != http.StatusOK:
			return &Error{Provider: p.Name(), Kind: KindTransport, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Provider: p.Name(), Kind: KindMalformed, Err: err}
		}
		return nil
	})
}

// convertSearchDoc normalizes one search hit into a BookRecord.
func (p *OpenLibrary) convertSearchDoc(doc *olSearchDoc) catalog.BookRecord {
	rec := catalog.BookRecord{
		Title:     doc.Title,
		Subtitle:  doc.Subtitle,
		Authors:   doc.AuthorName,
		Publisher: firstOrEmpty(doc.Publisher),
		Binding:   firstOrEmpty(doc.Format),
		Edition:   firstOrEmpty(doc.EditionName),
		Language:  firstOrEmpty(doc.Language),
		Pages:     doc.NumberOfPages,
		Source:    p.Name(),
	}

	if doc.FirstPublishYear > 0 {
		rec.PublishDate = strconv.Itoa(doc.FirstPublishYear)
	}

	// Prefer ISBN-13 when the doc carries both lengths.
	for _, isbn := range doc.ISBN {
		n := catalog.NormalizeISBN(isbn)
		if len(n) == 13 {
			rec.ISBN = n
			break
		}
		if len(n) == 10 && rec.ISBN == "" {
			rec.ISBN = n
		}
	}

	if len(doc.Subject) > 5 {
		rec.Categories = doc.Subject[:5]
	} else {
		rec.Categories = doc.Subject
	}

	if doc.CoverI > 0 {
		rec.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverI)
	} else if rec.ISBN != "" {
		rec.CoverURL = p.coverURL(rec.ISBN)
	}
	return rec
}

// convertEdition normalizes an edition lookup into a BookRecord.
func (p *OpenLibrary) convertEdition(e *olEdition, isbn string) catalog.BookRecord {
	rec := catalog.BookRecord{
		Title:       e.Title,
		Subtitle:    e.Subtitle,
		Publisher:   firstOrEmpty(e.Publishers),
		PublishDate: e.PublishDate,
		Binding:     e.PhysicalForm,
		Edition:     e.EditionName,
		Pages:       e.NumberPages,
		Categories:  e.Subjects,
		Source:      p.Name(),
	}

	// The fuller title synonym only contributes a subtitle when it actually
	// differs from the title.
	if rec.Subtitle == "" && e.FullTitle != "" && e.FullTitle != e.Title {
		rest := strings.TrimPrefix(e.FullTitle, e.Title)
		rec.Subtitle = strings.TrimLeft(rest, " :-")
	}

	if len(e.ISBN13) > 0 {
		rec.ISBN = catalog.NormalizeISBN(e.ISBN13[0])
	} else if len(e.ISBN10) > 0 {
		rec.ISBN = catalog.NormalizeISBN(e.ISBN10[0])
	} else {
		rec.ISBN = isbn
	}

	switch desc := e.Description.(type) {
	case string:
		rec.Description = desc
	case map[string]any:
		if val, ok := desc["value"].(string); ok {
			rec.Description = val
		}
	}

	if len(e.Languages) > 0 {
		rec.Language = strings.TrimPrefix(e.Languages[0].Key, "/languages/")
	}

	if len(e.Covers) > 0 {
		rec.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", e.Covers[0])
	} else if rec.ISBN != "" {
		rec.CoverURL = p.coverURL(rec.ISBN)
	}
	return rec
}

// coverURL builds the covers service URL for an ISBN.
func (p *OpenLibrary) coverURL(isbn string) string {
	return fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-M.jpg", isbn)
}

// firstOrEmpty returns the first element or empty string.
func firstOrEmpty(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}
