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

// gbMaxPageSize is the Google Books volumes cap per request.
const gbMaxPageSize = 40

// GoogleBooks implements Provider against the Google Books volumes API. It
// is the primary structured-metadata source and also backs the publication
// validator, which needs the sale and access signals kept on Volume.
type GoogleBooks struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *Limiter
	ranker  *Ranker
	retries int
	log     *zap.Logger
}

// NewGoogleBooks creates a Google Books adapter. The API key is optional;
// unauthenticated requests work with lower quotas.
func NewGoogleBooks(cfg *config.ProvidersConfig, scoring *config.ScoringConfig, apiKey string, log *zap.Logger) *GoogleBooks {
	if log == nil {
		log = zap.NewNop()
	}
	return &GoogleBooks{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: "https://www.googleapis.com/books/v1",
		apiKey:  apiKey,
		limiter: NewLimiter(catalog.SourceGoogleBooks, cfg.RequestsPerMinute, cfg.RequestsPerDay),
		ranker:  NewRanker(scoring),
		retries: cfg.MaxRetries,
		log:     log.Named(catalog.SourceGoogleBooks),
	}
}

// Name returns the provider identifier.
func (p *GoogleBooks) Name() string { return catalog.SourceGoogleBooks }

// Google Books API response structures.
type gbVolumesResponse struct {
	TotalItems int        `json:"totalItems"`
	Items      []gbVolume `json:"items"`
}

type gbVolume struct {
	ID         string       `json:"id"`
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
	SaleInfo   gbSaleInfo   `json:"saleInfo"`
	AccessInfo gbAccessInfo `json:"accessInfo"`
}

type gbVolumeInfo struct {
	Title               string         `json:"title"`
	Subtitle            string         `json:"subtitle"`
	Authors             []string       `json:"authors"`
	Publisher           string         `json:"publisher"`
	PublishedDate       string         `json:"publishedDate"`
	Description         string         `json:"description"`
	IndustryIdentifiers []gbIdentifier `json:"industryIdentifiers"`
	PageCount           int            `json:"pageCount"`
	PrintType           string         `json:"printType"`
	Categories          []string       `json:"categories"`
	RatingsCount        int            `json:"ratingsCount"`
	ImageLinks          gbImageLinks   `json:"imageLinks"`
	Language            string         `json:"language"`
}

type gbIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type gbImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

type gbSaleInfo struct {
	Saleability string `json:"saleability"`
	IsEbook     bool   `json:"isEbook"`
	BuyLink     string `json:"buyLink"`
}

type gbAccessInfo struct {
	Viewability   string `json:"viewability"`
	WebReaderLink string `json:"webReaderLink"`
}

// Volume is a Google Books hit with the sale/access signals the publication
// validator consumes alongside the normalized record.
type Volume struct {
	Record       catalog.BookRecord
	HasPreview   bool
	BuyLink      string
	Saleable     bool
	RatingsCount int
}

// Search runs the fallback strategy chain and returns ranked records.
func (p *GoogleBooks) Search(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
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

func (p *GoogleBooks) strategies(q Query) []Strategy {
	var out []Strategy
	if q.Title != "" && q.Author != "" {
		out = append(out, Strategy{
			Name: "quoted_phrase",
			Run: func(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
				return p.searchRecords(ctx, fmt.Sprintf("%q %s", q.Title, q.Author), q)
			},
		})
	}
	out = append(out, Strategy{
		Name: "structured_fields",
		Run: func(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
			var terms []string
			if q.Title != "" {
				terms = append(terms, "intitle:"+quoteTerm(q.Title))
			}
			if q.Author != "" {
				terms = append(terms, "inauthor:"+quoteTerm(q.Author))
			}
			return p.searchRecords(ctx, strings.Join(terms, "+"), q)
		},
	})
	if q.Title != "" && q.Author != "" {
		out = append(out, Strategy{
			Name: "author_only_filtered",
			Run: func(ctx context.Context, q Query) ([]catalog.BookRecord, error) {
				records, err := p.searchRecords(ctx, "inauthor:"+quoteTerm(q.Author), q)
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

// LookupByISBN fetches a single volume by ISBN.
func (p *GoogleBooks) LookupByISBN(ctx context.Context, isbn string) (*catalog.BookRecord, error) {
	vol, err := p.FindVolume(ctx, isbn, "", "")
	if err != nil {
		return nil, err
	}
	return &vol.Record, nil
}

// FindVolume looks up the best volume for the validator: by ISBN when
// given, otherwise by title and author. Returns a not-found error when
// nothing matches.
func (p *GoogleBooks) FindVolume(ctx context.Context, isbn, title, author string) (*Volume, error) {
	if isbn != "" {
		vols, err := p.searchVolumes(ctx, "isbn:"+catalog.NormalizeISBN(isbn), 1, 0)
		if err != nil {
			return nil, err
		}
		if len(vols) > 0 {
			return &vols[0], nil
		}
	}
	if title != "" {
		terms := "intitle:" + quoteTerm(title)
		if author != "" {
			terms += "+inauthor:" + quoteTerm(author)
		}
		vols, err := p.searchVolumes(ctx, terms, 1, 0)
		if err != nil {
			return nil, err
		}
		if len(vols) > 0 {
			return &vols[0], nil
		}
	}
	return nil, &Error{Provider: p.Name(), Kind: KindNotFound}
}

func (p *GoogleBooks) searchRecords(ctx context.Context, query string, q Query) ([]catalog.BookRecord, error) {
	size := q.PageSize
	if size <= 0 || size > gbMaxPageSize {
		size = gbMaxPageSize
	}
	start := 0
	if q.Page > 1 {
		start = (q.Page - 1) * size
	}
	vols, err := p.searchVolumes(ctx, query, size, start)
	if err != nil {
		return nil, err
	}
	records := make([]catalog.BookRecord, len(vols))
	for i := range vols {
		records[i] = vols[i].Record
	}
	return records, nil
}

// searchVolumes issues one volumes request. The q term syntax is passed
// through verbatim, so it must already be percent-safe except for spaces.
func (p *GoogleBooks) searchVolumes(ctx context.Context, query string, size, start int) ([]Volume, error) {
	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(size))
	if start > 0 {
		params.Set("startIndex", strconv.Itoa(start))
	}
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}
	// q is encoded by hand: Values.Encode would escape the field operators.
	rawURL := fmt.Sprintf("%s/volumes?q=%s&%s", p.baseURL, url.QueryEscape(query), params.Encode())

	var data gbVolumesResponse
	if err := p.get(ctx, rawURL, &data); err != nil {
		return nil, err
	}

	vols := make([]Volume, 0, len(data.Items))
	for i := range data.Items {
		vols = append(vols, p.convertVolume(&data.Items[i]))
	}
	return vols, nil
}

// get performs a rate-limited, retried GET mapped into the error taxonomy.
func (p *GoogleBooks) get(ctx context.Context, rawURL string, out any) error {
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

// convertVolume normalizes one volume into a Volume with its validator
// signals.
func (p *GoogleBooks) convertVolume(v *gbVolume) Volume {
	info := &v.VolumeInfo
	rec := catalog.BookRecord{
		Title:       info.Title,
		Authors:     info.Authors,
		Publisher:   info.Publisher,
		PublishDate: info.PublishedDate,
		Description: info.Description,
		Pages:       info.PageCount,
		Categories:  info.Categories,
		Language:    info.Language,
		Source:      p.Name(),
	}

	// The subtitle is the more specific synonym; only keep it when it adds
	// something beyond the title.
	if info.Subtitle != "" && info.Subtitle != info.Title {
		rec.Subtitle = info.Subtitle
	}

	var isbn10 string
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			rec.ISBN = catalog.NormalizeISBN(id.Identifier)
		case "ISBN_10":
			isbn10 = catalog.NormalizeISBN(id.Identifier)
		}
	}
	if rec.ISBN == "" {
		rec.ISBN = isbn10
	}

	if v.SaleInfo.IsEbook {
		rec.Binding = "ebook"
	}

	if info.ImageLinks.Thumbnail != "" {
		rec.CoverURL = info.ImageLinks.Thumbnail
	} else if info.ImageLinks.SmallThumbnail != "" {
		rec.CoverURL = info.ImageLinks.SmallThumbnail
	}

	return Volume{
		Record:       rec,
		HasPreview:   v.AccessInfo.Viewability != "" && v.AccessInfo.Viewability != "NO_PAGES",
		BuyLink:      v.SaleInfo.BuyLink,
		Saleable:     v.SaleInfo.Saleability == "FOR_SALE",
		RatingsCount: info.RatingsCount,
	}
}

// quoteTerm wraps a multi-word term in quotes for the volumes q syntax.
func quoteTerm(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
