// Package search orchestrates the pipeline: provider fan-out, merging,
// best-effort validation, and edition grouping.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookdash/internal/catalog"
	"bookdash/internal/config"
	"bookdash/internal/edition"
	"bookdash/internal/merge"
	"bookdash/internal/provider"
	"bookdash/internal/validate"
)

// ErrMissingQuery is returned when a request carries none of title, author,
// or ISBN.
var ErrMissingQuery = errors.New("at least one of title, author, or isbn is required")

// ErrAllProvidersFailed distinguishes a total provider outage from a
// legitimate empty result.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Request is an inbound catalog search.
type Request struct {
	Title                   string  `json:"title,omitempty"`
	Author                  string  `json:"author,omitempty"`
	ISBN                    string  `json:"isbn,omitempty"`
	Page                    int     `json:"page,omitempty"`
	PageSize                int     `json:"page_size,omitempty"`
	Validate                bool    `json:"validate,omitempty"`
	MinValidationConfidence float64 `json:"min_validation_confidence,omitempty"`
}

// Response is the ordered edition-group list handed to API and persistence
// consumers.
type Response struct {
	Groups []catalog.EditionGroup `json:"groups"`
}

// Service runs search requests through the pipeline. All state is
// per-request; the service itself is safe for concurrent use.
type Service struct {
	providers []provider.Provider
	validator *validate.Validator
	cfg       config.ValidateConfig
	log       *zap.Logger
}

// NewService creates the orchestrator. The validator may be nil, in which
// case validation requests are ignored.
func NewService(providers []provider.Provider, validator *validate.Validator, cfg config.ValidateConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		providers: providers,
		validator: validator,
		cfg:       cfg,
		log:       log.Named("search"),
	}
}

// Search runs the full pipeline. A request matching nothing anywhere
// returns an empty response and no error; a request that failed on every
// provider returns ErrAllProvidersFailed.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Title == "" && req.Author == "" && req.ISBN == "" {
		return nil, ErrMissingQuery
	}

	q := provider.Query{
		Title:    req.Title,
		Author:   req.Author,
		ISBN:     req.ISBN,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	records, err := s.fanOut(ctx, q)
	if err != nil {
		return nil, err
	}

	merged := merge.Merge(records)

	if req.Validate && s.validator != nil {
		merged = s.validateAll(ctx, merged, req.MinValidationConfidence)
	}

	return &Response{Groups: edition.Group(merged)}, nil
}

// fanOut queries every provider concurrently and combines their results in
// registration order. Individual provider failures are tolerated; only a
// total failure is an error.
func (s *Service) fanOut(ctx context.Context, q provider.Query) ([]catalog.BookRecord, error) {
	results := make([][]catalog.BookRecord, len(s.providers))
	errs := make([]error, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		i, p := i, p
		g.Go(func() error {
			records, err := p.Search(gctx, q)
			if err != nil {
				s.log.Warn("provider search failed", zap.String("provider", p.Name()), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var all []catalog.BookRecord
	failed := 0
	for i := range s.providers {
		if errs[i] != nil {
			failed++
			continue
		}
		all = append(all, results[i]...)
	}
	if failed == len(s.providers) && len(s.providers) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
	}
	return all, nil
}

// validateAll races concurrent per-record validation against a wall-clock
// budget. Records whose validation did not finish in time keep no
// ValidationResult; late arrivals are discarded, not awaited. When
// filtering is enabled, validated records below the confidence floor are
// dropped.
func (s *Service) validateAll(ctx context.Context, records []catalog.BookRecord, minConfidence float64) []catalog.BookRecord {
	if minConfidence <= 0 {
		minConfidence = s.cfg.MinConfidence
	}

	budget := s.cfg.Budget
	if budget <= 0 {
		budget = 5 * time.Second
	}
	vctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		idx int
		res *catalog.ValidationResult
	}
	results := make(chan outcome, len(records))
	sem := make(chan struct{}, s.maxConcurrent())

	for i := range records {
		i := i
		rec := records[i]
		go func() {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-vctx.Done():
				return
			}
			results <- outcome{idx: i, res: s.validator.Validate(vctx, &rec)}
		}()
	}

	done := 0
	deadline := time.After(budget)
collect:
	for done < len(records) {
		select {
		case o := <-results:
			records[o.idx].Validation = o.res
			done++
		case <-deadline:
			break collect
		}
	}
	if done < len(records) {
		s.log.Debug("validation budget exhausted",
			zap.Int("validated", done), zap.Int("total", len(records)))
	}

	if !s.cfg.FilterBelowMinOrDefault() {
		return records
	}
	kept := records[:0]
	for _, r := range records {
		if r.Validation != nil && r.Validation.Confidence < minConfidence {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (s *Service) maxConcurrent() int {
	if s.cfg.MaxConcurrent > 0 {
		return s.cfg.MaxConcurrent
	}
	return 8
}
