// Package provider defines the adapter contract for external bibliographic
// sources and the shared ranking, retry, and rate-limiting machinery the
// adapters are built on.
package provider

import (
	"context"
	"errors"
	"fmt"

	"bookdash/internal/catalog"
)

// ErrorKind classifies adapter failures so the orchestrator can decide
// whether to fall back to another strategy or provider.
type ErrorKind string

const (
	KindBadInput    ErrorKind = "bad_input"
	KindTimeout     ErrorKind = "timeout"
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindNotFound    ErrorKind = "not_found"
	KindMalformed   ErrorKind = "malformed"
	KindTransport   ErrorKind = "transport"
)

// Error is a tagged provider failure. Adapters never let raw transport or
// decoding errors escape their boundary.
type Error struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a provider error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// Query is a provider search request. At least one of Title, Author, or
// ISBN must be set.
type Query struct {
	Title    string
	Author   string
	ISBN     string
	Page     int
	PageSize int
}

// Empty reports whether the query carries no usable terms.
func (q Query) Empty() bool {
	return q.Title == "" && q.Author == "" && q.ISBN == ""
}

// Provider is one external bibliographic source. Search returns records
// ordered best-first; an empty slice for a well-formed query is a valid
// result, not an error.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]catalog.BookRecord, error)
	LookupByISBN(ctx context.Context, isbn string) (*catalog.BookRecord, error)
}

// Strategy is one query shape tried against a provider. Strategies are run
// in sequence and the first one returning any records wins.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, q Query) ([]catalog.BookRecord, error)
}

// RunStrategies executes strategies in order, returning the first non-empty
// result. Failures are remembered but do not stop the chain; when every
// strategy fails the last error is returned so a total failure is never
// reported as an empty success.
func RunStrategies(ctx context.Context, q Query, strategies []Strategy) ([]catalog.BookRecord, error) {
	var lastErr error
	failures := 0
	for _, s := range strategies {
		records, err := s.Run(ctx, q)
		if err != nil {
			lastErr = err
			failures++
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	if failures == len(strategies) && lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}
