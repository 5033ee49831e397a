// Package validate assigns a confidence score that a candidate record
// denotes a real, purchasable publication, using a secondary bibliographic
// provider as the evidence source.
package validate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookdash/internal/catalog"
	"bookdash/internal/provider"
)

// Signal weights. Their sum is capped at 1.0.
const (
	weightPresence    = 0.20
	weightPreview     = 0.15
	weightBuyLink     = 0.15
	weightRatings     = 0.10
	weightDescription = 0.10
	weightPages       = 0.10
	weightPublisher   = 0.10
	weightDate        = 0.10
)

// publishedThreshold is the confidence at or above which a record is
// considered really published.
const publishedThreshold = 0.6

// DefaultMinConfidence is the default filter floor for callers that drop
// low-confidence candidates.
const DefaultMinConfidence = 0.3

// degradedConfidence is assigned when the lookup itself fails; outages
// degrade validation quality instead of hiding legitimate books.
const degradedConfidence = 0.5

// minDescriptionLen is the description length treated as substantive.
const minDescriptionLen = 50

// reputablePublishers is the allow-list of well-known publishing houses,
// matched case-insensitively as substrings.
var reputablePublishers = []string{
	"penguin", "random house", "harpercollins", "harper collins",
	"simon & schuster", "simon and schuster", "macmillan", "hachette",
	"wiley", "o'reilly", "oreilly", "pearson", "mcgraw", "springer",
	"oxford university press", "cambridge university press", "scholastic",
	"norton", "houghton mifflin", "crown", "portfolio", "vintage",
}

// VolumeFinder looks up the best secondary-provider volume for a candidate,
// by ISBN first and then by title/author. Implemented by the Google Books
// adapter.
type VolumeFinder interface {
	FindVolume(ctx context.Context, isbn, title, author string) (*provider.Volume, error)
}

// Validator cross-checks candidates against a secondary provider.
type Validator struct {
	finder VolumeFinder
	source string
	log    *zap.Logger
}

// New creates a validator backed by the given finder.
func New(finder VolumeFinder, sourceName string, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{finder: finder, source: sourceName, log: log.Named("validate")}
}

// Validate scores one candidate. Lookup errors never propagate: the record
// is treated as published with degraded confidence and a flag noting the
// error.
func (v *Validator) Validate(ctx context.Context, rec *catalog.BookRecord) *catalog.ValidationResult {
	res := &catalog.ValidationResult{Sources: []string{v.source}}

	vol, err := v.finder.FindVolume(ctx, rec.ISBN, rec.Title, rec.FirstAuthor())
	if err != nil {
		if provider.IsKind(err, provider.KindNotFound) {
			// A clean miss is evidence, not an outage.
			res.IsPublished = false
			res.Confidence = 0
			res.Signals = append(res.Signals, "no_hit")
			return res
		}
		v.log.Warn("validation lookup failed", zap.String("title", rec.Title), zap.Error(err))
		res.IsPublished = true
		res.Confidence = degradedConfidence
		res.Signals = append(res.Signals, "validation_error")
		return res
	}

	score := weightPresence
	res.Signals = append(res.Signals, "found")

	if vol.HasPreview {
		score += weightPreview
		res.Signals = append(res.Signals, "preview")
	}
	if vol.BuyLink != "" || vol.Saleable {
		score += weightBuyLink
		res.Signals = append(res.Signals, "purchasable")
	}
	if vol.RatingsCount > 0 {
		score += weightRatings
		res.Signals = append(res.Signals, "rated")
	}
	if len(vol.Record.Description) > minDescriptionLen {
		score += weightDescription
		res.Signals = append(res.Signals, "description")
	}
	if vol.Record.Pages > 0 {
		score += weightPages
		res.Signals = append(res.Signals, "page_count")
	}
	if isReputablePublisher(vol.Record.Publisher) {
		score += weightPublisher
		res.Signals = append(res.Signals, "reputable_publisher")
	}
	if plausibleDate(vol.Record.PublishYear()) {
		score += weightDate
		res.Signals = append(res.Signals, "date_consistent")
	}

	if score > 1.0 {
		score = 1.0
	}
	res.Confidence = score
	res.IsPublished = score >= publishedThreshold
	return res
}

// isReputablePublisher matches the allow-list as case-insensitive
// substrings.
func isReputablePublisher(name string) bool {
	n := strings.ToLower(name)
	if n == "" {
		return false
	}
	for _, p := range reputablePublishers {
		if strings.Contains(n, p) {
			return true
		}
	}
	return false
}

// plausibleDate accepts years between 1800 and two years into the future.
func plausibleDate(year int) bool {
	if year == 0 {
		return false
	}
	return year >= 1800 && year <= time.Now().Year()+2
}
