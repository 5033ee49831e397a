package provider

import (
	"sort"
	"strings"

	"bookdash/internal/catalog"
	"bookdash/internal/config"
	"bookdash/internal/edition"
)

// derivativeMarkers flag titles that are study aids rather than the work
// itself.
var derivativeMarkers = []string{"summary", "study guide", "guide"}

// Ranker orders one provider's raw results by likely relevance and
// authority. Scores come from the tunable constants in ScoringConfig;
// ties keep provider order.
type Ranker struct {
	cfg *config.ScoringConfig
}

// NewRanker creates a ranker. A nil config uses the defaults.
func NewRanker(cfg *config.ScoringConfig) *Ranker {
	if cfg == nil {
		cfg = &config.ScoringConfig{}
	}
	cfg.ApplyDefaults()
	return &Ranker{cfg: cfg}
}

// Rank sorts records best-first against the query title. The sort is
// stable, so equal scores preserve the provider's own ordering.
func (rk *Ranker) Rank(records []catalog.BookRecord, queryTitle string) []catalog.BookRecord {
	type scored struct {
		rec   catalog.BookRecord
		score float64
	}
	out := make([]scored, len(records))
	for i, r := range records {
		out[i] = scored{rec: r, score: rk.Score(&r, queryTitle)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].score > out[b].score })

	ranked := make([]catalog.BookRecord, len(out))
	for i, s := range out {
		ranked[i] = s.rec
	}
	return ranked
}

// Score computes the relevance score for one record.
func (rk *Ranker) Score(r *catalog.BookRecord, queryTitle string) float64 {
	score := rk.titleScore(r.Title, queryTitle)
	score += rk.editionScore(r)
	score += rk.dateScore(r.PublishYear())
	score += rk.bindingScore(r.Binding)
	return score
}

func (rk *Ranker) titleScore(title, queryTitle string) float64 {
	t := catalog.NormalizeText(title)
	q := catalog.NormalizeText(queryTitle)

	var score float64
	for _, m := range derivativeMarkers {
		if strings.Contains(t, m) && !strings.Contains(q, m) {
			score += rk.cfg.DerivativePenalty
			break
		}
	}
	if q != "" && !strings.Contains(t, q) && !strings.Contains(q, t) {
		score += rk.cfg.UnrelatedPenalty
	}
	if q != "" && (t == q || strings.HasPrefix(t, q+" ")) {
		score += rk.cfg.ExactTitleBonus
	}
	return score
}

func (rk *Ranker) editionScore(r *catalog.BookRecord) float64 {
	if n := edition.ParseMarkerNumber(r.Edition); n > 0 {
		return float64(n) * rk.cfg.EditionNumberWeight
	}
	if edition.IsRevisedMarker(r.Edition) {
		return rk.cfg.RevisedBonus
	}
	return 0
}

func (rk *Ranker) dateScore(year int) float64 {
	switch {
	case year == 0:
		return 0
	case year >= 2020:
		return rk.cfg.Date2020Plus
	case year >= 2015:
		return rk.cfg.Date2015to19
	case year >= 2010:
		return rk.cfg.Date2010to14
	case year >= 2000:
		return rk.cfg.Date2000s
	default:
		return rk.cfg.DateOlder
	}
}

func (rk *Ranker) bindingScore(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		// No binding usually means the main print listing.
		return rk.cfg.BindingEmpty
	}
	switch {
	case strings.Contains(s, "hardcover"), strings.Contains(s, "hardback"), strings.Contains(s, "hard cover"):
		return rk.cfg.BindingHardcover
	case strings.Contains(s, "paperback"), strings.Contains(s, "softcover"):
		return rk.cfg.BindingPaperback
	case strings.Contains(s, "kindle"):
		return rk.cfg.BindingKindle
	case strings.Contains(s, "ebook"), strings.Contains(s, "e-book"), strings.Contains(s, "digital"):
		return rk.cfg.BindingEbook
	case strings.Contains(s, "mp3"):
		return rk.cfg.BindingMP3CD
	case strings.Contains(s, "audio cd"), s == "cd":
		return rk.cfg.BindingAudioCD
	case strings.Contains(s, "audio"), strings.Contains(s, "audible"):
		return rk.cfg.BindingAudio
	default:
		return rk.cfg.BindingUnrecognized
	}
}

// stopwords are ignored when deciding whether a candidate title overlaps
// the query enough to keep in author-only fallback results.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "of": true,
	"to": true, "in": true, "for": true, "on": true, "with": true,
}

// minWordOverlap is the fraction of significant query words that must
// appear in a candidate title for the author-only fallback to keep it.
const minWordOverlap = 0.6

// TitleMatchesQuery reports whether enough significant words of the query
// title appear in the candidate title.
func TitleMatchesQuery(candidateTitle, queryTitle string) bool {
	q := catalog.NormalizeText(queryTitle)
	c := catalog.NormalizeText(candidateTitle)
	if q == "" {
		return true
	}
	if strings.Contains(c, q) {
		return true
	}

	var significant, found int
	for _, w := range strings.Fields(q) {
		if stopwords[w] || len(w) < 3 {
			continue
		}
		significant++
		if strings.Contains(c, w) {
			found++
		}
	}
	if significant == 0 {
		return strings.Contains(c, q)
	}
	return float64(found)/float64(significant) >= minWordOverlap
}
