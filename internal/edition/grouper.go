package edition

import (
	"sort"

	"bookdash/internal/catalog"
)

// yearAttachSlack is how far (in years) an audio record's date may sit from
// a print edition's year and still attach to it when no exact range fits.
const yearAttachSlack = 2

// Group partitions merged records into edition groups. Audio-format records
// are split out first and attached to the print edition they most likely
// belong to; unattached audio records form their own groups so nothing is
// dropped. Every input record lands in exactly one group.
func Group(records []catalog.BookRecord) []catalog.EditionGroup {
	var print, audio []catalog.BookRecord
	for _, r := range records {
		if catalog.IsAudioBinding(r.Binding) {
			audio = append(audio, r)
		} else {
			print = append(print, r)
		}
	}

	groups := groupByKey(nil, print)
	groups = attachAudio(groups, audio)

	for i := range groups {
		sortBindings(groups[i].Books)
	}
	sortGroups(groups)
	return groups
}

// classify derives the edition key for one record. A special-edition keyword
// in the marker field always wins over any number found in the title; the
// "revised edition" phrasing inside a title maps to numeric edition 2
// instead of a special type.
func classify(r *catalog.BookRecord) (number int, editionType string) {
	if t := SpecialType(r.Edition); t != "" {
		return 0, t
	}
	if n := ParseMarkerNumber(r.Edition); n > 0 {
		return n, ""
	}
	if n := ParseTitleNumber(r.Title); n > 0 {
		return n, ""
	}
	// Date heuristic of last resort: recent prints are more often reissues.
	if r.PublishYear() >= 2020 {
		return 2, ""
	}
	return 1, ""
}

// groupByKey folds records into groups keyed by their derived edition
// identity, appending to any existing groups passed in.
func groupByKey(groups []catalog.EditionGroup, records []catalog.BookRecord) []catalog.EditionGroup {
	index := make(map[string]int, len(groups))
	for i := range groups {
		index[groups[i].Key()] = i
	}

	for _, r := range records {
		number, editionType := classify(&r)
		g := catalog.EditionGroup{Number: number, Type: editionType}
		if g.Number < 1 {
			g.Number = 1
		}
		key := g.Key()

		i, ok := index[key]
		if !ok {
			groups = append(groups, g)
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].Books = append(groups[i].Books, r)
		if groups[i].Year == 0 {
			groups[i].Year = r.PublishYear()
		}
	}
	return groups
}

// attachAudio places each audio record into the print edition it most
// likely belongs to, trying in order: an edition number encoded in its own
// title, a publication-year range fit, a near-year fit, and finally its own
// group keyed the same way as print records.
func attachAudio(groups []catalog.EditionGroup, audio []catalog.BookRecord) []catalog.EditionGroup {
	for _, r := range audio {
		if n := ParseTitleNumber(r.Title); n > 1 {
			if i := findNumeric(groups, n); i >= 0 {
				groups[i].Books = append(groups[i].Books, r)
				continue
			}
			groups = append(groups, catalog.EditionGroup{
				Number: n,
				Year:   r.PublishYear(),
				Books:  []catalog.BookRecord{r},
			})
			continue
		}

		if year := r.PublishYear(); year > 0 {
			if i := findByYearRange(groups, year); i >= 0 {
				groups[i].Books = append(groups[i].Books, r)
				continue
			}
			if i := findByYearSlack(groups, year); i >= 0 {
				groups[i].Books = append(groups[i].Books, r)
				continue
			}
		}

		groups = groupByKey(groups, []catalog.BookRecord{r})
	}
	return groups
}

// findNumeric locates the purely numeric group with the given edition number.
func findNumeric(groups []catalog.EditionGroup, n int) int {
	for i := range groups {
		if groups[i].Type == "" && groups[i].Number == n {
			return i
		}
	}
	return -1
}

// findByYearRange treats consecutive numeric editions as year intervals and
// returns the edition whose interval contains the given year: its year must
// be <= the target and the next dated edition's year strictly greater. The
// last edition has no upper bound.
func findByYearRange(groups []catalog.EditionGroup, year int) int {
	dated := datedNumericIndexes(groups)
	for pos, i := range dated {
		if groups[i].Year > year {
			continue
		}
		if pos+1 < len(dated) && groups[dated[pos+1]].Year <= year {
			continue
		}
		return i
	}
	return -1
}

// findByYearSlack returns any numeric edition within the attach slack of the
// given year.
func findByYearSlack(groups []catalog.EditionGroup, year int) int {
	for _, i := range datedNumericIndexes(groups) {
		d := groups[i].Year - year
		if d < 0 {
			d = -d
		}
		if d <= yearAttachSlack {
			return i
		}
	}
	return -1
}

// datedNumericIndexes returns indexes of numeric groups that carry a year,
// ordered by edition number ascending.
func datedNumericIndexes(groups []catalog.EditionGroup) []int {
	var idx []int
	for i := range groups {
		if groups[i].Type == "" && groups[i].Year > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return groups[idx[a]].Number < groups[idx[b]].Number
	})
	return idx
}

// sortGroups orders numeric editions first, newest first, with special-type
// editions after them alphabetically.
func sortGroups(groups []catalog.EditionGroup) {
	sort.SliceStable(groups, func(a, b int) bool {
		ga, gb := &groups[a], &groups[b]
		if (ga.Type == "") != (gb.Type == "") {
			return ga.Type == ""
		}
		if ga.Type == "" {
			return ga.Number > gb.Number
		}
		return ga.Type < gb.Type
	})
}

// sortBindings orders a group's records by binding preference; unranked
// bindings sort alphabetically after the preferred ones, and ties keep
// discovery order.
func sortBindings(books []catalog.BookRecord) {
	sort.SliceStable(books, func(a, b int) bool {
		ba := catalog.NormalizeBinding(books[a].Binding)
		bb := catalog.NormalizeBinding(books[b].Binding)
		ra, rb := catalog.BindingRank(ba), catalog.BindingRank(bb)
		if ra != rb {
			return ra < rb
		}
		return ba < bb
	})
}

// BindingGroup collects the records of one edition that share a normalized
// binding type. Derived for display, never persisted.
type BindingGroup struct {
	Type  string               `json:"binding_type"`
	Books []catalog.BookRecord `json:"books"`
}

// Bindings partitions a group's records by normalized binding type,
// preserving the group's record order.
func Bindings(g *catalog.EditionGroup) []BindingGroup {
	var out []BindingGroup
	index := map[string]int{}
	for _, r := range g.Books {
		bt := catalog.NormalizeBinding(r.Binding)
		i, ok := index[bt]
		if !ok {
			out = append(out, BindingGroup{Type: bt})
			i = len(out) - 1
			index[bt] = i
		}
		out[i].Books = append(out[i].Books, r)
	}
	return out
}
