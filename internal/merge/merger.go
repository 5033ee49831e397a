// Package merge deduplicates and combines book records sourced from
// multiple provider adapters into one field-complete candidate list.
package merge

import (
	"sort"
	"strings"

	"bookdash/internal/catalog"
)

// Merge folds records that denote the same real-world book into single
// field-complete records and orders the result by authority. Identity is
// the ISBN when present, otherwise normalized title plus first author;
// records with different ISBNs are never merged.
func Merge(records []catalog.BookRecord) []catalog.BookRecord {
	index := make(map[string]int, len(records))
	var out []catalog.BookRecord

	for _, r := range records {
		key := r.MergeKey()
		if i, ok := index[key]; ok {
			out[i] = mergePair(out[i], r)
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}

	sortByAuthority(out)
	return out
}

// mergePair combines two records known to denote the same book. For each
// field the non-empty value survives; when both sides have one, free text
// prefers the longer string, identifiers prefer the 13-digit form, and
// structured fields (publisher, binding) prefer the primary metadata
// source. Cover art prefers the non-primary source.
func mergePair(a, b catalog.BookRecord) catalog.BookRecord {
	m := a

	m.Title = longer(a.Title, b.Title)
	m.Subtitle = longer(a.Subtitle, b.Subtitle)
	m.Description = longer(a.Description, b.Description)

	if len(catalog.NormalizeISBN(b.ISBN)) > len(catalog.NormalizeISBN(a.ISBN)) {
		m.ISBN = b.ISBN
	}

	m.Authors = unionFold(a.Authors, b.Authors)
	m.Categories = unionFold(a.Categories, b.Categories)

	m.Publisher = preferPrimary(a, b, func(r *catalog.BookRecord) string { return r.Publisher })
	m.Binding = preferPrimary(a, b, func(r *catalog.BookRecord) string { return r.Binding })
	m.CoverURL = preferAlternate(a, b, func(r *catalog.BookRecord) string { return r.CoverURL })

	if m.PublishDate == "" {
		m.PublishDate = b.PublishDate
	}
	if m.Edition == "" {
		m.Edition = b.Edition
	}
	if m.Language == "" {
		m.Language = b.Language
	}
	if m.Pages == 0 {
		m.Pages = b.Pages
	}

	// A merged record counts as primary-sourced when either side was.
	if b.Source == catalog.PrimarySource {
		m.Source = catalog.PrimarySource
	}
	return m
}

// longer returns the longer non-empty string, favoring a on ties.
func longer(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	return a
}

// unionFold unions two lists case-insensitively, preserving order and the
// first-seen casing of each entry.
func unionFold(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			k := strings.ToLower(strings.TrimSpace(v))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

// preferPrimary picks the field value from the primary structured-metadata
// source, falling back to the other side when the preferred one is empty.
func preferPrimary(a, b catalog.BookRecord, field func(*catalog.BookRecord) string) string {
	first, second := a, b
	if b.Source == catalog.PrimarySource && a.Source != catalog.PrimarySource {
		first, second = b, a
	}
	if v := field(&first); v != "" {
		return v
	}
	return field(&second)
}

// preferAlternate picks the field value from the non-primary source, since
// the alternate catalog tends to carry better cover art.
func preferAlternate(a, b catalog.BookRecord, field func(*catalog.BookRecord) string) string {
	first, second := a, b
	if a.Source == catalog.PrimarySource && b.Source != catalog.PrimarySource {
		first, second = b, a
	}
	if v := field(&first); v != "" {
		return v
	}
	return field(&second)
}

// completeness scores how field-complete a record is; used for ordering
// only, never for merging decisions.
func completeness(r *catalog.BookRecord) int {
	score := 0
	if r.ISBN != "" {
		score += 3
	}
	if len(r.Authors) > 0 {
		score += 2
	}
	if r.Publisher != "" {
		score++
	}
	if r.PublishDate != "" {
		score++
	}
	if r.Description != "" {
		score += 2
	}
	if r.Pages > 0 {
		score++
	}
	if r.Binding != "" {
		score++
	}
	if r.CoverURL != "" {
		score++
	}
	return score
}

// sortByAuthority orders merged records: ISBN-bearing first, then by
// completeness, then primary-sourced, then alphabetically by title.
func sortByAuthority(records []catalog.BookRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		if (a.ISBN != "") != (b.ISBN != "") {
			return a.ISBN != ""
		}
		ca, cb := completeness(a), completeness(b)
		if ca != cb {
			return ca > cb
		}
		ap, bp := a.Source == catalog.PrimarySource, b.Source == catalog.PrimarySource
		if ap != bp {
			return ap
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}
