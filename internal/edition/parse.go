// Package edition partitions merged book records into edition groups and
// binding groups using title, edition-marker, and date heuristics.
package edition

import (
	"regexp"
	"strconv"
	"strings"
)

// maxPlausibleEdition guards against 4-digit years embedded in markers or
// titles being misread as edition numbers. Anything above it is rejected
// and the next extraction strategy applies.
const maxPlausibleEdition = 99

// specialKeywords are edition-type labels that override numeric detection
// when they appear in the edition-marker field.
var specialKeywords = []string{
	"unabridged", "abridged", "revised", "updated", "expanded",
	"annotated", "illustrated", "deluxe", "limited", "special",
}

var (
	ordinalRe  = regexp.MustCompile(`\b(\d{1,3})(?:st|nd|rd|th)\b`)
	bareNumRe  = regexp.MustCompile(`^\s*(\d{1,3})\s*$`)
	titleNumRe = regexp.MustCompile(`\b(\d{1,3})(?:st|nd|rd|th)\s+ed(?:ition|\.)?\b`)
	revisedRe  = regexp.MustCompile(`\b(?:revised|updated|new)\s+edition\b`)
)

// SpecialType returns the special-edition keyword found in an edition-marker
// field, or "" when the marker is numeric or unrecognized.
func SpecialType(marker string) string {
	m := strings.ToLower(strings.TrimSpace(marker))
	if m == "" {
		return ""
	}
	for _, kw := range specialKeywords {
		if strings.Contains(m, kw) {
			return kw
		}
	}
	return ""
}

// ParseMarkerNumber extracts a numeric edition from an edition-marker field:
// ordinal forms ("2nd", "2nd edition") or a bare number between 1 and 20.
// Returns 0 when nothing plausible is found.
func ParseMarkerNumber(marker string) int {
	m := strings.ToLower(strings.TrimSpace(marker))
	if m == "" {
		return 0
	}
	if g := ordinalRe.FindStringSubmatch(m); g != nil {
		if n := atoiEdition(g[1]); n > 0 {
			return n
		}
	}
	if g := bareNumRe.FindStringSubmatch(m); g != nil {
		n := atoiEdition(g[1])
		if n >= 1 && n <= 20 {
			return n
		}
	}
	return 0
}

// ParseTitleNumber extracts a numeric edition from title text. Ordinal
// "N(st|nd|rd|th) edition" phrasing wins; "revised/updated/new edition"
// phrasing reads as edition 2. Returns 0 when nothing matches.
func ParseTitleNumber(title string) int {
	t := strings.ToLower(title)
	if g := titleNumRe.FindStringSubmatch(t); g != nil {
		if n := atoiEdition(g[1]); n > 0 {
			return n
		}
	}
	if revisedRe.MatchString(t) {
		return 2
	}
	return 0
}

// IsRevisedMarker reports whether a marker suggests a revision without a
// usable number ("revised", "updated", "new").
func IsRevisedMarker(marker string) bool {
	m := strings.ToLower(strings.TrimSpace(marker))
	for _, kw := range []string{"revised", "updated", "new"} {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

// atoiEdition parses a candidate edition number, rejecting values that are
// probably years rather than editions.
func atoiEdition(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxPlausibleEdition {
		return 0
	}
	return n
}
